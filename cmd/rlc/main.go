package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"

	"github.com/edp1096/rlc-spice/pkg/analysis"
	"github.com/edp1096/rlc-spice/pkg/circuit"
	"github.com/edp1096/rlc-spice/pkg/device"
	"github.com/edp1096/rlc-spice/pkg/netlist"
	"github.com/edp1096/rlc-spice/pkg/ode"
	"github.com/edp1096/rlc-spice/pkg/report"
	"github.com/edp1096/rlc-spice/pkg/util"
)

var (
	flagR      = flag.Float64("r", 10, "resistance in ohm")
	flagL      = flag.Float64("l", 100e-3, "inductance in henry")
	flagC      = flag.Float64("c", 10e-6, "capacitance in farad")
	flagStep   = flag.Float64("step", 0, "step amplitude in volt; non-zero selects a step source")
	flagAmp    = flag.Float64("amp", 10, "sinusoid amplitude in volt")
	flagFreq   = flag.Float64("freq", 159.15, "sinusoid frequency in Hz")
	flagRes    = flag.Bool("resonance", false, "drive the sinusoid at the resonant frequency f0")
	flagTStop  = flag.Float64("tstop", 100e-3, "transient stop time in seconds")
	flagPoints = flag.Int("points", 2000, "transient output points")
	flagFStart = flag.Float64("fstart", 1, "AC sweep start in Hz")
	flagFStop  = flag.Float64("fstop", 100e3, "AC sweep stop in Hz, 0 skips the sweep")
	flagPPD    = flag.Int("ppd", 50, "AC points per decade")
	flagProbe  = flag.String("probe", "V(C)", "comma separated AC observables: V(C), V(R), V(L), I")
	flagMethod = flag.String("method", "dopri", "integrator: dopri, gear or trap")
	flagOrder  = flag.Int("order", 2, "implicit integrator order")
	flagTable  = flag.Bool("table", false, "print result tables")
	flagCSV    = flag.String("csv", "", "write CSV files with this path prefix")
	flagPNG    = flag.String("png", "", "write PNG plots with this path prefix")
	flagHTML   = flag.String("html", "", "write an HTML chart page to this file")
	flagV      = flag.Bool("v", false, "verbose solver statistics")
)

type tranSpec struct {
	tStep, tStop float64
}

type acSpec struct {
	sweep         string
	points        int
	fStart, fStop float64
}

type job struct {
	title  string
	params circuit.Params
	source device.Source
	tran   *tranSpec
	ac     *acSpec
	probes []analysis.Observable
	opts   []analysis.Option
}

func fromDeck(path string) (*job, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading netlist file: %w", err)
	}
	deck, err := netlist.Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing netlist: %w", err)
	}

	j := &job{title: deck.Title, params: deck.Params, source: deck.Source, probes: deck.Probes}
	for _, a := range deck.Analyses {
		switch a {
		case netlist.AnalysisTRAN:
			j.tran = &tranSpec{deck.TranParam.TStep, deck.TranParam.TStop}
		case netlist.AnalysisAC:
			p := deck.ACParam
			j.ac = &acSpec{p.Sweep, p.Points, p.FStart, p.FStop}
		}
	}
	if deck.IC.Set {
		j.opts = append(j.opts, analysis.WithInitialState(deck.IC.Q, deck.IC.I))
	}
	return j, nil
}

func fromFlags() (*job, error) {
	p, err := circuit.New(*flagR, *flagL, *flagC)
	if err != nil {
		return nil, err
	}

	var src device.Source
	if *flagStep != 0 {
		src, err = device.NewStep(*flagStep)
	} else {
		src, err = device.NewSinusoidHz(*flagAmp, *flagFreq)
	}
	if err != nil {
		return nil, err
	}

	if *flagPoints < 2 {
		return nil, fmt.Errorf("need at least 2 points, got %d", *flagPoints)
	}
	j := &job{
		title:  "series RLC",
		params: p,
		source: src,
		tran:   &tranSpec{*flagTStop / float64(*flagPoints-1), *flagTStop},
	}
	if *flagFStop > 0 {
		j.ac = &acSpec{"DEC", *flagPPD, *flagFStart, *flagFStop}
	}
	for _, name := range strings.Split(*flagProbe, ",") {
		obs, err := analysis.ParseObservable(name)
		if err != nil {
			return nil, err
		}
		j.probes = append(j.probes, obs)
	}
	return j, nil
}

func integrator() (ode.Integrator, error) {
	if *flagMethod == "dopri" || *flagMethod == "rk45" {
		return ode.NewDormandPrince(ode.Config{}), nil
	}
	method, err := util.ParseMethod(*flagMethod)
	if err != nil {
		return nil, err
	}
	return ode.NewImplicit(method, *flagOrder, 0), nil
}

func runTransient(j *job) *analysis.Trajectory {
	in, err := integrator()
	if err != nil {
		log.Fatal(err)
	}
	opts := append(j.opts, analysis.WithIntegrator(in))

	tran := analysis.NewTransient(j.source, j.tran.tStep, j.tran.tStop, opts...)
	if err := tran.Setup(j.params); err != nil {
		log.Fatalf("Transient setup failed: %v", err)
	}
	if err := tran.Execute(); err != nil {
		log.Fatalf("Transient execution failed: %v", err)
	}
	tr := tran.Trajectory
	if *flagV {
		s := tr.Stats
		log.Printf("%s: %d steps, %d rejected, %d evaluations, last step %g",
			in.Info().Name, s.StepCount, s.RejectedCount, s.EvaluationCount, s.LastStepSize)
	}

	fmt.Printf("\nTransient: %d points to %s\n", tr.Len(), util.FormatValueFactor(j.tran.tStop, "s"))
	if sin, ok := j.source.(device.Sinusoid); ok {
		ss, err := tr.SteadyState(sin.Omega)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Steady-state amplitudes (last 2 periods): I=%s V(R)=%s V(L)=%s V(C)=%s\n",
			util.FormatValueFactor(analysis.Amplitude(ss.Current), "A"),
			util.FormatValueFactor(analysis.Amplitude(ss.VR), "V"),
			util.FormatValueFactor(analysis.Amplitude(ss.VL), "V"),
			util.FormatValueFactor(analysis.Amplitude(ss.VC), "V"))
	} else {
		last := tr.Len() - 1
		fmt.Printf("Final values: I=%s V(C)=%s\n",
			util.FormatValueFactor(tr.Current[last], "A"), util.FormatValueFactor(tr.VC[last], "V"))
	}

	if *flagTable {
		report.PrintResults(os.Stdout, tran.GetResults())
	}
	if *flagCSV != "" {
		writeCSV(*flagCSV+"_tran.csv", tran.GetResults())
	}
	if *flagPNG != "" {
		if err := report.PlotTransient(tr, j.title, *flagPNG+"_tran.png"); err != nil {
			log.Fatalf("Plotting transient failed: %v", err)
		}
	}
	return tr
}

func runAC(j *job, obs analysis.Observable) *analysis.FrequencyResponse {
	p := j.ac
	ac := analysis.NewAC(p.fStart, p.fStop, p.points, p.sweep, obs)
	if err := ac.Setup(j.params); err != nil {
		log.Fatalf("AC setup failed: %v", err)
	}
	if err := ac.Execute(); err != nil {
		log.Fatalf("AC execution failed: %v", err)
	}
	fr := ac.Response

	peakW, peakDB := fr.Peak()
	fmt.Printf("\nAC %s: %d points, peak %s dB at %s\n",
		obs, fr.Len(), util.FormatDecibel(peakDB), util.FormatValueFactor(peakW/(2*math.Pi), "Hz"))
	if lo, hi, err := fr.HalfPowerBand(); err == nil {
		fmt.Printf("Half-power band: %s to %s\n", util.FormatValueFactor(lo, "rad/s"), util.FormatValueFactor(hi, "rad/s"))
	}

	name := strings.NewReplacer("(", "", ")", "").Replace(obs.Key())
	if *flagTable {
		report.PrintResults(os.Stdout, ac.GetResults())
	}
	if *flagCSV != "" {
		writeCSV(*flagCSV+"_ac_"+name+".csv", ac.GetResults())
	}
	if *flagPNG != "" {
		if err := report.PlotBode(fr, obs.Key(), *flagPNG+"_bode_"+name+".png"); err != nil {
			log.Fatalf("Plotting Bode failed: %v", err)
		}
	}
	return fr
}

func writeCSV(path string, results map[string][]float64) {
	err := report.SaveFile(path, func(w io.Writer) error { return report.WriteCSV(w, results) })
	if err != nil {
		log.Fatalf("Error writing %s: %v", path, err)
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: rlc [flags] [netlist_file]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	var (
		j   *job
		err error
	)
	switch flag.NArg() {
	case 0:
		j, err = fromFlags()
	case 1:
		j, err = fromDeck(flag.Arg(0))
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
	if *flagRes {
		if j.source, err = analysis.ResonantSource(j.params, j.source); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Printf("===== %s =====\n\n", j.title)
	if err := report.CircuitInfo(os.Stdout, j.params, j.source); err != nil {
		log.Fatal(err)
	}

	var (
		tr *analysis.Trajectory
		fr *analysis.FrequencyResponse
	)
	if j.tran != nil {
		tr = runTransient(j)
	}
	if j.ac != nil {
		for _, obs := range j.probes {
			fr = runAC(j, obs)
		}
	}

	if *flagHTML != "" {
		name := ""
		if fr != nil {
			name = j.probes[len(j.probes)-1].Key()
		}
		err := report.SaveFile(*flagHTML, func(w io.Writer) error { return report.RenderCharts(w, tr, fr, name) })
		if err != nil {
			log.Fatalf("Rendering charts failed: %v", err)
		}
	}
}
