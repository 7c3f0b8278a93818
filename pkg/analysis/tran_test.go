package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/edp1096/rlc-spice/pkg/circuit"
	"github.com/edp1096/rlc-spice/pkg/device"
	"github.com/edp1096/rlc-spice/pkg/ode"
	"github.com/edp1096/rlc-spice/pkg/util"
)

// L = 100 mH and C = 10 uF give omega0 = 1000 rad/s and R_crit = 200 ohm.
const (
	testL = 100e-3
	testC = 10e-6
	testE = 10.0
)

func linGrid(t *testing.T, stop float64, n int) []float64 {
	t.Helper()
	g, err := util.LinSpace(0, stop, n)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// stepVC is the closed-form capacitor voltage for a step of E from rest.
func stepVC(p circuit.Params, e, t float64) float64 {
	a := p.R / (2 * p.L)
	w0 := 1 / math.Sqrt(p.L*p.C)
	switch d := a*a - w0*w0; {
	case math.Abs(d) < 1e-9*w0*w0:
		return e * (1 - (1+a*t)*math.Exp(-a*t))
	case d < 0:
		wd := math.Sqrt(-d)
		return e * (1 - math.Exp(-a*t)*(math.Cos(wd*t)+a/wd*math.Sin(wd*t)))
	default:
		s1, s2 := -a+math.Sqrt(d), -a-math.Sqrt(d)
		return e * (1 + (s2*math.Exp(s1*t)-s1*math.Exp(s2*t))/(s1-s2))
	}
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}

func TestStepResponseMatchesClosedForm(t *testing.T) {
	src, _ := device.NewStep(testE)
	g := linGrid(t, 50e-3, 2001)

	for _, r := range []float64{40, 200, 1000} {
		p, err := circuit.New(r, testL, testC)
		if err != nil {
			t.Fatal(err)
		}
		tr, err := Integrate(p, src, g)
		if err != nil {
			t.Fatalf("R=%g: %v", r, err)
		}

		peak := math.Max(maxOf(tr.VC), testE)
		maxErr := 0.0
		for k, tk := range tr.Time {
			maxErr = math.Max(maxErr, math.Abs(tr.VC[k]-stepVC(p, testE, tk)))
		}
		if maxErr/peak > 1e-6 {
			t.Errorf("R=%g: max error relative to peak %g exceeds 1e-6", r, maxErr/peak)
		}
	}
}

func TestCriticalDampingHasNoOvershoot(t *testing.T) {
	rCrit, _ := circuit.CriticalResistance(testL, testC)
	p, _ := circuit.New(rCrit, testL, testC)
	src, _ := device.NewStep(testE)

	tr, err := Integrate(p, src, linGrid(t, 50e-3, 2001))
	if err != nil {
		t.Fatal(err)
	}
	if peak := maxOf(tr.VC); peak > testE*(1+1e-6) {
		t.Errorf("critically damped V(C) overshoots: peak %g > %g", peak, testE)
	}
	for k := 1; k < tr.Len(); k++ {
		if tr.VC[k] < tr.VC[k-1]-1e-7 {
			t.Fatalf("V(C) decreases at t=%g", tr.Time[k])
		}
	}
}

func TestUnderdampedOvershootAndEnvelope(t *testing.T) {
	rCrit, _ := circuit.CriticalResistance(testL, testC)
	p, _ := circuit.New(0.2*rCrit, testL, testC)
	d, _ := circuit.Derive(p)
	src, _ := device.NewStep(testE)

	tr, err := Integrate(p, src, linGrid(t, 50e-3, 2001))
	if err != nil {
		t.Fatal(err)
	}

	zeta := d.Zeta
	want := testE * (1 + math.Exp(-zeta*math.Pi/math.Sqrt(1-zeta*zeta)))
	if peak := maxOf(tr.VC); math.Abs(peak-want) > 1e-3*want {
		t.Errorf("peak V(C) = %g, want %g", peak, want)
	}

	for k, tk := range tr.Time {
		bound := testE*math.Exp(-d.DecayRate()*tk)/math.Sqrt(1-zeta*zeta) + 1e-6
		if math.Abs(tr.VC[k]-testE) > bound {
			t.Fatalf("|V(C)-E| = %g exceeds envelope %g at t=%g", math.Abs(tr.VC[k]-testE), bound, tk)
		}
	}
}

func TestUndrivenDecay(t *testing.T) {
	p, _ := circuit.New(40, testL, testC)
	src, _ := device.NewStep(0)
	q0 := 1e-4

	tr, err := Integrate(p, src, linGrid(t, 30e-3, 1501), WithInitialState(q0, 0))
	if err != nil {
		t.Fatal(err)
	}

	a, wd := 200.0, math.Sqrt(1e6-4e4)
	maxErr := 0.0
	for k, tk := range tr.Time {
		q := q0 * math.Exp(-a*tk) * (math.Cos(wd*tk) + a/wd*math.Sin(wd*tk))
		maxErr = math.Max(maxErr, math.Abs(tr.Charge[k]-q))
	}
	if maxErr/q0 > 1e-6 {
		t.Errorf("max charge error relative to Q0: %g", maxErr/q0)
	}
	if tr.Charge[0] != q0 || tr.Current[0] != 0 {
		t.Errorf("initial state (%g, %g), want (%g, 0)", tr.Charge[0], tr.Current[0], q0)
	}
}

func TestElementVoltagesSumToSource(t *testing.T) {
	p, _ := circuit.New(10, testL, testC)
	src, _ := device.NewSinusoidHz(10, 159.15)
	tr, err := Integrate(p, src, linGrid(t, 20e-3, 4001))
	if err != nil {
		t.Fatal(err)
	}

	for k := range tr.Time {
		sum := tr.VR[k] + tr.VLModel[k] + tr.VC[k]
		if math.Abs(sum-tr.VIn[k]) > 1e-9 {
			t.Fatalf("KVL violated at %d: %g != %g", k, sum, tr.VIn[k])
		}
		if math.Abs(tr.VR[k]-p.R*tr.Current[k]) > 1e-12 || math.Abs(tr.VC[k]-tr.Charge[k]/p.C) > 1e-9 {
			t.Fatalf("element voltage mismatch at %d", k)
		}
	}

	// finite difference agrees with the model in the interior
	scale := maxOf(tr.VLModel)
	for k := 1; k < tr.Len()-1; k++ {
		if math.Abs(tr.VL[k]-tr.VLModel[k]) > 1e-3*scale {
			t.Fatalf("V(L) finite difference off at %d: %g vs %g", k, tr.VL[k], tr.VLModel[k])
		}
	}
}

func TestSteadyState(t *testing.T) {
	// driven at resonance: |I| = V0/R once the transient has decayed
	p, _ := circuit.New(10, testL, testC)
	src, _ := device.NewSinusoid(10, 1000)
	g := linGrid(t, 200e-3, 20001)

	tr, err := Integrate(p, src, g)
	if err != nil {
		t.Fatal(err)
	}
	ss, err := tr.SteadyState(src.Omega)
	if err != nil {
		t.Fatal(err)
	}

	from := g[len(g)-1] - 2*src.Period()
	if ss.Time[0] < from || (ss.Time[0]-from) > g[1] {
		t.Errorf("window starts at %g, want first sample >= %g", ss.Time[0], from)
	}
	if ss.Time[ss.Len()-1] != g[len(g)-1] {
		t.Errorf("window ends at %g, want %g", ss.Time[ss.Len()-1], g[len(g)-1])
	}

	i0, _ := p.SteadyStateCurrent(src.Amplitude, src.Omega)
	if amp := Amplitude(ss.Current); math.Abs(amp-i0) > 1e-3*i0 {
		t.Errorf("steady-state current amplitude %g, want %g", amp, i0)
	}

	if _, err := tr.SteadyState(0); !errors.Is(err, circuit.ErrInvalidParameter) {
		t.Errorf("SteadyState(0) err = %v", err)
	}
}

func TestResonantSource(t *testing.T) {
	p, _ := circuit.New(10, testL, testC)
	src, _ := device.NewSinusoidHz(5, 50)

	res, err := ResonantSource(p, src)
	if err != nil {
		t.Fatal(err)
	}
	if res.Amplitude != 5 || math.Abs(res.Omega-1000) > 1e-9 {
		t.Errorf("got %v at %g rad/s, want amplitude 5 at 1000 rad/s", res, res.Omega)
	}

	// at resonance the loop is purely resistive
	z, _ := p.Impedance(res.Omega)
	if math.Abs(z-p.R) > 1e-9 {
		t.Errorf("|Z| at resonance = %g, want R = %g", z, p.R)
	}

	step, _ := device.NewStep(1)
	if _, err := ResonantSource(p, step); !errors.Is(err, circuit.ErrInvalidParameter) {
		t.Errorf("step source err = %v, want ErrInvalidParameter", err)
	}
}

func TestIntegrateGridErrors(t *testing.T) {
	p, _ := circuit.New(10, testL, testC)
	src, _ := device.NewStep(1)

	tests := []struct {
		name  string
		grid  []float64
		index int
	}{
		{"empty", nil, -1},
		{"single point", []float64{0}, -1},
		{"negative", []float64{-1, 0, 1}, 0},
		{"repeated", []float64{0, 1, 1}, 2},
		{"decreasing", []float64{0, 2, 1}, 2},
		{"NaN", []float64{0, math.NaN()}, 1},
		{"Inf", []float64{0, math.Inf(1)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Integrate(p, src, tt.grid)
			if !errors.Is(err, circuit.ErrInvalidParameter) {
				t.Fatalf("err = %v, want ErrInvalidParameter", err)
			}
			var pe *circuit.ParamError
			if !errors.As(err, &pe) || pe.Index != tt.index {
				t.Errorf("err = %v, want grid index %d", err, tt.index)
			}
		})
	}
}

func TestIntegrateInvalidCircuit(t *testing.T) {
	src, _ := device.NewStep(1)
	g := []float64{0, 1}

	if _, err := Integrate(circuit.Params{R: 0, L: 1, C: 1}, src, g); !errors.Is(err, circuit.ErrInvalidParameter) {
		t.Errorf("R=0 err = %v", err)
	}
	if _, err := Integrate(circuit.Params{R: 1, L: 1, C: 1}, nil, g); !errors.Is(err, circuit.ErrInvalidParameter) {
		t.Errorf("nil source err = %v", err)
	}
	p, _ := circuit.New(1, 1, 1)
	if _, err := Integrate(p, src, g, WithInitialState(math.NaN(), 0)); !errors.Is(err, circuit.ErrInvalidParameter) {
		t.Errorf("NaN initial state err = %v", err)
	}
}

func TestIntegrateInstability(t *testing.T) {
	p, _ := circuit.New(10, testL, testC)
	src, _ := device.NewStep(1)
	g := linGrid(t, 1, 11)

	_, err := Integrate(p, src, g, WithIntegrator(ode.NewDormandPrince(ode.Config{MaxStepCount: 5})))
	if !errors.Is(err, circuit.ErrNumericalInstability) {
		t.Fatalf("err = %v, want ErrNumericalInstability", err)
	}
	if !errors.Is(err, ode.ErrMaxSteps) {
		t.Errorf("err = %v does not unwrap to ErrMaxSteps", err)
	}
	var ie *circuit.InstabilityError
	if !errors.As(err, &ie) || ie.Index < 0 || ie.Index >= len(g) {
		t.Errorf("err = %v, want a grid index", err)
	}
}

func TestImplicitIntegrator(t *testing.T) {
	p, _ := circuit.New(40, testL, testC)
	src, _ := device.NewStep(testE)
	g := linGrid(t, 50e-3, 1001)

	for _, method := range []util.IntegrationMethod{util.GearMethod, util.TrapezoidalMethod} {
		tr, err := Integrate(p, src, g, WithIntegrator(ode.NewImplicit(method, 2, 50)))
		if err != nil {
			t.Fatalf("%v: %v", method, err)
		}
		for k, tk := range tr.Time {
			if d := math.Abs(tr.VC[k] - stepVC(p, testE, tk)); d > 1e-3*testE {
				t.Fatalf("%v: V(C) off by %g at t=%g", method, d, tk)
			}
		}
	}
}

func TestTransientAnalysis(t *testing.T) {
	p, _ := circuit.New(10, testL, testC)
	src, _ := device.NewStep(testE)

	var a Analysis = NewTransient(src, 1e-4, 10e-3)
	if err := a.Setup(p); err != nil {
		t.Fatal(err)
	}
	if err := a.Execute(); err != nil {
		t.Fatal(err)
	}
	res := a.GetResults()
	for _, key := range []string{KeyTime, KeyVIn, KeyQ, KeyI, KeyVR, KeyVL, KeyVC} {
		if len(res[key]) != 101 {
			t.Errorf("%s has %d samples, want 101", key, len(res[key]))
		}
	}

	if err := NewTransient(src, 0, 1).Setup(p); !errors.Is(err, circuit.ErrInvalidParameter) {
		t.Errorf("tstep=0 err = %v", err)
	}
}

func TestWindow(t *testing.T) {
	tr := &Trajectory{
		Time:    []float64{0, 1, 2, 3},
		Current: []float64{5, 6, 7, 8},
	}
	w := tr.Window(1.5)
	if w.Len() != 2 || w.Time[0] != 2 || w.Current[1] != 8 {
		t.Errorf("Window(1.5) = %+v", w)
	}
	w.Current[0] = -1
	if tr.Current[2] != 7 {
		t.Error("Window shares storage with the trajectory")
	}
}
