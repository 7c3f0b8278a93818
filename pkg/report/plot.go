package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/edp1096/rlc-spice/pkg/analysis"
)

const plotDPI = 150

type series struct {
	name string
	ys   []float64
}

// points drops samples that cannot be drawn: non-finite values, and
// non-positive abscissae on a log axis.
func points(xs, ys []float64, logX bool) plotter.XYs {
	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		if logX && x <= 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

func linePlot(title, xLabel, yLabel string, xs []float64, logX bool, ss ...series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	if logX {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	for i, s := range ss {
		pts := points(xs, s.ys, logX)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// writeStacked draws plots in one column and encodes the result as PNG.
func writeStacked(w io.Writer, width, height vg.Length, plots ...*plot.Plot) error {
	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(plotDPI))
	dc := draw.New(c)

	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{Rows: len(plots), Cols: 1, PadY: vg.Millimeter * 4, PadX: vg.Millimeter * 2}
	canvases := plot.Align(grid, tiles, dc)
	for i, p := range plots {
		p.Draw(canvases[i][0])
	}

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// WriteTransientPNG plots the element voltages over the source and the loop
// current below them.
func WriteTransientPNG(w io.Writer, tr *analysis.Trajectory, title string) error {
	if tr == nil || tr.Len() == 0 {
		return fmt.Errorf("empty trajectory")
	}

	volts, err := linePlot(title, "time (s)", "voltage (V)", tr.Time, false,
		series{"V(IN)", tr.VIn},
		series{"V(R)", tr.VR},
		series{"V(L)", tr.VL},
		series{"V(C)", tr.VC},
	)
	if err != nil {
		return err
	}
	amps, err := linePlot("Loop current", "time (s)", "current (A)", tr.Time, false,
		series{"I", tr.Current},
	)
	if err != nil {
		return err
	}
	return writeStacked(w, 8*vg.Inch, 7*vg.Inch, volts, amps)
}

// WriteBodePNG plots magnitude and phase against frequency in Hz on a log axis.
func WriteBodePNG(w io.Writer, fr *analysis.FrequencyResponse, name string) error {
	if fr == nil || fr.Len() == 0 {
		return fmt.Errorf("empty frequency response")
	}
	hz := fr.FrequencyHz()

	mag, err := linePlot("Bode "+name, "frequency (Hz)", "magnitude (dB)", hz, true,
		series{name, fr.MagnitudeDB},
	)
	if err != nil {
		return err
	}
	phase, err := linePlot("", "frequency (Hz)", "phase (deg)", hz, true,
		series{name, fr.PhaseDeg},
	)
	if err != nil {
		return err
	}
	return writeStacked(w, 8*vg.Inch, 7*vg.Inch, mag, phase)
}

func PlotTransient(tr *analysis.Trajectory, title, filename string) error {
	return SaveFile(filename, func(w io.Writer) error { return WriteTransientPNG(w, tr, title) })
}

func PlotBode(fr *analysis.FrequencyResponse, name, filename string) error {
	return SaveFile(filename, func(w io.Writer) error { return WriteBodePNG(w, fr, name) })
}

// SaveFile creates filename, with its directory, and hands it to write. The
// file is closed on every path; a write error takes precedence over the
// close error.
func SaveFile(filename string, write func(io.Writer) error) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
