package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/edp1096/rlc-spice/pkg/analysis"
	"github.com/edp1096/rlc-spice/pkg/util"
)

func newLineChart(title, subtitle, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  yName,
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)
	return line
}

// lineData maps non-finite samples to gaps; JSON cannot encode them.
func lineData(ys []float64) []opts.LineData {
	items := make([]opts.LineData, len(ys))
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			items[i].Value = nil
			continue
		}
		items[i].Value = y
	}
	return items
}

func axisLabels(xs []float64, unit string) []string {
	labels := make([]string, len(xs))
	for i, x := range xs {
		labels[i] = util.FormatValueFactor(x, unit)
	}
	return labels
}

// RenderCharts writes an HTML page with the transient waveforms and the
// frequency response. Either argument may be nil.
func RenderCharts(w io.Writer, tr *analysis.Trajectory, fr *analysis.FrequencyResponse, name string) error {
	if tr == nil && fr == nil {
		return fmt.Errorf("nothing to render")
	}

	page := components.NewPage()
	page.PageTitle = "RLC response"

	if tr != nil {
		xs := axisLabels(tr.Time, "s")

		lineV := newLineChart("Voltages", "element voltages over time", "V")
		lineV.SetXAxis(xs).
			AddSeries("V(IN)", lineData(tr.VIn)).
			AddSeries("V(R)", lineData(tr.VR)).
			AddSeries("V(L)", lineData(tr.VL)).
			AddSeries("V(C)", lineData(tr.VC))

		lineA := newLineChart("Current", "loop current over time", "A")
		lineA.SetXAxis(xs).AddSeries("I", lineData(tr.Current))

		page.AddCharts(lineV, lineA)
	}

	if fr != nil {
		xs := axisLabels(fr.FrequencyHz(), "Hz")

		lineM := newLineChart("Magnitude", name, "dB")
		lineM.SetXAxis(xs).AddSeries(name, lineData(fr.MagnitudeDB))

		lineP := newLineChart("Phase", name, "deg")
		lineP.SetXAxis(xs).AddSeries(name, lineData(fr.PhaseDeg))

		page.AddCharts(lineM, lineP)
	}

	return page.Render(w)
}
