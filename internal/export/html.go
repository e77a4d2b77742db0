package export

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/san-kum/capsim/internal/plotting"
)

// HTML writes one interactive line chart per panel of each figure.
// Insets are replaced by zooming.
func HTML(w io.Writer, figs ...*plotting.Figure) error {
	page := components.NewPage()
	page.PageTitle = "capsim"

	for _, fig := range figs {
		for i, panel := range fig.Panels {
			page.AddCharts(lineChart(fig, i, panel))
		}
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("export: render html: %w", err)
	}
	return nil
}

func lineChart(fig *plotting.Figure, i int, panel *plotting.Panel) *charts.Line {
	title := fig.Name
	if panel.Title != "" {
		title = fmt.Sprintf("%s %s", fig.Name, panel.Title)
	} else if len(fig.Panels) > 1 {
		title = fmt.Sprintf("%s #%d", fig.Name, i+1)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(xAxis(panel.X)),
		charts.WithYAxisOpts(yAxis(panel.Y)),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", XAxisIndex: []int{0}}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
	)

	for j, s := range panel.Series {
		name := s.Label
		if name == "" {
			name = fmt.Sprintf("series %d", j+1)
		}
		line.AddSeries(name, lineData(s, panel.X.Log, panel.Y.Log),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{
				Color: s.Style.Hex(),
				Type:  s.Style.Dash,
				Width: 2,
			}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Style.Hex()}),
		)
	}
	return line
}

func axisType(log bool) string {
	if log {
		return "log"
	}
	return "value"
}

func xAxis(a plotting.Axis) opts.XAxis {
	x := opts.XAxis{Name: a.Label, Type: axisType(a.Log), NameLocation: "middle", NameGap: 28}
	if a.Fixed() {
		x.Min, x.Max = a.Min, a.Max
	}
	return x
}

func yAxis(a plotting.Axis) opts.YAxis {
	y := opts.YAxis{Name: a.Label, Type: axisType(a.Log), Scale: opts.Bool(true)}
	if a.Fixed() {
		y.Min, y.Max = a.Min, a.Max
	}
	return y
}

// lineData keeps the points a chart can draw; echarts cannot take NaN
// through JSON.
func lineData(s plotting.Series, logX, logY bool) []opts.LineData {
	n := min(len(s.X), len(s.Y))
	data := make([]opts.LineData, 0, n)
	for i := 0; i < n; i++ {
		x, y := s.X[i], s.Y[i]
		if !finite(x) || !finite(y) || (logX && x <= 0) || (logY && y <= 0) {
			continue
		}
		data = append(data, opts.LineData{Value: []float64{x, y}})
	}
	return data
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
