// Package tui shows figures in the terminal and blocks until the user
// quits.
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/capsim/internal/plotting"
	"github.com/san-kum/capsim/internal/viz"
)

const (
	minWidth  = 40
	minHeight = 10
)

// page is one chart of the viewer. Insets get their own page and borrow
// the legend and axis labels of their panel.
type page struct {
	title  string
	panel  *plotting.Panel
	legend *plotting.Panel
}

// Model is the bubbletea model of the figure viewer: one panel or inset
// per page.
type Model struct {
	pages         []page
	cursor        int
	width, height int
}

func New(figs ...*plotting.Figure) Model {
	m := Model{width: 100, height: 30}
	for _, fig := range figs {
		if fig == nil {
			continue
		}
		for _, panel := range fig.Panels {
			title := fig.Name
			if panel.Title != "" {
				title += " " + panel.Title
			}
			m.pages = append(m.pages, page{title: title, panel: panel, legend: panel})
			if panel.Inset != nil && len(panel.Inset.Series) > 0 {
				m.pages = append(m.pages, page{title: title + " (inset)", panel: insetPanel(panel), legend: panel})
			}
		}
	}
	return m
}

// Show runs the viewer on the terminal until the user quits.
func Show(figs ...*plotting.Figure) error {
	m := New(figs...)
	if len(m.pages) == 0 {
		return fmt.Errorf("tui: nothing to show")
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "right", "l", "n", " ":
			if m.cursor < len(m.pages)-1 {
				m.cursor++
			}
		case "left", "h", "p":
			if m.cursor > 0 {
				m.cursor--
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = max(len(m.pages)-1, 0)
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	}
	return m, nil
}

func (m Model) Cursor() int { return m.cursor }

// Pages is the number of charts the viewer pages through.
func (m Model) Pages() int { return len(m.pages) }

func (m Model) View() string {
	if len(m.pages) == 0 {
		return viz.Subtle.Render("nothing to show") + "\n"
	}
	pg := m.pages[m.cursor]

	var b strings.Builder
	b.WriteString(viz.HeaderStyle.Render(pg.title))
	b.WriteString("\n\n")
	b.WriteString(renderPanel(pg.panel, max(m.width-14, minWidth), max(m.height-12, minHeight)))
	b.WriteString("\n\n")
	b.WriteString(legend(pg.legend))
	b.WriteString("\n")
	b.WriteString(viz.Separator(min(m.width, 80)))
	b.WriteString("\n")
	b.WriteString(viz.KeyHint.Render(fmt.Sprintf("page %d/%d  ←/→ switch panel  q quit", m.cursor+1, len(m.pages))))
	b.WriteString("\n")
	return b.String()
}

// insetPanel is the inset of parent with the parent's axis labels.
func insetPanel(parent *plotting.Panel) *plotting.Panel {
	in := *parent.Inset
	in.X.Label = parent.X.Label
	in.Y.Label = parent.Y.Label
	return &in
}

// renderPanel draws the panel's series with asciigraph on width columns
// spaced uniformly in x. Log axes are drawn as log10 of the values.
func renderPanel(panel *plotting.Panel, width, height int) string {
	lo, hi, ok := xRange(panel)
	if !ok {
		return viz.Subtle.Render("no finite data in this panel")
	}

	var data [][]float64
	var colors []asciigraph.AnsiColor
	for _, s := range panel.Series {
		ys := resample(transform(s.X, panel.X.Log), transform(s.Y, panel.Y.Log), lo, hi, width)
		if !anyFinite(ys) {
			continue
		}
		data = append(data, ys)
		colors = append(colors, ansiColor(s.Style))
	}
	if len(data) == 0 {
		return viz.Subtle.Render("no finite data in this panel")
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption(panel, lo, hi)),
	}
	if panel.Y.Fixed() && !panel.Y.Log {
		opts = append(opts, asciigraph.LowerBound(panel.Y.Min), asciigraph.UpperBound(panel.Y.Max))
	}
	return asciigraph.PlotMany(data, opts...)
}

// xRange is the drawn x interval, after the log10 transform on log axes.
func xRange(panel *plotting.Panel) (lo, hi float64, ok bool) {
	if panel.X.Fixed() && !panel.X.Log {
		return panel.X.Min, panel.X.Max, true
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range panel.Series {
		xs := transform(s.X, panel.X.Log)
		ys := transform(s.Y, panel.Y.Log)
		for i := range min(len(xs), len(ys)) {
			if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
				continue
			}
			lo, hi = math.Min(lo, xs[i]), math.Max(hi, xs[i])
		}
	}
	if lo > hi {
		return 0, 0, false
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	return lo, hi, true
}

// resample evaluates (xs, ys) at n columns spaced uniformly over
// [lo, hi], interpolating linearly within runs of finite points. Columns
// outside every run are NaN; a single isolated point lands on its nearest
// column.
func resample(xs, ys []float64, lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if n < 2 || !(hi > lo) {
		return out
	}
	column := func(i int) float64 { return lo + (hi-lo)*float64(i)/float64(n-1) }

	for _, r := range runs(xs, ys) {
		if len(r.x) == 1 {
			i := int(math.Round((r.x[0] - lo) / (hi - lo) * float64(n-1)))
			if i >= 0 && i < n {
				out[i] = r.y[0]
			}
			continue
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(r.x, r.y); err != nil {
			continue
		}
		first, last := r.x[0], r.x[len(r.x)-1]
		for i := range out {
			if x := column(i); x >= first && x <= last {
				out[i] = pl.Predict(x)
			}
		}
	}
	return out
}

type run struct{ x, y []float64 }

// runs splits the points at non-finite values and at x that does not
// increase.
func runs(xs, ys []float64) []run {
	var out []run
	var cur run
	flush := func() {
		if len(cur.x) > 0 {
			out = append(out, cur)
		}
		cur = run{}
	}
	for i := range min(len(xs), len(ys)) {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			flush()
			continue
		}
		if n := len(cur.x); n > 0 && x <= cur.x[n-1] {
			flush()
		}
		cur.x = append(cur.x, x)
		cur.y = append(cur.y, y)
	}
	flush()
	return out
}

func caption(panel *plotting.Panel, lo, hi float64) string {
	y := panel.Y.Label
	if y == "" {
		y = "value"
	}
	if panel.Y.Log {
		y = "log10 " + y
	}
	x := panel.X.Label
	if x == "" {
		x = "x"
	}
	if panel.X.Log {
		x = "log10 " + x
	}
	return fmt.Sprintf("%s vs %s from %.3g to %.3g", y, x, lo, hi)
}

func legend(panel *plotting.Panel) string {
	var parts []string
	for _, s := range panel.Series {
		if s.Label == "" {
			continue
		}
		parts = append(parts, viz.Swatch(s.Style.Hex(), s.Style.Dash)+" "+s.Label)
	}
	return strings.Join(parts, "   ")
}

func transform(ys []float64, log bool) []float64 {
	out := make([]float64, len(ys))
	for i, y := range ys {
		switch {
		case math.IsInf(y, 0):
			out[i] = math.NaN()
		case log && y <= 0:
			out[i] = math.NaN()
		case log:
			out[i] = math.Log10(y)
		default:
			out[i] = y
		}
	}
	return out
}

func anyFinite(ys []float64) bool {
	for _, y := range ys {
		if !math.IsNaN(y) {
			return true
		}
	}
	return false
}

func ansiColor(s plotting.Style) asciigraph.AnsiColor {
	switch {
	case s.Color.R > s.Color.G && s.Color.R > s.Color.B:
		return asciigraph.Red
	case s.Color.B > s.Color.R && s.Color.B > s.Color.G:
		return asciigraph.Blue
	case s.Color.G > s.Color.R && s.Color.G > s.Color.B:
		return asciigraph.Green
	default:
		// black lines on a dark terminal
		return asciigraph.Default
	}
}
