// Package plotting turns sweep results into figures: terminal voltage
// with a zoomed inset, pointwise voltage error against the direct
// formulation, and solve time against grid resolution. Figures are plain
// values; render.go draws them with gonum/plot.
package plotting

import (
	"errors"
	"fmt"
	"math"
)

var ErrEmptySelection = errors.New("plotting: nothing selected to plot")

// Series is one line. A series with an empty Label has no legend entry.
type Series struct {
	Label string
	Style Style
	X, Y  []float64
}

// Axis configures one panel axis. Min and Max both zero fit the data.
// Ticks are extra labelled tick values, such as the swept grid sizes.
type Axis struct {
	Label string
	Min   float64
	Max   float64
	Log   bool
	Ticks []float64
}

func (a Axis) Fixed() bool { return a.Max > a.Min }

// Legend placement inside a panel.
type Legend struct {
	Top  bool
	Left bool
}

type Panel struct {
	Title  string
	X, Y   Axis
	Series []Series
	Legend Legend
	// Inset, if set, is drawn in the top-right corner scaled by
	// InsetFraction of the panel in each direction.
	Inset         *Panel
	InsetFraction float64
}

// HasLegend reports whether any series carries a label.
func (p *Panel) HasLegend() bool {
	for _, s := range p.Series {
		if s.Label != "" {
			return true
		}
	}
	return false
}

// Figure is a grid of panels, filled row by row.
type Figure struct {
	Name   string
	Rows   int
	Cols   int
	Panels []*Panel
}

// Layout returns a near-square grid for n panels:
// rows = floor(n / sqrt(n)), cols = ceil(n / rows).
func Layout(n int) (rows, cols int, err error) {
	if n <= 0 {
		return 0, 0, fmt.Errorf("%w: %d panels", ErrEmptySelection, n)
	}
	rows = int(math.Floor(float64(n) / math.Sqrt(float64(n))))
	cols = int(math.Ceil(float64(n) / float64(rows)))
	return rows, cols, nil
}

func newFigure(name string, panels []*Panel) (*Figure, error) {
	rows, cols, err := Layout(len(panels))
	if err != nil {
		return nil, err
	}
	return &Figure{Name: name, Rows: rows, Cols: cols, Panels: panels}, nil
}

// panelLetter labels panels (a), (b), ...
func panelLetter(k int) string {
	return fmt.Sprintf("(%c)", rune('a'+k%26))
}
