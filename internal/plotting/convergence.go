package plotting

import (
	"fmt"

	"github.com/san-kum/capsim/internal/battery"
	"github.com/san-kum/capsim/internal/compare"
)

// Timing is one variant's solve time at each grid resolution.
type Timing struct {
	Variant battery.Variant
	Npts    []float64
	Seconds []float64
}

// SolveTimes extracts solve times per variant, ordered by increasing
// resolution. Variants are matched by identity, so entry order within the
// table does not matter. A nil variants list uses every variant in the
// table.
func SolveTimes(table compare.Table, variants []battery.Variant) ([]Timing, error) {
	params := table.Params()
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: empty convergence table", ErrEmptySelection)
	}
	if variants == nil {
		variants = table.Variants()
	}

	out := make([]Timing, 0, len(variants))
	for _, v := range variants {
		t := Timing{
			Variant: v,
			Npts:    make([]float64, 0, len(params)),
			Seconds: make([]float64, 0, len(params)),
		}
		for _, n := range params {
			sol, ok := table.Lookup(n, v)
			if !ok || sol == nil {
				return nil, fmt.Errorf("%w: %s has no solution at npts=%g", ErrMissingVariant, v, n)
			}
			t.Npts = append(t.Npts, n)
			t.Seconds = append(t.Seconds, sol.SolveTime.Seconds())
		}
		out = append(out, t)
	}
	return out, nil
}

// Convergence plots solve time against the number of grid points on
// log-log axes, one line per variant labelled with its model name.
func Convergence(table compare.Table, variants []battery.Variant, styles StyleMap) (*Figure, []Timing, error) {
	timings, err := SolveTimes(table, variants)
	if err != nil {
		return nil, nil, err
	}

	panel := &Panel{
		X:      Axis{Label: "Number of grid points", Log: true, Ticks: table.Params()},
		Y:      Axis{Label: "Time [s]", Log: true},
		Legend: Legend{Top: true, Left: true},
	}
	for _, t := range timings {
		style, err := styles.Get(t.Variant)
		if err != nil {
			return nil, nil, err
		}
		panel.Series = append(panel.Series, Series{
			Label: t.Variant.Name,
			Style: style,
			X:     t.Npts,
			Y:     t.Seconds,
		})
	}

	fig, err := newFigure("capacitance_convergence_study", []*Panel{panel})
	if err != nil {
		return nil, nil, err
	}
	return fig, timings, nil
}
