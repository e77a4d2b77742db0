package plotting

import (
	"fmt"

	"github.com/san-kum/capsim/internal/battery"
	"github.com/san-kum/capsim/internal/compare"
	"github.com/san-kum/capsim/internal/metrics"
)

// VoltageOptions control the voltage comparison figure.
type VoltageOptions struct {
	// Scale converts cell voltage to pack voltage.
	Scale         float64
	YMin          float64
	YMax          float64
	InsetSamples  int
	InsetFraction float64
}

func DefaultVoltageOptions() VoltageOptions {
	return VoltageOptions{
		Scale:         6,
		YMin:          10.5,
		YMax:          13,
		InsetSamples:  40,
		InsetFraction: 0.4,
	}
}

// Voltages draws one panel per selected C-rate with every variant's
// terminal voltage against time and an inset over the first
// InsetSamples grid points. Only the first panel labels its lines and
// only left-column panels label the voltage axis.
func Voltages(table compare.Table, tEval, crates []float64, styles StyleMap, opts VoltageOptions) (*Figure, error) {
	sub := table.Restrict(crates)
	params := sub.Params()
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: none of C-rates %v were computed", ErrEmptySelection, crates)
	}
	_, cols, err := Layout(len(params))
	if err != nil {
		return nil, err
	}

	insetGrid := tEval
	if opts.InsetSamples < len(tEval) {
		insetGrid = tEval[:opts.InsetSamples]
	}

	panels := make([]*Panel, 0, len(params))
	for k, crate := range params {
		panel := &Panel{
			X:             Axis{Label: "Time [s]"},
			Y:             Axis{Min: opts.YMin, Max: opts.YMax},
			Legend:        Legend{Left: true},
			Inset:         &Panel{},
			InsetFraction: opts.InsetFraction,
		}
		if len(params) > 1 {
			panel.Title = fmt.Sprintf("%s %g C", panelLetter(k), crate)
		}
		if k%cols == 0 {
			panel.Y.Label = "Voltage [V]"
		}

		tMax := 0.0
		for _, e := range sub[crate] {
			style, err := styles.Get(e.Variant)
			if err != nil {
				return nil, err
			}
			x, y, err := voltageSeries(e.Solution, tEval, opts.Scale)
			if err != nil {
				return nil, fmt.Errorf("%g C: %w", crate, err)
			}
			if m := metrics.MaxFinite(x); m > tMax {
				tMax = m
			}

			s := Series{Style: style, X: x, Y: y}
			if k == 0 {
				s.Label = e.Variant.Name
			}
			panel.Series = append(panel.Series, s)

			ix, iy, err := voltageSeries(e.Solution, insetGrid, opts.Scale)
			if err != nil {
				return nil, err
			}
			panel.Inset.Series = append(panel.Inset.Series, Series{Style: style, X: ix, Y: iy})
		}
		panel.X.Max = tMax
		panels = append(panels, panel)
	}
	return newFigure("capacitance_voltage_comparison", panels)
}

func voltageSeries(sol *battery.Solution, tEval []float64, scale float64) ([]float64, []float64, error) {
	x, err := sol.Eval(battery.VarTimeSeconds, tEval)
	if err != nil {
		return nil, nil, err
	}
	y, err := sol.Eval(battery.VarVoltage, tEval)
	if err != nil {
		return nil, nil, err
	}
	for i := range y {
		y[i] *= scale
	}
	return x, y, nil
}
