package plotting

import (
	"errors"
	"fmt"

	"github.com/san-kum/capsim/internal/battery"
	"github.com/san-kum/capsim/internal/compare"
	"github.com/san-kum/capsim/internal/metrics"
)

var ErrNoBaseline = errors.New("plotting: no baseline variant")

// ErrorSummary condenses one variant's voltage error at one C-rate.
type ErrorSummary struct {
	Param   float64
	Variant battery.Variant
	RMSE    float64
	Max     float64
}

// Baseline returns the single entry with capacitance disabled.
func Baseline(entries []compare.Entry) (compare.Entry, error) {
	var found []compare.Entry
	for _, e := range entries {
		if !e.Variant.Capacitance.Enabled() {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return compare.Entry{}, fmt.Errorf("%w: no variant has capacitance disabled", ErrNoBaseline)
	default:
		return compare.Entry{}, fmt.Errorf("%w: %d variants have capacitance disabled", ErrNoBaseline, len(found))
	}
}

// Errors plots |V_variant - V_baseline| against time on log-log axes for
// every non-baseline variant at every selected C-rate, all in one panel.
// Lines from the first C-rate carry the legend.
func Errors(table compare.Table, tEval, crates []float64, styles StyleMap) (*Figure, []ErrorSummary, error) {
	sub := table.Restrict(crates)
	params := sub.Params()
	if len(params) == 0 {
		return nil, nil, fmt.Errorf("%w: none of C-rates %v were computed", ErrEmptySelection, crates)
	}

	panel := &Panel{
		X:      Axis{Label: "Time [s]", Log: true},
		Y:      Axis{Label: "Error [V]", Log: true},
		Legend: Legend{Top: true},
	}
	var summary []ErrorSummary

	for k, crate := range params {
		base, err := Baseline(sub[crate])
		if err != nil {
			return nil, nil, fmt.Errorf("%g C: %w", crate, err)
		}
		vBase, err := base.Solution.Eval(battery.VarVoltage, tEval)
		if err != nil {
			return nil, nil, err
		}

		for _, e := range sub[crate] {
			if e.Variant == base.Variant {
				continue
			}
			style, err := styles.Get(e.Variant)
			if err != nil {
				return nil, nil, err
			}
			v, err := e.Solution.Eval(battery.VarVoltage, tEval)
			if err != nil {
				return nil, nil, err
			}
			x, err := e.Solution.Eval(battery.VarTimeSeconds, tEval)
			if err != nil {
				return nil, nil, err
			}
			diff, err := metrics.PointwiseError(v, vBase)
			if err != nil {
				return nil, nil, err
			}
			rmse, err := metrics.RMSE(v, vBase)
			if err != nil {
				return nil, nil, err
			}

			s := Series{Style: style, X: x, Y: diff}
			if k == 0 {
				s.Label = e.Variant.Name
			}
			panel.Series = append(panel.Series, s)
			summary = append(summary, ErrorSummary{
				Param:   crate,
				Variant: e.Variant,
				RMSE:    rmse,
				Max:     metrics.MaxFinite(diff),
			})
		}
	}

	fig, err := newFigure("capacitance_errors_voltages", []*Panel{panel})
	if err != nil {
		return nil, nil, err
	}
	return fig, summary, nil
}
