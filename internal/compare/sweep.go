// Package compare runs the parameter sweeps behind both analyses: every
// model variant at several C-rates, and every variant at one C-rate on a
// series of grid resolutions.
package compare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/capsim/internal/battery"
)

var ErrInvalidSweep = errors.New("compare: invalid sweep")

// Options control how a sweep is solved.
type Options struct {
	Solver battery.Solver
	// Workers bounds concurrent solves in ModelComparison. Values below 2
	// solve sequentially.
	Workers int
}

func DefaultOptions() Options {
	return Options{Solver: battery.DefaultSolver(), Workers: 1}
}

// ModelComparison solves every model at every C-rate over the horizon of
// tEval. It returns the table and the evaluation grid to use with it.
func ModelComparison(ctx context.Context, models []*battery.Model, crates, tEval []float64, opts Options) (Table, []float64, error) {
	if err := checkSweep(models, crates, tEval); err != nil {
		return nil, nil, err
	}
	tEnd := tEval[len(tEval)-1]

	rows := make([][]Entry, len(crates))
	for i := range rows {
		rows[i] = make([]Entry, len(models))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, crate := range crates {
		for j, m := range models {
			g.Go(func() error {
				sol, err := solveLogged(gctx, m, crate, tEnd, opts.Solver, "crate", crate)
				if err != nil {
					return err
				}
				rows[i][j] = Entry{Variant: m.Variant(), Solution: sol}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	table := make(Table, len(crates))
	for i, crate := range crates {
		table[crate] = rows[i]
	}
	return table, copyGrid(tEval), nil
}

// ConvergenceStudy solves every model at one C-rate for each grid point
// count in npts, one solve at a time so solve times are comparable. Table
// keys are the grid point counts.
func ConvergenceStudy(ctx context.Context, models []*battery.Model, crate float64, tEval []float64, npts []int, opts Options) (Table, []float64, error) {
	params := make([]float64, len(npts))
	for i, n := range npts {
		if n < battery.MinNpts {
			return nil, nil, fmt.Errorf("%w: npts %d below %d", ErrInvalidSweep, n, battery.MinNpts)
		}
		params[i] = float64(n)
	}
	if err := checkSweep(models, params, tEval); err != nil {
		return nil, nil, err
	}
	if !(crate > 0) {
		return nil, nil, fmt.Errorf("%w: C-rate must be positive, got %g", ErrInvalidSweep, crate)
	}
	tEnd := tEval[len(tEval)-1]

	table := make(Table, len(npts))
	for _, n := range npts {
		row := make([]Entry, 0, len(models))
		for _, base := range models {
			m, err := base.WithNpts(n)
			if err != nil {
				return nil, nil, err
			}
			sol, err := solveLogged(ctx, m, crate, tEnd, opts.Solver, "npts", n)
			if err != nil {
				return nil, nil, err
			}
			row = append(row, Entry{Variant: m.Variant(), Solution: sol})
		}
		table[float64(n)] = row
	}
	return table, copyGrid(tEval), nil
}

func solveLogged(ctx context.Context, m *battery.Model, crate, tEnd float64, solver battery.Solver, key string, value any) (*battery.Solution, error) {
	start := time.Now()
	sol, err := m.Solve(ctx, crate, tEnd, solver)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"model":   m.Name(),
		key:       value,
		"elapsed": time.Since(start).Round(time.Microsecond),
	}).Info("solved model")
	return sol, nil
}

func checkSweep(models []*battery.Model, params, tEval []float64) error {
	if len(models) == 0 {
		return fmt.Errorf("%w: no models", ErrInvalidSweep)
	}
	if len(params) == 0 {
		return fmt.Errorf("%w: no sweep values", ErrInvalidSweep)
	}
	seen := make(map[float64]bool, len(params))
	for _, p := range params {
		if !(p > 0) {
			return fmt.Errorf("%w: sweep value %g must be positive", ErrInvalidSweep, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate sweep value %g", ErrInvalidSweep, p)
		}
		seen[p] = true
	}
	names := make(map[battery.Variant]bool, len(models))
	for _, m := range models {
		if names[m.Variant()] {
			return fmt.Errorf("%w: duplicate model %q", ErrInvalidSweep, m.Name())
		}
		names[m.Variant()] = true
	}
	return validateGrid(tEval)
}

func copyGrid(tEval []float64) []float64 {
	out := make([]float64, len(tEval))
	copy(out, tEval)
	return out
}
