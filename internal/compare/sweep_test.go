package compare

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/capsim/internal/battery"
)

func testModels(t *testing.T, npts int) []*battery.Model {
	t.Helper()
	models, err := battery.DefaultModels(npts, battery.DefaultParams())
	require.NoError(t, err)
	return models
}

func shortGrid() []float64 {
	return []float64{0, 1e-5, 1e-3, 0.05, 0.1}
}

func TestDefaultEvalGrid(t *testing.T) {
	t.Parallel()
	grid := DefaultEvalGrid()
	require.Len(t, grid, 149)
	assert.InDelta(t, 1e-6, grid[0], 1e-18)
	assert.InDelta(t, 1.0, grid[len(grid)-1], 1e-12)
	assert.True(t, sort.SliceIsSorted(grid, func(i, j int) bool { return grid[i] < grid[j] }))
	for i := 1; i < len(grid); i++ {
		assert.Greater(t, grid[i], grid[i-1], "index %d", i)
	}
}

func TestGridSpec_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		mod  func(*GridSpec)
	}{
		{"too few log points", func(g *GridSpec) { g.LogPoints = 1 }},
		{"too few lin points", func(g *GridSpec) { g.LinPoints = 0 }},
		{"reversed log", func(g *GridSpec) { g.LogEnd = g.LogStart - 1 }},
		{"overlapping segments", func(g *GridSpec) { g.LogEnd = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGridSpec()
			tt.mod(&g)
			_, err := g.Build()
			assert.ErrorIs(t, err, ErrInvalidSweep)
		})
	}
}

func TestModelComparison(t *testing.T) {
	t.Parallel()
	models := testModels(t, 8)
	crates := []float64{1, 2}
	grid := shortGrid()

	table, tEval, err := ModelComparison(context.Background(), models, crates, grid, Options{
		Solver:  battery.DefaultSolver(),
		Workers: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, grid, tEval)
	assert.Equal(t, crates, table.Params())

	for _, crate := range crates {
		entries := table[crate]
		require.Len(t, entries, len(models))
		for i, m := range models {
			assert.Equal(t, m.Variant(), entries[i].Variant)
			require.NotNil(t, entries[i].Solution)
			assert.Equal(t, crate, entries[i].Solution.Crate)
		}
	}

	want := make([]battery.Variant, len(models))
	for i, m := range models {
		want[i] = m.Variant()
	}
	assert.Equal(t, want, table.Variants())
}

func TestModelComparison_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()
	models := testModels(t, 6)
	grid := shortGrid()
	crates := []float64{0.5, 1}

	seq, _, err := ModelComparison(context.Background(), models, crates, grid, DefaultOptions())
	require.NoError(t, err)
	par, _, err := ModelComparison(context.Background(), models, crates, grid, Options{Solver: battery.DefaultSolver(), Workers: 4})
	require.NoError(t, err)

	for _, crate := range crates {
		for i := range models {
			a, err := seq[crate][i].Solution.Eval(battery.VarVoltage, grid)
			require.NoError(t, err)
			b, err := par[crate][i].Solution.Eval(battery.VarVoltage, grid)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		}
	}
}

func TestModelComparison_InvalidSweep(t *testing.T) {
	t.Parallel()
	models := testModels(t, 5)
	ctx := context.Background()

	tests := []struct {
		name   string
		models []*battery.Model
		crates []float64
		grid   []float64
	}{
		{"no models", nil, []float64{1}, shortGrid()},
		{"no crates", models, nil, shortGrid()},
		{"duplicate crate", models, []float64{1, 1}, shortGrid()},
		{"zero crate", models, []float64{0}, shortGrid()},
		{"duplicate model", []*battery.Model{models[0], models[0]}, []float64{1}, shortGrid()},
		{"empty grid", models, []float64{1}, nil},
		{"unsorted grid", models, []float64{1}, []float64{0, 0.2, 0.1}},
		{"grid ends at zero", models, []float64{1}, []float64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ModelComparison(ctx, tt.models, tt.crates, tt.grid, DefaultOptions())
			assert.ErrorIs(t, err, ErrInvalidSweep)
		})
	}
}

func TestModelComparison_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := ModelComparison(ctx, testModels(t, 5), []float64{1}, shortGrid(), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvergenceStudy(t *testing.T) {
	t.Parallel()
	models := testModels(t, 20)
	npts := []int{10, 30, 50}

	table, _, err := ConvergenceStudy(context.Background(), models, 1, shortGrid(), npts, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 30, 50}, table.Params())

	for _, n := range npts {
		entries := table[float64(n)]
		require.Len(t, entries, len(models))
		for i, e := range entries {
			assert.Equal(t, models[i].Variant(), e.Variant)
			assert.Equal(t, n, e.Solution.Npts)
			assert.Positive(t, int64(e.Solution.SolveTime))
		}
	}

	sol, ok := table.Lookup(30, models[1].Variant())
	require.True(t, ok)
	assert.Equal(t, 30, sol.Npts)
	_, ok = table.Lookup(40, models[1].Variant())
	assert.False(t, ok)
}

func TestConvergenceStudy_Invalid(t *testing.T) {
	t.Parallel()
	models := testModels(t, 5)
	ctx := context.Background()

	_, _, err := ConvergenceStudy(ctx, models, 1, shortGrid(), []int{10, 2}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidSweep)
	_, _, err = ConvergenceStudy(ctx, models, 1, shortGrid(), []int{10, 10}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidSweep)
	_, _, err = ConvergenceStudy(ctx, models, 0, shortGrid(), []int{10}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidSweep)
}

func TestTable_Restrict(t *testing.T) {
	t.Parallel()
	v := battery.Variant{Name: "a"}
	table := Table{
		1:   {{Variant: v}},
		2:   {{Variant: v}},
		2.5: {{Variant: v}},
	}
	sub := table.Restrict([]float64{2.5, 1, 7})
	assert.Equal(t, []float64{1, 2.5}, sub.Params())
	assert.Len(t, table, 3)
}
