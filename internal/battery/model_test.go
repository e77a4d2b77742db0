package battery

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solveDefaults(t *testing.T, crate float64, npts int) map[Capacitance]*Solution {
	t.Helper()
	models, err := DefaultModels(npts, DefaultParams())
	require.NoError(t, err)

	out := make(map[Capacitance]*Solution, len(models))
	for _, m := range models {
		sol, err := m.Solve(context.Background(), crate, 1.0, DefaultSolver())
		require.NoError(t, err, m.Name())
		out[m.Options().Capacitance] = sol
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		model   string
		opts    Options
		wantErr bool
	}{
		{"defaults", "m", Options{}, false},
		{"differential", "m", Options{Capacitance: CapacitanceDifferential, Npts: 10}, false},
		{"none spelling", "m", Options{Capacitance: "none"}, false},
		{"unknown capacitance", "m", Options{Capacitance: "quantum"}, true},
		{"grid too small", "m", Options{Npts: 2}, true},
		{"negative grid", "m", Options{Npts: -4}, true},
		{"empty name", "", Options{}, true},
		{"bad params", "m", Options{Params: Params{Tau: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.model, tt.opts)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
				return
			}
			require.NoError(t, err)
			assert.GreaterOrEqual(t, m.Npts(), MinNpts)
		})
	}
}

func TestNew_NoneSpellingsNormalize(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "false", "none"} {
		m, err := New("m", Options{Capacitance: Capacitance(s)})
		require.NoError(t, err)
		assert.Equal(t, CapacitanceNone, m.Options().Capacitance)
		assert.False(t, m.Options().Capacitance.Enabled())
	}
}

func TestDefaultModels_Order(t *testing.T) {
	t.Parallel()
	models, err := DefaultModels(10, DefaultParams())
	require.NoError(t, err)
	require.Len(t, models, 3)

	assert.Equal(t, Variant{NameDirect, CapacitanceNone}, models[0].Variant())
	assert.Equal(t, Variant{NameDifferential, CapacitanceDifferential}, models[1].Variant())
	assert.Equal(t, Variant{NameAlgebraic, CapacitanceAlgebraic}, models[2].Variant())
	for _, m := range models {
		assert.Equal(t, 10, m.Npts())
	}
}

func TestWithNpts_Copies(t *testing.T) {
	t.Parallel()
	m, err := New("m", Options{Capacitance: CapacitanceAlgebraic, Npts: 10})
	require.NoError(t, err)

	m30, err := m.WithNpts(30)
	require.NoError(t, err)
	assert.Equal(t, 10, m.Npts())
	assert.Equal(t, 30, m30.Npts())
	assert.Equal(t, m.Variant(), m30.Variant())

	_, err = m.WithNpts(1)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestSolve_RejectsBadInput(t *testing.T) {
	t.Parallel()
	m, err := New("m", Options{})
	require.NoError(t, err)

	_, err = m.Solve(context.Background(), 0, 1, DefaultSolver())
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = m.Solve(context.Background(), 1, 1, Solver{Integrator: "magic", Config: DefaultSolver().Config})
	assert.Error(t, err)
}

func TestSolve_ConservesAcid(t *testing.T) {
	t.Parallel()
	m, err := New("m", Options{Npts: 15})
	require.NoError(t, err)

	sol, err := m.Solve(context.Background(), 1, 0.5, DefaultSolver())
	require.NoError(t, err)

	// mean concentration falls linearly at Consumption * C-rate
	p := DefaultParams()
	conc := sol.Series[VarConcentration]
	for i, tt := range sol.Times {
		assert.InDelta(t, 1-p.Consumption*tt, conc[i], 1e-6, "t=%g", tt)
	}
	assert.False(t, sol.Terminated)
	assert.InDelta(t, 0.5, sol.EndTime(), 1e-9)

	// constant current: charge passed is C-rate times elapsed time
	assert.InDelta(t, 0.5, sol.Charge, 1e-9)
	assert.Positive(t, sol.MinStep)
	assert.GreaterOrEqual(t, sol.MaxStep, sol.MinStep)
}

func TestSolve_HighRateHitsCutoff(t *testing.T) {
	t.Parallel()
	sols := solveDefaults(t, 2, 10)

	direct := sols[CapacitanceNone]
	assert.True(t, direct.Terminated)
	assert.Less(t, direct.EndTime(), 1.0)

	times, err := direct.Eval(VarTimeSeconds, []float64{0, direct.EndTime(), 1.0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, times[0])
	assert.InDelta(t, direct.EndTime()*DefaultParams().Tau, times[1], 1e-6)
	assert.True(t, math.IsNaN(times[2]), "past the cut-off must be NaN")

	v, err := direct.Eval(VarVoltage, []float64{direct.EndTime()})
	require.NoError(t, err)
	assert.Less(t, v[0], DefaultParams().CutoffVoltage)
}

func TestSolve_CapacitanceVariants(t *testing.T) {
	t.Parallel()
	sols := solveDefaults(t, 1, 10)
	p := DefaultParams()

	direct, err := sols[CapacitanceNone].Variable(VarVoltage)
	require.NoError(t, err)
	differential, err := sols[CapacitanceDifferential].Variable(VarVoltage)
	require.NoError(t, err)
	algebraic, err := sols[CapacitanceAlgebraic].Variable(VarVoltage)
	require.NoError(t, err)

	// the differential double layer starts uncharged
	assert.InDelta(t, p.OCVOffset-p.Resistance, differential([]float64{0})[0], 1e-9)
	assert.Greater(t, differential([]float64{0})[0]-direct([]float64{0})[0], 0.05)

	// after many double-layer time constants the formulations agree
	late := []float64{0.01, 0.1, 0.5, 0.9}
	vd, vc := direct(late), differential(late)
	for i := range late {
		assert.InDelta(t, vd[i], vc[i], 1e-3, "t=%g", late[i])
	}

	// the algebraic constraint reproduces the closed form
	grid := []float64{0, 1e-6, 1e-3, 0.2, 0.7, 1}
	vd, va := direct(grid), algebraic(grid)
	for i := range grid {
		assert.InDelta(t, vd[i], va[i], 1e-9, "t=%g", grid[i])
	}
}

func TestSolve_SolveTimeRecorded(t *testing.T) {
	t.Parallel()
	sols := solveDefaults(t, 1, 10)
	for c, sol := range sols {
		assert.Positive(t, int64(sol.SolveTime), string(c))
		assert.Positive(t, sol.Steps, string(c))
		assert.Equal(t, 10, sol.Npts)
	}
}
