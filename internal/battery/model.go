package battery

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/capsim/internal/dynamo"
	"github.com/san-kum/capsim/internal/integrators"
	"github.com/san-kum/capsim/internal/metrics"
)

// Default model names, in the order DefaultModels returns them.
const (
	NameDirect       = "Direct formulation"
	NameDifferential = "Capacitance formulation (differential)"
	NameAlgebraic    = "Capacitance formulation (algebraic)"
)

// Model is an immutable, parameterized cell model variant.
type Model struct {
	name string
	opts Options
}

// New validates opts and builds a model. A zero Npts selects DefaultNpts
// and zero Params select DefaultParams.
func New(name string, opts Options) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty model name", ErrInvalidOptions)
	}
	c, err := ParseCapacitance(string(opts.Capacitance))
	if err != nil {
		return nil, err
	}
	opts.Capacitance = c
	if opts.Npts == 0 {
		opts.Npts = DefaultNpts
	}
	if opts.Npts < MinNpts {
		return nil, fmt.Errorf("%w: npts must be at least %d, got %d", ErrInvalidOptions, MinNpts, opts.Npts)
	}
	if opts.Params == (Params{}) {
		opts.Params = DefaultParams()
	}
	if err := opts.Params.validate(); err != nil {
		return nil, err
	}
	return &Model{name: name, opts: opts}, nil
}

// DefaultModels returns the direct, differential and algebraic variants.
func DefaultModels(npts int, params Params) ([]*Model, error) {
	specs := []struct {
		name string
		c    Capacitance
	}{
		{NameDirect, CapacitanceNone},
		{NameDifferential, CapacitanceDifferential},
		{NameAlgebraic, CapacitanceAlgebraic},
	}

	models := make([]*Model, 0, len(specs))
	for _, s := range specs {
		m, err := New(s.name, Options{Capacitance: s.c, Npts: npts, Params: params})
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

func (m *Model) Name() string     { return m.name }
func (m *Model) Options() Options { return m.opts }
func (m *Model) Variant() Variant { return Variant{Name: m.name, Capacitance: m.opts.Capacitance} }
func (m *Model) Npts() int        { return m.opts.Npts }

// WithNpts returns a copy of m on a different grid.
func (m *Model) WithNpts(npts int) (*Model, error) {
	opts := m.opts
	opts.Npts = npts
	return New(m.name, opts)
}

// Solver selects the integrator and step control for Solve.
type Solver struct {
	Integrator string
	Config     dynamo.Config
}

func DefaultSolver() Solver {
	return Solver{Integrator: "rk45", Config: dynamo.DefaultConfig()}
}

// Solve discharges the cell at the given C-rate from t=0 to tEnd
// (non-dimensional time). The run ends early at the voltage cut-off.
func (m *Model) Solve(ctx context.Context, crate, tEnd float64, solver Solver) (*Solution, error) {
	if !(crate > 0) {
		return nil, fmt.Errorf("%w: C-rate must be positive, got %g", ErrInvalidOptions, crate)
	}
	integ, err := integrators.New(solver.Integrator)
	if err != nil {
		return nil, err
	}

	c := newCell(m.opts)
	cfg := solver.Config
	cfg.Duration = tEnd

	steps, charge := metrics.NewStepSize(), metrics.NewCharge()
	sim := dynamo.New(c, integ, ConstantCurrent(crate))
	sim.AddObserver(steps)
	sim.AddObserver(charge)

	result, err := sim.Run(ctx, c.initialState(), cfg)
	if c.newtonErr != nil {
		err = c.newtonErr
	}
	if err != nil {
		return nil, errors.Wrapf(err, "solve %s at %gC (npts=%d)", m.name, crate, m.opts.Npts)
	}

	logrus.WithFields(logrus.Fields{
		"model":      m.name,
		"crate":      crate,
		"npts":       m.opts.Npts,
		"steps":      result.StepsTaken,
		"rejected":   result.Rejected,
		"terminated": result.Terminated,
		"solve_time": result.SolveTime,
		"min_step":   steps.Value(),
	}).Debug("solved")

	sol, err := newSolution(m, c, crate, result)
	if err != nil {
		return nil, errors.Wrapf(err, "solve %s at %gC (npts=%d)", m.name, crate, m.opts.Npts)
	}
	sol.MinStep, sol.MaxStep = steps.Value(), steps.Max()
	sol.Charge = charge.Value()
	return sol, nil
}

// ConstantCurrent applies a fixed non-dimensional current (the C-rate).
type ConstantCurrent float64

func (c ConstantCurrent) Compute(x dynamo.State, t float64) dynamo.Control {
	return dynamo.Control{float64(c)}
}

// cell is the reduced-order lead-acid cell: finite-volume electrolyte
// concentration on npts cells with zero-flux walls, acid consumed in the
// two electrodes, symmetric Butler-Volmer kinetics and an optional
// double-layer overpotential state.
type cell struct {
	p           Params
	capacitance Capacitance
	n           int
	dx2         float64
	electrode   []bool
	source      float64

	// last converged overpotential, the Newton guess for the next call
	eta       float64
	newtonErr error
}

func newCell(opts Options) *cell {
	n := opts.Npts
	c := &cell{
		p:           opts.Params,
		capacitance: opts.Capacitance,
		n:           n,
		dx2:         1.0 / float64(n*n),
		electrode:   make([]bool, n),
	}

	count := 0
	for i := 0; i < n; i++ {
		x := (float64(i) + 0.5) / float64(n)
		if x < 1.0/3.0 || x > 2.0/3.0 {
			c.electrode[i] = true
			count++
		}
	}
	// mean concentration falls at Consumption * I regardless of n
	c.source = c.p.Consumption * float64(n) / float64(count)
	return c
}

func (c *cell) StateDim() int {
	if c.capacitance == CapacitanceDifferential {
		return c.n + 1
	}
	return c.n
}

func (c *cell) ControlDim() int { return 1 }

func (c *cell) initialState() dynamo.State {
	x := make(dynamo.State, c.StateDim())
	for i := 0; i < c.n; i++ {
		x[i] = 1
	}
	// the differential double layer starts discharged: eta(0) = 0
	return x
}

func (c *cell) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	current := u[0]
	dx := make(dynamo.State, len(x))
	d := c.p.Diffusivity / c.dx2

	for i := 0; i < c.n; i++ {
		var flux float64
		if i > 0 {
			flux += x[i-1] - x[i]
		}
		if i < c.n-1 {
			flux += x[i+1] - x[i]
		}
		dx[i] = d * flux
		if c.electrode[i] {
			dx[i] -= c.source * current
		}
	}

	if c.capacitance == CapacitanceDifferential {
		ce := c.electrodeConcentration(x)
		eta := x[c.n]
		dx[c.n] = (current - c.reaction(eta, ce)) / c.p.DoubleLayer
	}
	return dx
}

// Terminate stops the discharge at the voltage cut-off or when the
// electrolyte is exhausted anywhere in the cell.
func (c *cell) Terminate(x dynamo.State, u dynamo.Control, t float64) bool {
	for i := 0; i < c.n; i++ {
		if x[i] <= c.p.MinConcentration {
			return true
		}
	}
	return c.voltage(x, u[0]) < c.p.CutoffVoltage
}

func (c *cell) clamp(v float64) float64 {
	return math.Max(v, c.p.MinConcentration)
}

func (c *cell) meanConcentration(x dynamo.State) float64 {
	sum := 0.0
	for i := 0; i < c.n; i++ {
		sum += x[i]
	}
	return sum / float64(c.n)
}

func (c *cell) electrodeConcentration(x dynamo.State) float64 {
	sum, count := 0.0, 0
	for i := 0; i < c.n; i++ {
		if c.electrode[i] {
			sum += x[i]
			count++
		}
	}
	return sum / float64(count)
}

func (c *cell) exchange(ce float64) float64 {
	return c.p.ExchangeCurrent * math.Sqrt(c.clamp(ce))
}

// reaction is the interfacial current density for overpotential eta, in
// thermal-voltage units.
func (c *cell) reaction(eta, ce float64) float64 {
	return 2 * c.exchange(ce) * math.Sinh(eta/2)
}

// overpotential returns eta in thermal-voltage units for the variant.
func (c *cell) overpotential(x dynamo.State, current float64) float64 {
	ce := c.electrodeConcentration(x)
	switch c.capacitance {
	case CapacitanceDifferential:
		return x[c.n]
	case CapacitanceAlgebraic:
		return c.solveConstraint(current, ce)
	default:
		return 2 * math.Asinh(current/(2*c.exchange(ce)))
	}
}

// solveConstraint finds eta with reaction(eta) = current by Newton
// iteration, starting from the previous root.
func (c *cell) solveConstraint(current, ce float64) float64 {
	j0 := c.exchange(ce)
	eta := c.eta
	for i := 0; i < c.p.NewtonMaxIter; i++ {
		f := 2*j0*math.Sinh(eta/2) - current
		df := j0 * math.Cosh(eta/2)
		step := f / df
		eta -= step
		if math.Abs(step) < c.p.NewtonTol*(1+math.Abs(eta)) {
			c.eta = eta
			return eta
		}
	}
	if c.newtonErr == nil {
		c.newtonErr = fmt.Errorf("%w after %d iterations (current=%g, c=%g)", ErrNewtonFailed, c.p.NewtonMaxIter, current, ce)
	}
	return math.NaN()
}

func (c *cell) ocv(ce float64) float64 {
	return c.p.OCVOffset + c.p.OCVSlope*math.Log(c.clamp(ce))
}

// voltage is the terminal voltage of one cell in volts.
func (c *cell) voltage(x dynamo.State, current float64) float64 {
	ce := c.electrodeConcentration(x)
	cm := c.clamp(c.meanConcentration(x))
	eta := c.overpotential(x, current)
	return c.ocv(ce) - 2*c.p.ThermalVoltage*eta - current*c.p.Resistance/cm
}
