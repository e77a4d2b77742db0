package battery

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/capsim/internal/dynamo"
)

// Variable names exposed by every solution.
const (
	VarTime          = "Time"
	VarTimeSeconds   = "Time [s]"
	VarVoltage       = "Terminal voltage [V]"
	VarConcentration = "Electrolyte concentration"
	VarOverpotential = "Surface overpotential [V]"
	VarCurrent       = "Current [A]"
	VarOCV           = "Open-circuit voltage [V]"
)

// Variable samples one physical quantity of a solved model on an
// evaluation grid of non-dimensional times. Points after the end of the
// solve (for example past the voltage cut-off) are NaN.
type Variable func(tEval []float64) []float64

// Solution is a solved model instance. Series are sampled on Times, the
// accepted solver steps; Variable interpolates them linearly.
type Solution struct {
	Variant    Variant
	Npts       int
	Crate      float64
	Times      []float64
	Series     map[string][]float64
	SolveTime  time.Duration
	Steps      int
	Terminated bool
	// accepted step extremes and the non-dimensional charge passed
	MinStep float64
	MaxStep float64
	Charge  float64
}

func newSolution(m *Model, c *cell, crate float64, result *dynamo.Result) (*Solution, error) {
	n := len(result.Times)
	series := map[string][]float64{
		VarTime:          make([]float64, n),
		VarTimeSeconds:   make([]float64, n),
		VarVoltage:       make([]float64, n),
		VarConcentration: make([]float64, n),
		VarOverpotential: make([]float64, n),
		VarCurrent:       make([]float64, n),
		VarOCV:           make([]float64, n),
	}

	// restart the Newton guess so post-processing does not depend on the
	// last stage evaluated by the integrator
	c.eta = 0
	for i, t := range result.Times {
		x := result.States[i]
		series[VarTime][i] = t
		series[VarTimeSeconds][i] = t * c.p.Tau
		series[VarVoltage][i] = c.voltage(x, crate)
		series[VarConcentration][i] = c.meanConcentration(x)
		series[VarOverpotential][i] = c.p.ThermalVoltage * c.overpotential(x, crate)
		series[VarCurrent][i] = crate * c.p.CurrentScale
		series[VarOCV][i] = c.ocv(c.electrodeConcentration(x))
	}
	if c.newtonErr != nil {
		return nil, errors.Wrap(c.newtonErr, "post-process")
	}

	times := make([]float64, n)
	copy(times, result.Times)

	return &Solution{
		Variant:    m.Variant(),
		Npts:       m.opts.Npts,
		Crate:      crate,
		Times:      times,
		Series:     series,
		SolveTime:  result.SolveTime,
		Steps:      result.StepsTaken,
		Terminated: result.Terminated,
	}, nil
}

// Names lists the available variables in sorted order.
func (s *Solution) Names() []string {
	names := make([]string, 0, len(s.Series))
	for name := range s.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EndTime is the last solved non-dimensional time.
func (s *Solution) EndTime() float64 {
	if len(s.Times) == 0 {
		return math.NaN()
	}
	return s.Times[len(s.Times)-1]
}

// Variable returns an accessor for the named quantity.
func (s *Solution) Variable(name string) (Variable, error) {
	ys, ok := s.Series[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownVariable, name, s.Names())
	}
	if len(ys) != len(s.Times) {
		return nil, fmt.Errorf("%w: %q has %d samples for %d times", ErrUnknownVariable, name, len(ys), len(s.Times))
	}

	times := s.Times
	if len(times) < 2 {
		return func(tEval []float64) []float64 {
			out := make([]float64, len(tEval))
			for i, t := range tEval {
				out[i] = math.NaN()
				if len(times) == 1 && t == times[0] {
					out[i] = ys[0]
				}
			}
			return out
		}, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(times, ys); err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	lo, hi := times[0], times[len(times)-1]

	return func(tEval []float64) []float64 {
		out := make([]float64, len(tEval))
		for i, t := range tEval {
			if t < lo || t > hi || math.IsNaN(t) {
				out[i] = math.NaN()
				continue
			}
			out[i] = pl.Predict(t)
		}
		return out
	}, nil
}

// Eval is Variable followed by a call on tEval.
func (s *Solution) Eval(name string, tEval []float64) ([]float64, error) {
	v, err := s.Variable(name)
	if err != nil {
		return nil, err
	}
	return v(tEval), nil
}
