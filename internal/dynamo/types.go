package dynamo

import (
	"math"
	"time"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MaxAbs returns the infinity norm of s.
func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Event is implemented by systems with a terminal condition, such as a
// voltage cut-off. Terminate is evaluated after every accepted step.
type Event interface {
	Terminate(x State, u Control, t float64) bool
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// AdaptiveIntegrator proposes the next step size together with the new
// state. A rejected step returns ErrStepRejected and a smaller dt to retry.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt, tol float64) (State, float64, error)
}

type Controller interface {
	Compute(x State, t float64) Control
}

// Observer is called after every accepted step with the new state, the
// control held over the step and the new time.
type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	MaxSteps      int
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1e-7,
		Duration:      1.0,
		Tolerance:     1e-6,
		MaxDt:         1e-2,
		MinDt:         1e-14,
		MaxSteps:      2_000_000,
		Adaptive:      true,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Times      []float64
	StepsTaken int
	Rejected   int
	Terminated bool
	SolveTime  time.Duration
}
