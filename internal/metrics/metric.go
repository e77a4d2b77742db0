package metrics

import (
	"math"

	"github.com/san-kum/capsim/internal/dynamo"
)

// Metric is a dynamo.Observer that reduces a run to one number. Runs
// start at t=0.
type Metric interface {
	dynamo.Observer
	Name() string
	Value() float64
	Reset()
}

// StepSize tracks the accepted step sizes of a run.
type StepSize struct {
	name    string
	lastT   float64
	min     float64
	max     float64
	samples int
}

func NewStepSize() *StepSize {
	return &StepSize{name: "step_size", min: math.Inf(1)}
}

func (s *StepSize) Name() string { return s.name }

func (s *StepSize) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	h := t - s.lastT
	s.min = math.Min(s.min, h)
	s.max = math.Max(s.max, h)
	s.lastT = t
	s.samples++
}

// Value is the smallest accepted step, NaN before the first step.
func (s *StepSize) Value() float64 {
	if s.samples == 0 {
		return math.NaN()
	}
	return s.min
}

func (s *StepSize) Max() float64 {
	if s.samples == 0 {
		return math.NaN()
	}
	return s.max
}

func (s *StepSize) Reset() {
	s.lastT = 0
	s.min = math.Inf(1)
	s.max = 0
	s.samples = 0
}

// Charge integrates the first control channel (the applied current) over
// the run.
type Charge struct {
	name  string
	lastT float64
	sum   float64
}

func NewCharge() *Charge {
	return &Charge{name: "charge"}
}

func (c *Charge) Name() string { return c.name }

func (c *Charge) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	if len(u) > 0 {
		c.sum += u[0] * (t - c.lastT)
	}
	c.lastT = t
}

func (c *Charge) Value() float64 { return c.sum }

func (c *Charge) Reset() {
	c.lastT, c.sum = 0, 0
}
