package dynamo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// endSlack is the relative distance from Duration treated as having
// reached the end of the run.
const endSlack = 1e-12

type Simulator struct {
	dyn        System
	integrator Integrator
	controller Controller
	observers  []Observer
}

func New(dyn System, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run integrates from x0 over [0, cfg.Duration] and records every accepted
// step. The run stops early when the system implements Event and reports
// a terminal condition. SolveTime covers the integration loop only.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validateConfig(x0, cfg); err != nil {
		return nil, err
	}

	result := &Result{
		States: make([]State, 0, 256),
		Times:  make([]float64, 0, 256),
	}

	start := time.Now()
	defer func() { result.SolveTime = time.Since(start) }()

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt
	event, hasEvent := s.dyn.(Event)

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	for cfg.Duration-t > endSlack*cfg.Duration {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if cfg.MaxSteps > 0 && result.StepsTaken >= cfg.MaxSteps {
			return result, &SimulationError{Step: result.StepsTaken, Time: t, State: x, Wrapped: ErrTooManySteps}
		}

		u := s.controller.Compute(x, t)

		h := math.Min(dt, cfg.Duration-t)
		var newX State
		var used float64

		if cfg.Adaptive {
			var next float64
			var err error
			newX, used, next, err = s.adaptiveStep(x, u, t, h, cfg, result)
			if err != nil {
				return result, &SimulationError{Step: result.StepsTaken, Time: t, State: x, Wrapped: err}
			}
			dt = next
		} else {
			newX = s.integrator.Step(s.dyn, x, u, t, h)
			used = h
		}

		if cfg.ValidateState && !newX.IsValid() {
			return result, &SimulationError{Step: result.StepsTaken, Time: t, State: x, Wrapped: ErrInvalidState}
		}

		x = newX
		t += used
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)

		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		if hasEvent && event.Terminate(x, u, t) {
			result.Terminated = true
			break
		}
	}

	return result, nil
}

func (s *Simulator) validateConfig(x0 State, cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Adaptive {
		if cfg.Tolerance <= 0 {
			return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", ErrInvalidConfig)
		}
		if cfg.MaxDt <= 0 || cfg.MinDt <= 0 || cfg.MinDt > cfg.MaxDt {
			return fmt.Errorf("%w: need 0 < min dt <= max dt, got [%g, %g]", ErrInvalidConfig, cfg.MinDt, cfg.MaxDt)
		}
	}
	if len(x0) != s.dyn.StateDim() {
		return fmt.Errorf("%w: initial state has %d entries, system expects %d", ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}
	return nil
}

// adaptiveStep returns the accepted state, the step actually taken and the
// proposed next step. Rejected attempts are retried with a smaller step.
func (s *Simulator) adaptiveStep(x State, u Control, t, dt float64, cfg Config, result *Result) (State, float64, float64, error) {
	remaining := cfg.Duration - t
	for {
		if dt < cfg.MinDt && dt < remaining {
			return nil, 0, 0, ErrStepTooSmall
		}

		newX, next, err := s.tryStep(x, u, t, dt, cfg.Tolerance)
		switch {
		case errors.Is(err, ErrStepRejected):
			result.Rejected++
			dt = next
			continue
		case err != nil:
			return nil, 0, 0, err
		}

		return newX, dt, math.Min(next, cfg.MaxDt), nil
	}
}

func (s *Simulator) tryStep(x State, u Control, t, dt, tol float64) (State, float64, error) {
	if adaptive, ok := s.integrator.(AdaptiveIntegrator); ok {
		return adaptive.StepAdaptive(s.dyn, x, u, t, dt, tol)
	}

	// step doubling for fixed-step integrators
	x1 := s.integrator.Step(s.dyn, x, u, t, dt)
	xHalf := s.integrator.Step(s.dyn, x, u, t, dt/2)
	x2 := s.integrator.Step(s.dyn, xHalf, u, t+dt/2, dt/2)

	err := x1.Sub(x2).MaxAbs() / (1 + x.MaxAbs())
	if err > tol {
		return nil, dt / 2, ErrStepRejected
	}
	if err < tol/10 {
		return x2, dt * 2, nil
	}
	return x2, dt, nil
}
