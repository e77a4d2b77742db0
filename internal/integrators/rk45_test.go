package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/capsim/internal/dynamo"
)

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
	if math.Abs(x[0]-math.Cos(10)) > 1e-8 {
		t.Errorf("RK45 position error too large: got %.10f, expected %.10f", x[0], math.Cos(10))
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	drift := math.Abs(dyn.Energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, err := integrator.StepAdaptive(dyn, x0, nil, 0, 0.01, 1e-6)
	if err != nil {
		t.Fatalf("StepAdaptive returned error: %v", err)
	}
	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDt <= 0.01 {
		t.Errorf("expected step to grow for a smooth problem, got %g", newDt)
	}
}

func TestRK45_RejectsLargeStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}

	x, newDt, err := integrator.StepAdaptive(dyn, dynamo.State{1.0, 0.0}, nil, 0, 2.0, 1e-10)
	if !errors.Is(err, dynamo.ErrStepRejected) {
		t.Fatalf("expected ErrStepRejected, got %v", err)
	}
	if x != nil {
		t.Error("rejected step should not return a state")
	}
	if newDt >= 2.0 || newDt <= 0 {
		t.Errorf("expected a smaller positive retry step, got %g", newDt)
	}
}

func TestRK45_VsRK4_Accuracy(t *testing.T) {
	rk4 := NewRK4()
	rk45 := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x4 := x0.Clone()
	x45 := x0.Clone()
	dt := 0.1

	for i := 0; i < 100; i++ {
		x4 = rk4.Step(dyn, x4, nil, float64(i)*dt, dt)
		x45 = rk45.Step(dyn, x45, nil, float64(i)*dt, dt)
	}

	e4 := math.Abs(dyn.Energy(x4) - 0.5)
	e45 := math.Abs(dyn.Energy(x45) - 0.5)
	if e45 > e4 {
		t.Errorf("RK45 energy error %e exceeds RK4 %e", e45, e4)
	}
}
