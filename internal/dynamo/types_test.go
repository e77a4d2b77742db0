package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_MaxAbs(t *testing.T) {
	tests := []struct {
		state  State
		maxAbs float64
	}{
		{State{3, -4}, 4.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{}, 0.0},
	}

	for _, tt := range tests {
		if got := tt.state.MaxAbs(); got != tt.maxAbs {
			t.Errorf("MaxAbs(%v) = %v, want %v", tt.state, got, tt.maxAbs)
		}
	}
}

func TestState_SubAndClone(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	c := a.Clone()
	c[0] = 99
	if a[0] == 99 {
		t.Error("Clone did not create independent copy")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("DefaultConfig has invalid Dt")
	}
	if cfg.Duration <= 0 {
		t.Error("DefaultConfig has invalid Duration")
	}
	if cfg.Tolerance <= 0 {
		t.Error("DefaultConfig has invalid Tolerance")
	}
	if cfg.MinDt > cfg.MaxDt {
		t.Error("DefaultConfig has inverted step bounds")
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Time: 1.5, Step: 150, Wrapped: ErrInvalidState}
	expected := "step 150 (t=1.5): dynamo: invalid state (NaN or Inf detected)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("SimulationError does not unwrap to its cause")
	}
}
