package compare

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// GridSpec describes the evaluation grid: logarithmically spaced points
// near zero followed by uniform points, with the duplicated joint dropped.
type GridSpec struct {
	LogStart  float64 `yaml:"log_start" json:"log_start"` // exponent, base 10
	LogEnd    float64 `yaml:"log_end" json:"log_end"`
	LogPoints int     `yaml:"log_points" json:"log_points"`
	LinStart  float64 `yaml:"lin_start" json:"lin_start"`
	LinEnd    float64 `yaml:"lin_end" json:"lin_end"`
	LinPoints int     `yaml:"lin_points" json:"lin_points"`
}

func DefaultGridSpec() GridSpec {
	return GridSpec{
		LogStart:  -6,
		LogEnd:    -3,
		LogPoints: 50,
		LinStart:  0.001,
		LinEnd:    1,
		LinPoints: 100,
	}
}

// Build returns concat(logspace(LogStart, LogEnd, LogPoints),
// linspace(LinStart, LinEnd, LinPoints)[1:]).
func (g GridSpec) Build() ([]float64, error) {
	if g.LogPoints < 2 || g.LinPoints < 2 {
		return nil, fmt.Errorf("%w: grid needs at least 2 points per segment", ErrInvalidSweep)
	}
	if g.LogEnd <= g.LogStart || g.LinEnd <= g.LinStart {
		return nil, fmt.Errorf("%w: grid segments must be increasing", ErrInvalidSweep)
	}

	logPart := floats.LogSpan(make([]float64, g.LogPoints), math.Pow(10, g.LogStart), math.Pow(10, g.LogEnd))
	linPart := floats.Span(make([]float64, g.LinPoints), g.LinStart, g.LinEnd)

	grid := append(logPart, linPart[1:]...)
	if err := validateGrid(grid); err != nil {
		return nil, err
	}
	return grid, nil
}

// DefaultEvalGrid is the 149-point grid shared by both analyses.
func DefaultEvalGrid() []float64 {
	grid, err := DefaultGridSpec().Build()
	if err != nil {
		panic(err)
	}
	return grid
}

func validateGrid(grid []float64) error {
	if len(grid) == 0 {
		return fmt.Errorf("%w: empty evaluation grid", ErrInvalidSweep)
	}
	for i, t := range grid {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return fmt.Errorf("%w: evaluation grid point %d is %g", ErrInvalidSweep, i, t)
		}
		if i > 0 && t <= grid[i-1] {
			return fmt.Errorf("%w: evaluation grid not strictly increasing at %d", ErrInvalidSweep, i)
		}
	}
	if grid[len(grid)-1] <= 0 {
		return fmt.Errorf("%w: evaluation grid must end after t=0", ErrInvalidSweep)
	}
	return nil
}
