package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrLengthMismatch = errors.New("metrics: series length mismatch")

// PointwiseError returns |a[i] - b[i]|. Entries where either input is NaN
// are NaN.
func PointwiseError(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	out := make([]float64, len(a))
	floats.SubTo(out, a, b)
	for i, v := range out {
		out[i] = math.Abs(v)
	}
	return out, nil
}

// RMSE is the root mean square of a-b over the entries where both are
// finite. It is NaN when no entry qualifies.
func RMSE(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	diff := make([]float64, 0, len(a))
	for i := range a {
		d := a[i] - b[i]
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		diff = append(diff, d)
	}
	if len(diff) == 0 {
		return math.NaN(), nil
	}
	return floats.Norm(diff, 2) / math.Sqrt(float64(len(diff))), nil
}

// MaxFinite returns the largest finite value in v, or NaN if there is none.
func MaxFinite(v []float64) float64 {
	best := math.NaN()
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if math.IsNaN(best) || x > best {
			best = x
		}
	}
	return best
}
