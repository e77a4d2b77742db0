package integrators

import (
	"math"

	"github.com/san-kum/capsim/internal/dynamo"
)

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1}

	dpA = [7][6]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	}

	// fifth-order weights minus embedded fourth-order weights
	dpE = [7]float64{
		35.0/384.0 - 5179.0/57600.0,
		0,
		500.0/1113.0 - 7571.0/16695.0,
		125.0/192.0 - 393.0/640.0,
		-2187.0/6784.0 + 92097.0/339200.0,
		11.0/84.0 - 187.0/2100.0,
		-1.0 / 40.0,
	}
)

// RK45 is an adaptive Dormand-Prince stepper. The local error is measured
// against atol + |x| per component, so states near zero are controlled in
// absolute terms.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	atol     float64

	k [7]dynamo.State
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		atol:     1e-3,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.k[0]) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
	}
}

// Step takes one fixed step of size dt, ignoring the error estimate.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	xNew, _ := r.step(dyn, x, u, t, dt)
	return xNew
}

// StepAdaptive returns dynamo.ErrStepRejected together with a reduced step
// when the error ratio exceeds one.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	xNew, errMax := r.step(dyn, x, u, t, dt)

	errRatio := errMax / tol
	if errRatio > 1 || math.IsNaN(errRatio) {
		scale := r.minScale
		if !math.IsNaN(errRatio) {
			scale = math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		}
		return nil, dt * scale, dynamo.ErrStepRejected
	}

	if errRatio == 0 {
		return xNew, dt * r.maxScale, nil
	}
	scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	return xNew, dt * scale, nil
}

func (r *RK45) step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, float64) {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k[0], dyn.Derive(x, u, t))

	stage := make(dynamo.State, n)
	for s := 1; s < 7; s++ {
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < s; j++ {
				acc += dpA[s][j] * r.k[j][i]
			}
			stage[i] = x[i] + dt*acc
		}
		// the last stage is the fifth-order solution (FSAL)
		if s == 6 {
			break
		}
		copy(r.k[s], dyn.Derive(stage, u, t+dpC[s]*dt))
	}
	xNew := stage
	copy(r.k[6], dyn.Derive(xNew, u, t+dt))

	errMax := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for s := 0; s < 7; s++ {
			est += dpE[s] * r.k[s][i]
		}
		scale := r.atol + math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		errMax = math.Max(errMax, math.Abs(dt*est)/scale)
	}

	return xNew, errMax
}
