package integrators

import "github.com/san-kum/capsim/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta stepper. Stage buffers are
// reused between steps; the returned state is always a fresh slice.
type RK4 struct {
	k       [4]dynamo.State
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.scratch = make(dynamo.State, n)
	}
}

// stage writes x + h*k into the scratch buffer.
func (r *RK4) stage(x, k dynamo.State, h float64) dynamo.State {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
	return r.scratch
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.ensureScratch(len(x))

	copy(r.k[0], dyn.Derive(x, u, t))
	copy(r.k[1], dyn.Derive(r.stage(x, r.k[0], dt/2), u, t+dt/2))
	copy(r.k[2], dyn.Derive(r.stage(x, r.k[1], dt/2), u, t+dt/2))
	copy(r.k[3], dyn.Derive(r.stage(x, r.k[2], dt), u, t+dt))

	result := make(dynamo.State, len(x))
	dt6 := dt / 6.0
	for i := range x {
		result[i] = x[i] + dt6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return result
}
