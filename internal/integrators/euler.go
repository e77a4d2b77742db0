package integrators

import "github.com/san-kum/capsim/internal/dynamo"

// Euler is the explicit first-order method, kept as a cheap reference
// for checking the higher-order solvers.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	slope := sys.Derive(x, u, t)
	next := x.Clone()
	for i := range next {
		next[i] += dt * slope[i]
	}
	return next
}
