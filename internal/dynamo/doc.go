// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Controller]: input applied to the system at each step
//   - [Event]: optional terminal condition checked after every step
//   - [Simulator]: orchestrates simulation runs and measures solve time
//
// # Example
//
//	dyn := battery.New("direct", battery.Options{Npts: 20})
//	integ := integrators.NewRK45()
//	sim := dynamo.New(dyn, integ, battery.ConstantCurrent(1))
//	result, _ := sim.Run(ctx, x0, cfg)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. Parallel sweeps build one
// Simulator per solve.
package dynamo
