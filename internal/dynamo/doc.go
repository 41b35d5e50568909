// Package dynamo provides core primitives for dynamical systems.
//
// The package defines the fundamental types shared by the rest of the
// module:
//
//   - [State]: flat vector representing system state
//   - [System]: interface for autonomous ODE systems (dX/dt = f(X))
//   - [Integrator]: numerical stepper interface
//
// A State doubles as the vector representation used by the Krylov
// machinery; the mapping between the two views is the identity for the
// lifetime of a run.
package dynamo
