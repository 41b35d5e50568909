// Package flowmap wraps a nonlinear system and integrator into the
// time-T flow map f^T and the residual operators G built on it. The
// residual variants (plain, symmetry, Poincare section) are the "A" in
// the Arnoldi A*b picture: their Jacobian at an invariant solution is
// the operator whose spectrum the krylov package extracts.
package flowmap
