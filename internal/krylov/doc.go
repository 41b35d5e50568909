// Package krylov extracts dominant eigenvalues of the Jacobian of a
// nonlinear residual operator without ever forming the Jacobian.
//
// The pieces:
//
//   - [JacobianAction]: finite-difference directional derivative of G
//     at a fixed base point (the matrix-free operator)
//   - [Arnoldi]: orthonormal Krylov basis plus Hessenberg projection
//   - [ExtractRitz]: dense eigendecomposition of the projection,
//     sorted by descending magnitude with residual estimates
//   - [Solve]: the driver sequence (validate base point, seed,
//     iterate, extract)
//
// The approach follows Viswanath, "Recurrent motions within plane
// Couette turbulence", J. Fluid Mech. 580 (2007).
package krylov
