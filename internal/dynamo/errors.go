package dynamo

import "errors"

// Domain errors for the eigenvalue pipeline.
var (
	// ErrNotFinite indicates a flow-map evaluation produced NaN or Inf.
	ErrNotFinite = errors.New("dynamo: evaluation produced non-finite state")

	// ErrNotASolution indicates the base point fails the fixed-point
	// residual condition sigma f^T(x) - x = 0.
	ErrNotASolution = errors.New("dynamo: base point is not a solution")

	// ErrDimensionMismatch indicates mismatched vector dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrZeroVector indicates a vector that cannot be normalized.
	ErrZeroVector = errors.New("dynamo: zero vector cannot be normalized")
)
