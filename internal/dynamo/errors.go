package dynamo

import "errors"

// Domain errors for state construction and manifold operations.
var (
	// ErrOddTangent indicates a tangent dimension that cannot split into
	// equal position and velocity halves.
	ErrOddTangent = errors.New("dynamo: tangent dimension must be even")

	// ErrNegativeDimension indicates a negative nx or ndx.
	ErrNegativeDimension = errors.New("dynamo: dimensions must be non-negative")

	// ErrDimensionMismatch indicates dimensions that do not describe a real
	// manifold, or vectors whose length disagrees with the manifold.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and manifold")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)
