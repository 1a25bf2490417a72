package gait

import "errors"

var (
	// ErrInvalidParams indicates gait parameters that cannot produce a
	// problem (non-positive time step, no step knots, negative support
	// knots).
	ErrInvalidParams = errors.New("gait: invalid parameters")

	// ErrUnknownGait indicates a gait name missing from the registry.
	ErrUnknownGait = errors.New("gait: unknown gait")
)
