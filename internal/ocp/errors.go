package ocp

import "errors"

var (
	// ErrHorizonMismatch indicates trajectories whose length disagrees with
	// the problem horizon (len(xs) != T+1 or len(us) != T).
	ErrHorizonMismatch = errors.New("ocp: trajectory length does not match horizon")

	// ErrNilModel indicates a missing running or terminal action model.
	ErrNilModel = errors.New("ocp: nil action model")

	// ErrInvalidTimeStep indicates a negative integration step.
	ErrInvalidTimeStep = errors.New("ocp: time step must be non-negative")

	// ErrEmptyTangent indicates a manifold without velocity coordinates,
	// which has nothing to actuate.
	ErrEmptyTangent = errors.New("ocp: state has no velocity coordinates")
)
