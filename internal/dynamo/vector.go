package dynamo

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// StateVector is a Euclidean state x = (q, v) with nq == nv. Integrate and
// Diff reduce to vector addition and subtraction.
type StateVector struct {
	Base
}

// NewStateVector returns the Euclidean manifold of nv positions and nv
// velocities.
func NewStateVector(nv int) (*StateVector, error) {
	b, err := NewBase(2*nv, 2*nv)
	if err != nil {
		return nil, err
	}
	return &StateVector{Base: b}, nil
}

func (s *StateVector) Zero() State {
	return make(State, s.Nx())
}

func (s *StateVector) Rand(r *rand.Rand) State {
	x := make(State, s.Nx())
	for i := range x {
		x[i] = 2*r.Float64() - 1
	}
	return x
}

func (s *StateVector) Integrate(x State, dx []float64) State {
	out := make(State, len(x))
	for i := range x {
		out[i] = x[i] + dx[i]
	}
	return out
}

func (s *StateVector) Diff(x0, x1 State) []float64 {
	dx := make([]float64, len(x0))
	for i := range x0 {
		dx[i] = x1[i] - x0[i]
	}
	return dx
}

func (s *StateVector) JIntegrate(x State, dx []float64) (*mat.Dense, *mat.Dense) {
	return identity(s.Ndx()), identity(s.Ndx())
}

func (s *StateVector) JDiff(x0, x1 State) (*mat.Dense, *mat.Dense) {
	j0 := identity(s.Ndx())
	j0.Scale(-1, j0)
	return j0, identity(s.Ndx())
}
