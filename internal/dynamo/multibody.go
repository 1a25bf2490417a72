package dynamo

import (
	"math/rand"

	"github.com/san-kum/gaitbench/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

// Body describes the configuration space of a rigid-body tree.
type Body interface {
	NQ() int
	NV() int
	FreeFlyer() bool
	Neutral() []float64
}

// StateMultibody is the state of a rigid-body tree, x = (q, v).
//
// For a free-flyer root the configuration starts with the base position and
// the base orientation quaternion (x, y, z, w), followed by the joint
// positions. The first six tangent entries are the world-frame base
// translation and the body-frame base rotation vector.
type StateMultibody struct {
	Base
	body Body
	free bool
}

func NewStateMultibody(body Body) (*StateMultibody, error) {
	nq, nv := body.NQ(), body.NV()
	b, err := NewBase(nq+nv, 2*nv)
	if err != nil {
		return nil, err
	}
	return &StateMultibody{Base: b, body: body, free: body.FreeFlyer()}, nil
}

func (s *StateMultibody) Body() Body { return s.body }

func (s *StateMultibody) Zero() State {
	x := make(State, s.Nx())
	copy(x, s.body.Neutral())
	return x
}

func (s *StateMultibody) Rand(r *rand.Rand) State {
	x := make(State, s.Nx())
	for i := range x {
		x[i] = 2*r.Float64() - 1
	}
	if s.free {
		q := quatAt(x).Normalize()
		x[3], x[4], x[5], x[6] = q.X, q.Y, q.Z, q.W
	}
	return x
}

func (s *StateMultibody) Integrate(x State, dx []float64) State {
	nq, nv := s.Nq(), s.Nv()
	out := make(State, len(x))
	if s.free {
		for i := 0; i < 3; i++ {
			out[i] = x[i] + dx[i]
		}
		q := quatAt(x).Mul(spatial.ExpQuat(spatial.Vec3{dx[3], dx[4], dx[5]})).Normalize()
		out[3], out[4], out[5], out[6] = q.X, q.Y, q.Z, q.W
		for i := 7; i < nq; i++ {
			out[i] = x[i] + dx[i-1]
		}
	} else {
		for i := 0; i < nq; i++ {
			out[i] = x[i] + dx[i]
		}
	}
	for i := 0; i < nv; i++ {
		out[nq+i] = x[nq+i] + dx[nv+i]
	}
	return out
}

func (s *StateMultibody) Diff(x0, x1 State) []float64 {
	nq, nv := s.Nq(), s.Nv()
	dx := make([]float64, s.Ndx())
	if s.free {
		for i := 0; i < 3; i++ {
			dx[i] = x1[i] - x0[i]
		}
		w := spatial.LogQuat(quatAt(x0).Conj().Mul(quatAt(x1)))
		dx[3], dx[4], dx[5] = w[0], w[1], w[2]
		for i := 7; i < nq; i++ {
			dx[i-1] = x1[i] - x0[i]
		}
	} else {
		for i := 0; i < nq; i++ {
			dx[i] = x1[i] - x0[i]
		}
	}
	for i := 0; i < nv; i++ {
		dx[nv+i] = x1[nq+i] - x0[nq+i]
	}
	return dx
}

func (s *StateMultibody) JIntegrate(x State, dx []float64) (*mat.Dense, *mat.Dense) {
	jx, jdx := identity(s.Ndx()), identity(s.Ndx())
	if s.free {
		w := spatial.Vec3{dx[3], dx[4], dx[5]}
		setBlock3(jx, 3, spatial.Exp(w).T())
		setBlock3(jdx, 3, spatial.RightJacobian(w))
	}
	return jx, jdx
}

func (s *StateMultibody) JDiff(x0, x1 State) (*mat.Dense, *mat.Dense) {
	j0, j1 := identity(s.Ndx()), identity(s.Ndx())
	j0.Scale(-1, j0)
	if s.free {
		theta := spatial.LogQuat(quatAt(x0).Conj().Mul(quatAt(x1)))
		jinv := spatial.RightJacobianInv(theta)
		setBlock3(j1, 3, jinv)
		setBlock3(j0, 3, jinv.Mul(spatial.Exp(theta).T()).Scale(-1))
	}
	return j0, j1
}

func quatAt(x State) spatial.Quat {
	return spatial.Quat{X: x[3], Y: x[4], Z: x[5], W: x[6]}
}

func setBlock3(m *mat.Dense, off int, b spatial.Mat3) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(off+i, off+j, b[i][j])
		}
	}
}
