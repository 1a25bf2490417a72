package dynamo

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Manifold is implemented by every state representation. Points are stored
// as [State] of length Nx; tangent vectors have length Ndx and are split into
// a configuration half and a velocity half of Nv entries each.
type Manifold interface {
	Nx() int
	Ndx() int
	Nq() int
	Nv() int
	CheckState(x State) error
	CheckTangent(dx []float64) error

	// Zero returns the neutral state.
	Zero() State
	// Rand returns a random state drawn from r.
	Rand(r *rand.Rand) State
	// Integrate returns x ⊕ dx.
	Integrate(x State, dx []float64) State
	// Diff returns the tangent vector dx such that x0 ⊕ dx == x1.
	Diff(x0, x1 State) []float64
	// JIntegrate returns the Jacobians of Integrate with respect to x and dx.
	JIntegrate(x State, dx []float64) (jx, jdx *mat.Dense)
	// JDiff returns the Jacobians of Diff with respect to x0 and x1.
	JDiff(x0, x1 State) (j0, j1 *mat.Dense)
}

// Base holds the dimensional bookkeeping shared by all manifolds. It is
// embedded by concrete state types and never changes after construction.
type Base struct {
	nx, ndx, nq, nv int
}

// NewBase derives nv = ndx/2 and nq = nx - nv.
func NewBase(nx, ndx int) (Base, error) {
	if nx < 0 || ndx < 0 {
		return Base{}, fmt.Errorf("%w: nx=%d ndx=%d", ErrNegativeDimension, nx, ndx)
	}
	if ndx%2 != 0 {
		return Base{}, fmt.Errorf("%w: ndx=%d", ErrOddTangent, ndx)
	}
	nv := ndx / 2
	if nv > nx {
		return Base{}, fmt.Errorf("%w: nv=%d exceeds nx=%d", ErrDimensionMismatch, nv, nx)
	}
	return Base{nx: nx, ndx: ndx, nq: nx - nv, nv: nv}, nil
}

func (b Base) Nx() int  { return b.nx }
func (b Base) Ndx() int { return b.ndx }
func (b Base) Nq() int  { return b.nq }
func (b Base) Nv() int  { return b.nv }

// CheckState reports whether x has the manifold's stored dimension.
func (b Base) CheckState(x State) error {
	if len(x) != b.nx {
		return fmt.Errorf("%w: state has %d entries, want %d", ErrDimensionMismatch, len(x), b.nx)
	}
	return nil
}

// CheckTangent reports whether dx has the manifold's tangent dimension.
func (b Base) CheckTangent(dx []float64) error {
	if len(dx) != b.ndx {
		return fmt.Errorf("%w: tangent has %d entries, want %d", ErrDimensionMismatch, len(dx), b.ndx)
	}
	return nil
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
