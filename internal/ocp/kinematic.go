package ocp

import (
	"fmt"

	"github.com/san-kum/gaitbench/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Gravity is the vertical acceleration applied to a free-flyer base.
const Gravity = 9.81

// KinematicModel is a fully actuated double integrator on the state
// manifold. The control is the generalized acceleration; a free-flyer base
// additionally falls under gravity. One step is semi-implicit Euler:
//
//	a  = u + g
//	v' = v + a·dt
//	q' = q ⊕ v'·dt
type KinematicModel struct {
	state dynamo.Manifold
	costs *CostSum
	dt    float64
	drift []float64
}

// NewKinematicModel binds costs to the dynamics of state. A dt of zero builds
// a terminal model whose Calc leaves the state unchanged.
func NewKinematicModel(state dynamo.Manifold, costs *CostSum, dt float64) (*KinematicModel, error) {
	if dt < 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidTimeStep, dt)
	}
	if state.Nv() == 0 {
		return nil, ErrEmptyTangent
	}
	if costs == nil {
		costs = NewCostSum()
	}
	drift := make([]float64, state.Nv())
	if sm, ok := state.(*dynamo.StateMultibody); ok && sm.Body().FreeFlyer() {
		drift[2] = -Gravity
	}
	return &KinematicModel{state: state, costs: costs, dt: dt, drift: drift}, nil
}

func (m *KinematicModel) State() dynamo.Manifold { return m.state }

func (m *KinematicModel) Nu() int { return m.state.Nv() }

func (m *KinematicModel) Costs() *CostSum { return m.costs }

func (m *KinematicModel) CreateData() *Data {
	return NewData(m.state, m.Nu(), m.costs.residuals())
}

func (m *KinematicModel) check(x dynamo.State, u dynamo.Control) error {
	if err := m.state.CheckState(x); err != nil {
		return err
	}
	if u != nil && len(u) != m.Nu() {
		return fmt.Errorf("%w: control has %d entries, want %d",
			dynamo.ErrDimensionMismatch, len(u), m.Nu())
	}
	return nil
}

// step returns the tangent increment of one integration step.
func (m *KinematicModel) step(x dynamo.State, u dynamo.Control) []float64 {
	nq, nv := m.state.Nq(), m.state.Nv()
	dx := make([]float64, 2*nv)
	for i := 0; i < nv; i++ {
		a := u[i] + m.drift[i]
		vn := x[nq+i] + a*m.dt
		dx[i] = vn * m.dt
		dx[nv+i] = a * m.dt
	}
	return dx
}

func (m *KinematicModel) Calc(d *Data, x dynamo.State, u dynamo.Control) error {
	if err := m.check(x, u); err != nil {
		return err
	}
	d.point.reset(x, u)
	d.Cost = m.costs.calc(d, &d.point)
	if u == nil || m.dt == 0 {
		copy(d.Xnext, x)
		return nil
	}
	copy(d.Xnext, m.state.Integrate(x, m.step(x, u)))
	return nil
}

func (m *KinematicModel) CalcDiff(d *Data, x dynamo.State, u dynamo.Control) error {
	if err := m.Calc(d, x, u); err != nil {
		return err
	}
	d.resetDerivatives()
	m.costs.calcDiff(d, &d.point, u != nil)

	nv := m.state.Nv()
	if u == nil || m.dt == 0 {
		for i := 0; i < 2*nv; i++ {
			d.Fx.Set(i, i, 1)
		}
		return nil
	}

	jx, jdx := m.state.JIntegrate(x, m.step(x, u))

	// ∂dx/∂x only couples the velocity to the configuration increment.
	dt, dt2 := m.dt, m.dt*m.dt
	D := mat.NewDense(2*nv, 2*nv, nil)
	B := mat.NewDense(2*nv, nv, nil)
	for i := 0; i < nv; i++ {
		D.Set(i, nv+i, dt)
		B.Set(i, i, dt2)
		B.Set(nv+i, i, dt)
	}

	d.Fx.Mul(jdx, D)
	d.Fx.Add(d.Fx, jx)
	d.Fu.Mul(jdx, B)
	return nil
}

// QuasiStatic returns the acceleration that cancels the drift, which holds a
// state at rest.
func (m *KinematicModel) QuasiStatic(_ *Data, x dynamo.State) (dynamo.Control, error) {
	if err := m.state.CheckState(x); err != nil {
		return nil, err
	}
	u := make(dynamo.Control, m.Nu())
	for i := range u {
		u[i] = -m.drift[i]
	}
	return u, nil
}
