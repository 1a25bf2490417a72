package ocp

import (
	"fmt"

	"github.com/san-kum/gaitbench/internal/dynamo"
	"github.com/san-kum/gaitbench/internal/robot"
	"github.com/san-kum/gaitbench/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

// Point is the (x, u) pair a cost is evaluated at. Forward kinematics are
// computed on first use and shared by every cost of the knot.
type Point struct {
	X dynamo.State
	U dynamo.Control

	model *robot.Model
	kin   *robot.Kinematics
}

func (p *Point) reset(x dynamo.State, u dynamo.Control) {
	p.X, p.U = x, u
	p.model, p.kin = nil, nil
}

// Kinematics returns the forward kinematics of m at p.X.
func (p *Point) Kinematics(m *robot.Model) *robot.Kinematics {
	if p.kin == nil || p.model != m {
		p.model = m
		p.kin = m.ForwardKinematics(p.X[:m.NQ()])
	}
	return p.kin
}

// Cost is a residual whose weighted squared norm is minimized:
// l(x, u) = w/2 ‖r(x, u)‖². Derivatives use the Gauss-Newton approximation.
type Cost interface {
	Nr() int
	// Residual writes r(x, u) into r.
	Residual(r []float64, p *Point)
	// Jacobians writes ∂r/∂x (nr×ndx) into rx and ∂r/∂u (nr×nu) into ru.
	// Both are zeroed by the caller.
	Jacobians(rx, ru *mat.Dense, p *Point)
}

type costItem struct {
	name   string
	cost   Cost
	weight float64
}

// CostSum is a weighted sum of named cost terms.
type CostSum struct {
	items []costItem
}

func NewCostSum() *CostSum {
	return &CostSum{}
}

// Add appends a term. Names must be unique within the sum.
func (c *CostSum) Add(name string, cost Cost, weight float64) error {
	for _, it := range c.items {
		if it.name == name {
			return fmt.Errorf("cost %q already added", name)
		}
	}
	c.items = append(c.items, costItem{name: name, cost: cost, weight: weight})
	return nil
}

func (c *CostSum) Names() []string {
	names := make([]string, len(c.items))
	for i, it := range c.items {
		names[i] = it.name
	}
	return names
}

func (c *CostSum) Len() int { return len(c.items) }

// Get returns the named term and its weight.
func (c *CostSum) Get(name string) (Cost, float64, bool) {
	for _, it := range c.items {
		if it.name == name {
			return it.cost, it.weight, true
		}
	}
	return nil, 0, false
}

func (c *CostSum) residuals() []int {
	nr := make([]int, len(c.items))
	for i, it := range c.items {
		nr[i] = it.cost.Nr()
	}
	return nr
}

func (c *CostSum) calc(d *Data, p *Point) float64 {
	total := 0.0
	for i, it := range c.items {
		cd := &d.costs[i]
		it.cost.Residual(cd.r, p)
		sq := 0.0
		for _, v := range cd.r {
			sq += v * v
		}
		cd.cost = 0.5 * it.weight * sq
		total += cd.cost
	}
	return total
}

// calcDiff accumulates Lx, Lxx and, when withControl is set, Lu, Luu and
// Lxu. calc must have run first on the same point.
func (c *CostSum) calcDiff(d *Data, p *Point, withControl bool) {
	for i, it := range c.items {
		cd := &d.costs[i]
		cd.rx.Zero()
		cd.ru.Zero()
		it.cost.Jacobians(cd.rx, cd.ru, p)

		r := mat.NewVecDense(len(cd.r), cd.r)
		w := it.weight

		cd.gx.MulVec(cd.rx.T(), r)
		d.Lx.AddScaledVec(d.Lx, w, cd.gx)
		cd.tx.Mul(cd.rx.T(), cd.rx)
		cd.tx.Scale(w, cd.tx)
		d.Lxx.Add(d.Lxx, cd.tx)

		if !withControl {
			continue
		}
		cd.gu.MulVec(cd.ru.T(), r)
		d.Lu.AddScaledVec(d.Lu, w, cd.gu)
		cd.tu.Mul(cd.ru.T(), cd.ru)
		cd.tu.Scale(w, cd.tu)
		d.Luu.Add(d.Luu, cd.tu)
		cd.txu.Mul(cd.rx.T(), cd.ru)
		cd.txu.Scale(w, cd.txu)
		d.Lxu.Add(d.Lxu, cd.txu)
	}
}

// StateCost penalizes the weighted tangent distance to a reference state.
type StateCost struct {
	state   dynamo.Manifold
	ref     dynamo.State
	weights []float64
}

// NewStateCost builds r = weights ⊙ (x ⊖ ref). A nil weights slice means
// unit weights.
func NewStateCost(state dynamo.Manifold, ref dynamo.State, weights []float64) (*StateCost, error) {
	if err := state.CheckState(ref); err != nil {
		return nil, err
	}
	if weights == nil {
		weights = make([]float64, state.Ndx())
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != state.Ndx() {
		return nil, fmt.Errorf("%w: %d state weights, want %d",
			dynamo.ErrDimensionMismatch, len(weights), state.Ndx())
	}
	return &StateCost{state: state, ref: ref.Clone(), weights: weights}, nil
}

func (c *StateCost) Nr() int { return c.state.Ndx() }

func (c *StateCost) Residual(r []float64, p *Point) {
	dx := c.state.Diff(c.ref, p.X)
	for i := range r {
		r[i] = c.weights[i] * dx[i]
	}
}

func (c *StateCost) Jacobians(rx, _ *mat.Dense, p *Point) {
	_, j1 := c.state.JDiff(c.ref, p.X)
	n := c.state.Ndx()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rx.Set(i, j, c.weights[i]*j1.At(i, j))
		}
	}
}

// ControlCost penalizes the distance to a reference control. A nil control
// (terminal knot) has a zero residual.
type ControlCost struct {
	ref dynamo.Control
}

func NewControlCost(ref dynamo.Control) *ControlCost {
	return &ControlCost{ref: ref.Clone()}
}

func (c *ControlCost) Nr() int { return len(c.ref) }

func (c *ControlCost) Residual(r []float64, p *Point) {
	if p.U == nil {
		for i := range r {
			r[i] = 0
		}
		return
	}
	for i := range r {
		r[i] = p.U[i] - c.ref[i]
	}
}

func (c *ControlCost) Jacobians(_, ru *mat.Dense, p *Point) {
	if p.U == nil {
		return
	}
	for i := range c.ref {
		ru.Set(i, i, 1)
	}
}

// FramePositionCost tracks a world-frame target for an operational frame.
type FramePositionCost struct {
	model  *robot.Model
	frame  int
	target spatial.Vec3
}

func NewFramePositionCost(m *robot.Model, frame int, target spatial.Vec3) (*FramePositionCost, error) {
	if frame < 0 || frame >= len(m.Frames) {
		return nil, fmt.Errorf("%w: id %d", robot.ErrUnknownFrame, frame)
	}
	return &FramePositionCost{model: m, frame: frame, target: target}, nil
}

func (c *FramePositionCost) Target() spatial.Vec3 { return c.target }

func (c *FramePositionCost) Nr() int { return 3 }

func (c *FramePositionCost) Residual(r []float64, p *Point) {
	e := p.Kinematics(c.model).FramePosition(c.frame).Sub(c.target)
	copy(r, e[:])
}

func (c *FramePositionCost) Jacobians(rx, _ *mat.Dense, p *Point) {
	J := p.Kinematics(c.model).FrameJacobian(c.frame)
	rx.Slice(0, 3, 0, c.model.NV()).(*mat.Dense).Copy(J)
}

// FrameVelocityCost drives the linear velocity of a frame to zero, the way a
// support foot should behave. The derivative of the Jacobian with respect to
// the configuration is dropped.
type FrameVelocityCost struct {
	model *robot.Model
	frame int
}

func NewFrameVelocityCost(m *robot.Model, frame int) (*FrameVelocityCost, error) {
	if frame < 0 || frame >= len(m.Frames) {
		return nil, fmt.Errorf("%w: id %d", robot.ErrUnknownFrame, frame)
	}
	return &FrameVelocityCost{model: m, frame: frame}, nil
}

func (c *FrameVelocityCost) Nr() int { return 3 }

func (c *FrameVelocityCost) Residual(r []float64, p *Point) {
	J := p.Kinematics(c.model).FrameJacobian(c.frame)
	nq := c.model.NQ()
	v := mat.NewVecDense(c.model.NV(), p.X[nq:nq+c.model.NV()])
	out := mat.NewVecDense(3, r)
	out.MulVec(J, v)
}

func (c *FrameVelocityCost) Jacobians(rx, _ *mat.Dense, p *Point) {
	J := p.Kinematics(c.model).FrameJacobian(c.frame)
	nv := c.model.NV()
	rx.Slice(0, 3, nv, 2*nv).(*mat.Dense).Copy(J)
}
