// Package gait builds shooting problems for quadruped locomotion. Every gait
// is a sequence of support phases and footstep phases; a footstep moves one
// or more feet along a lifted path while the remaining feet stay pinned.
package gait

import (
	"fmt"

	"github.com/san-kum/gaitbench/internal/dynamo"
	"github.com/san-kum/gaitbench/internal/ocp"
	"github.com/san-kum/gaitbench/internal/robot"
	"github.com/san-kum/gaitbench/internal/spatial"
)

const (
	// DefaultReference is the reference configuration used as initial state.
	DefaultReference = "standing"
	// BaseFrame is tracked by the base task when the model defines it.
	BaseFrame = "base_link"
)

// Weights scales the cost terms of every knot.
type Weights struct {
	BaseTrack    float64 `yaml:"base_track"`
	FootTrack    float64 `yaml:"foot_track"`
	FootSupport  float64 `yaml:"foot_support"`
	FootVelocity float64 `yaml:"foot_velocity"`
	StateReg     float64 `yaml:"state_reg"`
	ControlReg   float64 `yaml:"control_reg"`
}

func DefaultWeights() Weights {
	return Weights{
		BaseTrack:    1e3,
		FootTrack:    1e3,
		FootSupport:  1e3,
		FootVelocity: 1e1,
		StateReg:     1e-1,
		ControlReg:   1e-3,
	}
}

type foot struct {
	name string
	id   int
}

// Generator creates gait problems for one quadruped model.
type Generator struct {
	model *robot.Model
	state *dynamo.StateMultibody

	lf, rf, lh, rh foot
	base           int

	x0        dynamo.State
	uRef      dynamo.Control
	stateW    []float64
	weights   Weights
	firstStep bool
}

// New binds a generator to the four foot frames of m. The model must carry
// the "standing" reference configuration.
func New(m *robot.Model, lf, rf, lh, rh string) (*Generator, error) {
	st, err := dynamo.NewStateMultibody(m)
	if err != nil {
		return nil, err
	}

	g := &Generator{model: m, state: st, base: -1, weights: DefaultWeights(), firstStep: true}
	for _, f := range []struct {
		dst  *foot
		name string
	}{{&g.lf, lf}, {&g.rf, rf}, {&g.lh, lh}, {&g.rh, rh}} {
		id, err := m.FrameID(f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = foot{name: f.name, id: id}
	}
	if id, err := m.FrameID(BaseFrame); err == nil {
		g.base = id
	}

	q, err := m.ReferenceConfiguration(DefaultReference)
	if err != nil {
		return nil, err
	}
	g.x0 = make(dynamo.State, st.Nx())
	copy(g.x0, q)

	qs, err := ocp.NewKinematicModel(st, nil, 1)
	if err != nil {
		return nil, err
	}
	if g.uRef, err = qs.QuasiStatic(nil, g.x0); err != nil {
		return nil, err
	}

	g.stateW = stateWeights(m, st)
	return g, nil
}

// stateWeights leaves the base position free, holds the base orientation
// and lightly regularizes the joints and every velocity.
func stateWeights(m *robot.Model, st dynamo.Manifold) []float64 {
	nv := st.Nv()
	w := make([]float64, st.Ndx())
	start := 0
	if m.FreeFlyer() {
		w[3], w[4], w[5] = 10, 10, 10
		start = 6
	}
	for i := start; i < nv; i++ {
		w[i] = 0.1
	}
	for i := nv; i < 2*nv; i++ {
		w[i] = 1
	}
	return w
}

func (g *Generator) Model() *robot.Model { return g.model }

func (g *Generator) State() *dynamo.StateMultibody { return g.state }

// DefaultState returns the standing configuration at rest.
func (g *Generator) DefaultState() dynamo.State { return g.x0.Clone() }

func (g *Generator) Weights() Weights { return g.weights }

func (g *Generator) SetWeights(w Weights) { g.weights = w }

// Feet returns the foot frame names in lf, rf, lh, rh order.
func (g *Generator) Feet() []string {
	return []string{g.lf.name, g.rf.name, g.lh.name, g.rh.name}
}

func (g *Generator) allFeet() []foot {
	return []foot{g.lf, g.rf, g.lh, g.rh}
}

// task is a world target for one frame.
type task struct {
	foot   foot
	target spatial.Vec3
}

// knot builds one running model. base is nil when the base is not tracked.
func (g *Generator) knot(dt float64, supports []task, swings []task, base *spatial.Vec3) (*ocp.KinematicModel, error) {
	costs := ocp.NewCostSum()
	w := g.weights

	if base != nil && g.base >= 0 {
		c, err := ocp.NewFramePositionCost(g.model, g.base, *base)
		if err != nil {
			return nil, err
		}
		if err := costs.Add("baseTrack", c, w.BaseTrack); err != nil {
			return nil, err
		}
	}

	for _, s := range supports {
		pin, err := ocp.NewFramePositionCost(g.model, s.foot.id, s.target)
		if err != nil {
			return nil, err
		}
		vel, err := ocp.NewFrameVelocityCost(g.model, s.foot.id)
		if err != nil {
			return nil, err
		}
		if err := costs.Add(s.foot.name+"_support", pin, w.FootSupport); err != nil {
			return nil, err
		}
		if err := costs.Add(s.foot.name+"_velocity", vel, w.FootVelocity); err != nil {
			return nil, err
		}
	}

	for _, s := range swings {
		c, err := ocp.NewFramePositionCost(g.model, s.foot.id, s.target)
		if err != nil {
			return nil, err
		}
		if err := costs.Add(s.foot.name+"_footTrack", c, w.FootTrack); err != nil {
			return nil, err
		}
	}

	sc, err := ocp.NewStateCost(g.state, g.x0, g.stateW)
	if err != nil {
		return nil, err
	}
	if err := costs.Add("stateReg", sc, w.StateReg); err != nil {
		return nil, err
	}
	if err := costs.Add("ctrlReg", ocp.NewControlCost(g.uRef), w.ControlReg); err != nil {
		return nil, err
	}

	return ocp.NewKinematicModel(g.state, costs, dt)
}

// walker accumulates the knots of a gait while tracking where every foot
// and the base currently are.
type walker struct {
	g      *Generator
	p      Params
	base   spatial.Vec3
	feet   map[int]spatial.Vec3
	models []ocp.ActionModel
}

func (g *Generator) newWalker(x0 dynamo.State, p Params) (*walker, error) {
	if err := g.state.CheckState(x0); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	kin := g.model.ForwardKinematics(x0[:g.model.NQ()])
	w := &walker{g: g, p: p, feet: make(map[int]spatial.Vec3, 4)}

	var mean spatial.Vec3
	for _, f := range g.allFeet() {
		pos := kin.FramePosition(f.id)
		w.feet[f.id] = pos
		mean = mean.Add(pos.Scale(0.25))
	}
	w.base = mean
	w.base[2] = kin.Base().Translation[2]
	if g.base >= 0 {
		w.base[2] = kin.FramePosition(g.base)[2]
	}
	return w, nil
}

func (w *walker) pinned(feet []foot) []task {
	out := make([]task, len(feet))
	for i, f := range feet {
		out[i] = task{foot: f, target: w.feet[f.id]}
	}
	return out
}

// support appends n knots with every foot on the ground.
func (w *walker) support(n int) error {
	for i := 0; i < n; i++ {
		m, err := w.g.knot(w.p.TimeStep, w.pinned(w.g.allFeet()), nil, nil)
		if err != nil {
			return err
		}
		w.models = append(w.models, m)
	}
	return nil
}

// step swings the given feet forward by length over StepKnots knots,
// lifting them to StepHeight at mid-phase, then appends one switch knot
// where every foot is back on the ground. The base advances by the share of
// the length carried by the swinging feet.
func (w *walker) step(swing []foot, length float64) error {
	all := w.g.allFeet()
	var supports []foot
	for _, f := range all {
		if !contains(swing, f) {
			supports = append(supports, f)
		}
	}

	n := w.p.StepKnots
	half := n / 2
	share := float64(len(swing)) / float64(len(all))

	for k := 0; k < n; k++ {
		dx := length * float64(k+1) / float64(n)
		var dz float64
		switch {
		case k < half:
			dz = w.p.StepHeight * float64(k) / float64(half)
		case k == half:
			dz = w.p.StepHeight
		default:
			dz = w.p.StepHeight * (1 - float64(k-half)/float64(half))
		}

		tasks := make([]task, len(swing))
		for i, f := range swing {
			tasks[i] = task{foot: f, target: w.feet[f.id].Add(spatial.Vec3{dx, 0, dz})}
		}
		base := w.base.Add(spatial.Vec3{dx * share, 0, 0})

		m, err := w.g.knot(w.p.TimeStep, w.pinned(supports), tasks, &base)
		if err != nil {
			return err
		}
		w.models = append(w.models, m)
	}

	w.base = w.base.Add(spatial.Vec3{length * share, 0, 0})
	for _, f := range swing {
		w.feet[f.id] = w.feet[f.id].Add(spatial.Vec3{length, 0, 0})
	}

	m, err := w.g.knot(w.p.TimeStep, w.pinned(all), nil, nil)
	if err != nil {
		return err
	}
	w.models = append(w.models, m)
	return nil
}

// problem closes the sequence: the last knot becomes the terminal model.
func (w *walker) problem(x0 dynamo.State) (*ocp.Problem, error) {
	n := len(w.models)
	return ocp.NewProblem(x0, w.models[:n-1], w.models[n-1])
}

func contains(feet []foot, f foot) bool {
	for _, x := range feet {
		if x.id == f.id {
			return true
		}
	}
	return false
}
