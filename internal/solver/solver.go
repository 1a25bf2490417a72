// Package solver optimizes shooting problems.
package solver

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/gaitbench/internal/dynamo"
	"github.com/san-kum/gaitbench/internal/ocp"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNilProblem indicates a solver built without a problem.
	ErrNilProblem = errors.New("solver: nil problem")
	// ErrDiverged indicates a non-finite cost during the iterations.
	ErrDiverged = errors.New("solver: cost is not finite")
	// ErrUnknownSolver indicates a name missing from the registry.
	ErrUnknownSolver = errors.New("solver: unknown solver")
)

const (
	DefaultThStop = 1e-9
	regMin        = 1e-9
	regMax        = 1e9
	regFactor     = 10
	armijo        = 1e-4
)

// Solver is the optimizer the benchmark times.
type Solver interface {
	// Solve starts from the given trajectories and stops after maxIter
	// iterations or when the expected improvement falls below the stop
	// threshold. When isFeasible is false the state trajectory is
	// recomputed from the controls before the first iteration. It reports
	// whether the solver converged.
	Solve(xs []dynamo.State, us []dynamo.Control, maxIter int, isFeasible bool, reg float64) (bool, error)
	Iter() int
	Cost() float64
	Xs() []dynamo.State
	Us() []dynamo.Control
}

const (
	GaussNewtonName = "gauss-newton"
	GradientName    = "gradient"
	DefaultName     = GaussNewtonName
)

type builder func(p *ocp.Problem, thStop float64) (Solver, error)

var registry = map[string]builder{
	GaussNewtonName: func(p *ocp.Problem, thStop float64) (Solver, error) {
		s, err := NewGaussNewton(p)
		if err != nil {
			return nil, err
		}
		if thStop > 0 {
			s.ThStop = thStop
		}
		return s, nil
	},
	GradientName: func(p *ocp.Problem, thStop float64) (Solver, error) {
		s, err := NewGradient(p)
		if err != nil {
			return nil, err
		}
		if thStop > 0 {
			s.ThStop = thStop
		}
		return s, nil
	},
}

// Names lists the registered solvers in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named solver for p. An empty name selects DefaultName and
// a non-positive thStop keeps the solver's default threshold.
func New(name string, p *ocp.Problem, thStop float64) (Solver, error) {
	if name == "" {
		name = DefaultName
	}
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSolver, name)
	}
	return build(p, thStop)
}

// Gradient is a single-shooting first-order method. The cost gradient with
// respect to the controls comes from one backward adjoint sweep
//
//	λ_N = ∂l_N/∂x,  g_k = ∂l_k/∂u + F_uᵀ λ_{k+1},  λ_k = ∂l_k/∂x + F_xᵀ λ_{k+1}
//
// and is scaled by the diagonal of ∂²l/∂u² plus a regularization that grows
// when the Armijo line search fails and shrinks when it succeeds.
type Gradient struct {
	problem *ocp.Problem

	ThStop float64
	Alphas []float64

	iter int
	cost float64
	reg  float64
	xs   []dynamo.State
	us   []dynamo.Control

	grad []*mat.VecDense
	dir  []dynamo.Control
}

func NewGradient(p *ocp.Problem) (*Gradient, error) {
	if p == nil {
		return nil, ErrNilProblem
	}
	s := &Gradient{
		problem: p,
		ThStop:  DefaultThStop,
		Alphas:  halvings(10),
		grad:    make([]*mat.VecDense, p.T()),
		dir:     make([]dynamo.Control, p.T()),
	}
	for i, m := range p.RunningModels() {
		s.grad[i] = mat.NewVecDense(m.Nu(), nil)
		s.dir[i] = make(dynamo.Control, m.Nu())
	}
	return s, nil
}

func (s *Gradient) Iter() int { return s.iter }

func (s *Gradient) Cost() float64 { return s.cost }

func (s *Gradient) Xs() []dynamo.State { return s.xs }

func (s *Gradient) Us() []dynamo.Control { return s.us }

// Regularization returns the value reached by the last Solve.
func (s *Gradient) Regularization() float64 { return s.reg }

func (s *Gradient) Solve(xs []dynamo.State, us []dynamo.Control, maxIter int, isFeasible bool, reg float64) (bool, error) {
	p := s.problem
	if len(xs) != p.T()+1 || len(us) != p.T() {
		return false, fmt.Errorf("%w: got %d states and %d controls for T=%d",
			ocp.ErrHorizonMismatch, len(xs), len(us), p.T())
	}

	s.iter = 0
	s.reg = math.Max(reg, regMin)
	s.us = cloneControls(us)
	if isFeasible {
		s.xs = cloneStates(xs)
	} else {
		rolled, err := p.Rollout(s.us)
		if err != nil {
			return false, err
		}
		s.xs = rolled
	}

	cost, err := p.CalcDiff(s.xs, s.us)
	if err != nil {
		return false, err
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return false, ErrDiverged
	}
	s.cost = cost

	for s.iter < maxIter {
		dV := s.direction()
		if -dV < s.ThStop*math.Max(1, s.cost) {
			return true, nil
		}

		accepted, err := s.lineSearch(dV)
		if err != nil {
			return false, err
		}
		s.iter++

		if !accepted {
			s.reg *= regFactor
			if s.reg > regMax {
				return false, nil
			}
			continue
		}
		s.reg = math.Max(s.reg/regFactor, regMin)

		if s.cost, err = p.CalcDiff(s.xs, s.us); err != nil {
			return false, err
		}
	}
	return false, nil
}

// direction runs the adjoint sweep on the derivatives of the current
// trajectory, fills the search direction and returns the expected change of
// cost along it.
func (s *Gradient) direction() float64 {
	p := s.problem
	datas := p.RunningDatas()

	lambda := mat.VecDenseCopyOf(p.TerminalData().Lx)
	next := mat.NewVecDense(lambda.Len(), nil)
	dV := 0.0

	for k := p.T() - 1; k >= 0; k-- {
		d := datas[k]
		g := s.grad[k]
		g.MulVec(d.Fu.T(), lambda)
		g.AddVec(g, d.Lu)

		for i := range s.dir[k] {
			h := d.Luu.At(i, i) + s.reg
			s.dir[k][i] = -g.AtVec(i) / h
			dV += g.AtVec(i) * s.dir[k][i]
		}

		next.MulVec(d.Fx.T(), lambda)
		next.AddVec(next, d.Lx)
		lambda, next = next, lambda
	}
	return dV
}

// lineSearch tries decreasing step lengths along the current direction and
// keeps the first one that satisfies the Armijo condition.
func (s *Gradient) lineSearch(dV float64) (bool, error) {
	p := s.problem
	trial := make([]dynamo.Control, len(s.us))

	for _, alpha := range s.Alphas {
		for k, u := range s.us {
			t := make(dynamo.Control, len(u))
			for i := range u {
				t[i] = u[i] + alpha*s.dir[k][i]
			}
			trial[k] = t
		}

		xs, err := p.Rollout(trial)
		if err != nil {
			return false, err
		}
		cost, err := p.Calc(xs, trial)
		if err != nil {
			return false, err
		}
		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			continue
		}
		if s.cost-cost >= -armijo*alpha*dV {
			s.xs, s.us, s.cost = xs, trial, cost
			return true, nil
		}
	}
	return false, nil
}

// halvings returns 1, 1/2, 1/4, ... with n entries.
func halvings(n int) []float64 {
	alphas := make([]float64, n)
	for i := range alphas {
		alphas[i] = math.Pow(0.5, float64(i))
	}
	return alphas
}

func cloneStates(xs []dynamo.State) []dynamo.State {
	out := make([]dynamo.State, len(xs))
	for i, x := range xs {
		out[i] = x.Clone()
	}
	return out
}

func cloneControls(us []dynamo.Control) []dynamo.Control {
	out := make([]dynamo.Control, len(us))
	for i, u := range us {
		out[i] = u.Clone()
	}
	return out
}
