package solver

import (
	"fmt"
	"math"

	"github.com/san-kum/gaitbench/internal/dynamo"
	"github.com/san-kum/gaitbench/internal/ocp"
	"gonum.org/v1/gonum/mat"
)

// GaussNewton is an iterative LQR method. A backward Riccati sweep over the
// linearized dynamics and the Gauss-Newton cost Hessians gives a feedforward
// and a feedback term per knot
//
//	Qx  = Lx + Fxᵀ Vx'           Qu  = Lu + Fuᵀ Vx'
//	Qxx = Lxx + Fxᵀ Vxx' Fx      Quu = Luu + Fuᵀ Vxx' Fu + μI
//	Qux = Lxuᵀ + Fuᵀ Vxx' Fx
//	k = −Quu⁻¹ Qu   K = −Quu⁻¹ Qux
//	Vx = Qx + Quxᵀ k   Vxx = Qxx + Quxᵀ K
//
// and a forward rollout u = ū + αk + K(x ⊖ x̄) applies them with
// backtracking. The regularization μ grows when Quu is not positive definite
// or no step length is accepted, and shrinks after every accepted step.
type GaussNewton struct {
	problem *ocp.Problem

	// ThStop bounds the expected improvement of a full step relative to
	// max(1, cost); below it the solver reports convergence.
	ThStop float64
	Alphas []float64

	iter int
	cost float64
	reg  float64
	xs   []dynamo.State
	us   []dynamo.Control

	// d1 is Σ kᵀQu, the first-order term of the expected improvement.
	d1 float64

	knots         []riccatiKnot
	vx, vxNext    *mat.VecDense
	vxx, vxxNext  *mat.Dense
	vxxFx, qxxTmp *mat.Dense
}

type riccatiKnot struct {
	qx    *mat.VecDense
	qu    *mat.VecDense
	qxx   *mat.Dense
	quu   *mat.Dense
	qux   *mat.Dense
	vxxFu *mat.Dense
	sym   *mat.SymDense
	chol  mat.Cholesky
	k     *mat.VecDense
	K     *mat.Dense
}

func NewGaussNewton(p *ocp.Problem) (*GaussNewton, error) {
	if p == nil {
		return nil, ErrNilProblem
	}
	ndx := p.TerminalModel().State().Ndx()
	s := &GaussNewton{
		problem: p,
		ThStop:  DefaultThStop,
		Alphas:  halvings(10),
		knots:   make([]riccatiKnot, p.T()),
		vx:      mat.NewVecDense(ndx, nil),
		vxNext:  mat.NewVecDense(ndx, nil),
		vxx:     mat.NewDense(ndx, ndx, nil),
		vxxNext: mat.NewDense(ndx, ndx, nil),
		vxxFx:   mat.NewDense(ndx, ndx, nil),
		qxxTmp:  mat.NewDense(ndx, ndx, nil),
	}
	for i, m := range p.RunningModels() {
		if m.State().Ndx() != ndx {
			return nil, fmt.Errorf("%w: knot %d has ndx %d, terminal has %d",
				dynamo.ErrDimensionMismatch, i, m.State().Ndx(), ndx)
		}
		nu := m.Nu()
		s.knots[i] = riccatiKnot{
			qx:    mat.NewVecDense(ndx, nil),
			qu:    mat.NewVecDense(nu, nil),
			qxx:   mat.NewDense(ndx, ndx, nil),
			quu:   mat.NewDense(nu, nu, nil),
			qux:   mat.NewDense(nu, ndx, nil),
			vxxFu: mat.NewDense(ndx, nu, nil),
			sym:   mat.NewSymDense(nu, nil),
			k:     mat.NewVecDense(nu, nil),
			K:     mat.NewDense(nu, ndx, nil),
		}
	}
	return s, nil
}

func (s *GaussNewton) Iter() int { return s.iter }

func (s *GaussNewton) Cost() float64 { return s.cost }

func (s *GaussNewton) Xs() []dynamo.State { return s.xs }

func (s *GaussNewton) Us() []dynamo.Control { return s.us }

// Regularization returns the value reached by the last Solve.
func (s *GaussNewton) Regularization() float64 { return s.reg }

func (s *GaussNewton) Solve(xs []dynamo.State, us []dynamo.Control, maxIter int, isFeasible bool, reg float64) (bool, error) {
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
		if !s.backward() {
			s.reg *= regFactor
			if s.reg > regMax {
				return false, nil
			}
			continue
		}
		if -0.5*s.d1 < s.ThStop*math.Max(1, s.cost) {
			return true, nil
		}

		accepted, err := s.forward()
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

// backward runs the Riccati sweep on the derivatives of the current
// trajectory. It reports false when a Quu is not positive definite.
func (s *GaussNewton) backward() bool {
	p := s.problem
	datas := p.RunningDatas()
	td := p.TerminalData()

	s.vx.CopyVec(td.Lx)
	s.vxx.Copy(td.Lxx)
	s.d1 = 0

	for t := p.T() - 1; t >= 0; t-- {
		d := datas[t]
		kn := &s.knots[t]

		kn.qx.MulVec(d.Fx.T(), s.vx)
		kn.qx.AddVec(kn.qx, d.Lx)
		kn.qu.MulVec(d.Fu.T(), s.vx)
		kn.qu.AddVec(kn.qu, d.Lu)

		s.vxxFx.Mul(s.vxx, d.Fx)
		kn.vxxFu.Mul(s.vxx, d.Fu)
		kn.qxx.Mul(d.Fx.T(), s.vxxFx)
		kn.qxx.Add(kn.qxx, d.Lxx)
		kn.quu.Mul(d.Fu.T(), kn.vxxFu)
		kn.quu.Add(kn.quu, d.Luu)
		kn.qux.Mul(d.Fu.T(), s.vxxFx)
		kn.qux.Add(kn.qux, d.Lxu.T())

		nu := kn.qu.Len()
		for i := 0; i < nu; i++ {
			for j := i; j < nu; j++ {
				v := 0.5 * (kn.quu.At(i, j) + kn.quu.At(j, i))
				if i == j {
					v += s.reg
				}
				kn.sym.SetSym(i, j, v)
			}
		}
		if !kn.chol.Factorize(kn.sym) {
			return false
		}
		if err := kn.chol.SolveVecTo(kn.k, kn.qu); err != nil {
			return false
		}
		if err := kn.chol.SolveTo(kn.K, kn.qux); err != nil {
			return false
		}
		kn.k.ScaleVec(-1, kn.k)
		kn.K.Scale(-1, kn.K)
		s.d1 += mat.Dot(kn.k, kn.qu)

		s.vxNext.MulVec(kn.qux.T(), kn.k)
		s.vxNext.AddVec(s.vxNext, kn.qx)
		s.qxxTmp.Mul(kn.qux.T(), kn.K)
		s.vxxNext.Add(s.qxxTmp, kn.qxx)
		symmetrize(s.vxxNext)

		s.vx, s.vxNext = s.vxNext, s.vx
		s.vxx, s.vxxNext = s.vxxNext, s.vxx
	}
	return true
}

// forward rolls the feedback policy out for decreasing step lengths and
// keeps the first one whose cost decrease is a fixed share of the decrease
// the quadratic model predicts.
func (s *GaussNewton) forward() (bool, error) {
	p := s.problem
	running := p.RunningModels()
	datas := p.RunningDatas()

	for _, alpha := range s.Alphas {
		xs := make([]dynamo.State, p.T()+1)
		us := make([]dynamo.Control, p.T())
		xs[0] = p.X0()
		cost := 0.0

		for t, m := range running {
			kn := &s.knots[t]
			dx := mat.NewVecDense(m.State().Ndx(), m.State().Diff(s.xs[t], xs[t]))
			fb := mat.NewVecDense(m.Nu(), nil)
			fb.MulVec(kn.K, dx)

			u := make(dynamo.Control, m.Nu())
			for i := range u {
				u[i] = s.us[t][i] + alpha*kn.k.AtVec(i) + fb.AtVec(i)
			}
			us[t] = u

			if err := m.Calc(datas[t], xs[t], u); err != nil {
				return false, fmt.Errorf("knot %d: %w", t, err)
			}
			cost += datas[t].Cost
			xs[t+1] = datas[t].Xnext.Clone()
		}
		if err := p.TerminalModel().Calc(p.TerminalData(), xs[p.T()], nil); err != nil {
			return false, fmt.Errorf("terminal knot: %w", err)
		}
		cost += p.TerminalData().Cost

		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			continue
		}
		expected := -s.d1 * (alpha - 0.5*alpha*alpha)
		if s.cost-cost >= armijo*expected {
			s.xs, s.us, s.cost = xs, us, cost
			return true, nil
		}
	}
	return false, nil
}

func symmetrize(m *mat.Dense) {
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := 0.5 * (m.At(i, j) + m.At(j, i))
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
}
