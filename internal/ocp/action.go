// Package ocp defines action models, their data and the shooting problem that
// chains them over a horizon.
package ocp

import (
	"github.com/san-kum/gaitbench/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// ActionModel is one knot of a shooting problem: discrete dynamics plus a
// cost. A nil control evaluates the model as a terminal knot, where only the
// cost and its state derivatives are computed.
type ActionModel interface {
	State() dynamo.Manifold
	Nu() int
	CreateData() *Data

	// Calc fills d.Cost and d.Xnext.
	Calc(d *Data, x dynamo.State, u dynamo.Control) error
	// CalcDiff fills everything Calc does plus the dynamics and cost
	// derivatives.
	CalcDiff(d *Data, x dynamo.State, u dynamo.Control) error
	// QuasiStatic returns the control that keeps x stationary.
	QuasiStatic(d *Data, x dynamo.State) (dynamo.Control, error)
}

// Data holds the results of an ActionModel evaluation. Derivatives are
// expressed in tangent coordinates: Fx is ndx×ndx, Fu is ndx×nu.
type Data struct {
	Cost  float64
	Xnext dynamo.State

	Fx, Fu        *mat.Dense
	Lx, Lu        *mat.VecDense
	Lxx, Luu, Lxu *mat.Dense

	costs []costData
	point Point
}

type costData struct {
	cost   float64
	r      []float64
	rx, ru *mat.Dense
	tx     *mat.Dense
	tu     *mat.Dense
	txu    *mat.Dense
	gx, gu *mat.VecDense
}

// NewData allocates buffers for a model with state manifold s, nu controls
// and the given cost residual sizes. nu must be positive.
func NewData(s dynamo.Manifold, nu int, residuals []int) *Data {
	ndx := s.Ndx()
	d := &Data{
		Xnext: make(dynamo.State, s.Nx()),
		Fx:    mat.NewDense(ndx, ndx, nil),
		Fu:    mat.NewDense(ndx, nu, nil),
		Lx:    mat.NewVecDense(ndx, nil),
		Lu:    mat.NewVecDense(nu, nil),
		Lxx:   mat.NewDense(ndx, ndx, nil),
		Luu:   mat.NewDense(nu, nu, nil),
		Lxu:   mat.NewDense(ndx, nu, nil),
		costs: make([]costData, len(residuals)),
	}
	for i, nr := range residuals {
		d.costs[i] = costData{
			r:   make([]float64, nr),
			rx:  mat.NewDense(nr, ndx, nil),
			ru:  mat.NewDense(nr, nu, nil),
			tx:  mat.NewDense(ndx, ndx, nil),
			tu:  mat.NewDense(nu, nu, nil),
			txu: mat.NewDense(ndx, nu, nil),
			gx:  mat.NewVecDense(ndx, nil),
			gu:  mat.NewVecDense(nu, nil),
		}
	}
	return d
}

// CostTerms returns the weighted value of every cost term from the last
// evaluation, in the order they were added to the model.
func (d *Data) CostTerms() []float64 {
	out := make([]float64, len(d.costs))
	for i, c := range d.costs {
		out[i] = c.cost
	}
	return out
}

func (d *Data) resetDerivatives() {
	d.Fx.Zero()
	d.Fu.Zero()
	d.Lx.Zero()
	d.Lu.Zero()
	d.Lxx.Zero()
	d.Luu.Zero()
	d.Lxu.Zero()
}
