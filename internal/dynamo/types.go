package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

func (u Control) Clone() Control {
	c := make(Control, len(u))
	copy(c, u)
	return c
}

// Repeat returns n independent copies of x, the shape of an initial state
// trajectory.
func Repeat(x State, n int) []State {
	xs := make([]State, n)
	for i := range xs {
		xs[i] = x.Clone()
	}
	return xs
}

// Zeros returns n zero controls of dimension nu.
func Zeros(n, nu int) []Control {
	us := make([]Control, n)
	for i := range us {
		us[i] = make(Control, nu)
	}
	return us
}
