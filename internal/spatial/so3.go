// Package spatial implements the small amount of SO(3) algebra needed by the
// free-flyer state manifold and the leg kinematics: rotation vectors,
// unit quaternions and the right Jacobian of the exponential map.
package spatial

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

const smallAngle = 1e-8

// Quat is a unit quaternion stored as (x, y, z, w), the layout used in
// configuration vectors.
type Quat struct {
	X, Y, Z, W float64
}

func QuatIdentity() Quat {
	return Quat{W: 1}
}

func quatFrom(n quat.Number) Quat {
	return Quat{X: n.Imag, Y: n.Jmag, Z: n.Kmag, W: n.Real}
}

func (q Quat) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// Mul is the Hamilton product q·p.
func (q Quat) Mul(p Quat) Quat {
	return quatFrom(quat.Mul(q.number(), p.number()))
}

func (q Quat) Conj() Quat {
	return quatFrom(quat.Conj(q.number()))
}

func (q Quat) Norm() float64 {
	return quat.Abs(q.number())
}

func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 {
		return QuatIdentity()
	}
	return quatFrom(quat.Scale(1/n, q.number()))
}

// Matrix returns the rotation matrix of a unit quaternion.
func (q Quat) Matrix() Mat3 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

func (q Quat) Rotate(v Vec3) Vec3 {
	return q.Matrix().MulVec(v)
}

// ExpQuat maps a rotation vector to a unit quaternion.
func ExpQuat(w Vec3) Quat {
	return quatFrom(quat.Exp(quat.Number{Imag: w[0] / 2, Jmag: w[1] / 2, Kmag: w[2] / 2}))
}

// LogQuat maps a unit quaternion to the rotation vector of angle in [0, π].
func LogQuat(q Quat) Vec3 {
	n := q.number()
	if n.Real < 0 {
		n = quat.Scale(-1, n)
	}
	l := quat.Log(n)
	return Vec3{2 * l.Imag, 2 * l.Jmag, 2 * l.Kmag}
}

// Exp is the SO(3) exponential (Rodrigues' formula).
func Exp(w Vec3) Mat3 {
	theta := w.Norm()
	K := Skew(w)
	if theta < smallAngle {
		return Identity().Add(K)
	}
	a := math.Sin(theta) / theta
	b := (1 - math.Cos(theta)) / (theta * theta)
	return Identity().Add(K.Scale(a)).Add(K.Mul(K).Scale(b))
}

// AxisAngle returns the rotation of angle about axis. The axis need not be
// normalized.
func AxisAngle(axis Vec3, angle float64) Mat3 {
	return Exp(axis.Normalize().Scale(angle))
}

// RightJacobian returns Jr(w) such that Exp(w+δ) ≈ Exp(w)·Exp(Jr(w)·δ).
func RightJacobian(w Vec3) Mat3 {
	theta := w.Norm()
	K := Skew(w)
	K2 := K.Mul(K)
	if theta < 1e-4 {
		return Identity().Add(K.Scale(-0.5)).Add(K2.Scale(1.0 / 6))
	}
	t2 := theta * theta
	a := (1 - math.Cos(theta)) / t2
	b := (theta - math.Sin(theta)) / (t2 * theta)
	return Identity().Add(K.Scale(-a)).Add(K2.Scale(b))
}

// RightJacobianInv returns the inverse of RightJacobian(w).
func RightJacobianInv(w Vec3) Mat3 {
	theta := w.Norm()
	K := Skew(w)
	K2 := K.Mul(K)
	if theta < 1e-4 {
		return Identity().Add(K.Scale(0.5)).Add(K2.Scale(1.0 / 12))
	}
	t2 := theta * theta
	c := 1/t2 - (1+math.Cos(theta))/(2*theta*math.Sin(theta))
	return Identity().Add(K.Scale(0.5)).Add(K2.Scale(c))
}
