package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertMat3InDelta(t *testing.T, want, got Mat3, delta float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, want[i][j], got[i][j], delta, "entry (%d,%d)", i, j)
		}
	}
}

func TestCross(t *testing.T) {
	assert.Equal(t, UnitZ, UnitX.Cross(UnitY))
	assert.Equal(t, UnitX, UnitY.Cross(UnitZ))

	v := Vec3{1, 2, 3}
	w := Vec3{-4, 0.5, 2}
	assert.Equal(t, v.Cross(w), Skew(v).MulVec(w))
}

func TestExpQuatMatchesExp(t *testing.T) {
	examples := []Vec3{
		{0, 0, 0},
		{0.1, 0, 0},
		{0, -0.7, 0.2},
		{1.2, 0.3, -2.1},
		{1e-10, 0, 0},
	}

	for _, w := range examples {
		assertMat3InDelta(t, Exp(w), ExpQuat(w).Matrix(), 1e-9)
	}
}

func TestLogQuatInvertsExpQuat(t *testing.T) {
	examples := []Vec3{
		{0.3, -0.2, 0.1},
		{0, 0, 2.5},
		{1e-9, 2e-9, 0},
	}

	for _, w := range examples {
		got := LogQuat(ExpQuat(w))
		for i := 0; i < 3; i++ {
			assert.InDelta(t, w[i], got[i], 1e-9)
		}
	}
}

func TestLogQuatPicksShortestRotation(t *testing.T) {
	q := ExpQuat(Vec3{0, 0, 0.5})
	neg := Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
	assert.InDelta(t, 0.5, LogQuat(neg)[2], 1e-12)
}

func TestQuatMulComposesRotations(t *testing.T) {
	a := ExpQuat(Vec3{0.2, 0.1, -0.3})
	b := ExpQuat(Vec3{-0.5, 0.4, 0.9})
	assertMat3InDelta(t, a.Matrix().Mul(b.Matrix()), a.Mul(b).Matrix(), 1e-12)
}

func TestQuatConjAndNormalize(t *testing.T) {
	a := ExpQuat(Vec3{0.7, -1.1, 0.4})
	assert.InDelta(t, 1, a.Norm(), 1e-12)

	id := a.Mul(a.Conj())
	assert.InDelta(t, 1, id.W, 1e-12)
	assert.InDelta(t, 0, Vec3{id.X, id.Y, id.Z}.Norm(), 1e-12)

	assert.Equal(t, QuatIdentity(), Quat{W: 2}.Normalize())
	assert.Equal(t, QuatIdentity(), Quat{}.Normalize())
	n := Quat{X: 3, W: 4}.Normalize()
	assert.InDelta(t, 0.6, n.X, 1e-12)
	assert.InDelta(t, 0.8, n.W, 1e-12)
}

func TestAxisAngle(t *testing.T) {
	R := AxisAngle(Vec3{0, 0, 2}, math.Pi/2)
	got := R.MulVec(UnitX)
	assert.InDelta(t, 0, got[0], 1e-12)
	assert.InDelta(t, 1, got[1], 1e-12)
	assert.InDelta(t, 0, got[2], 1e-12)
}

func TestRightJacobian(t *testing.T) {
	examples := []Vec3{
		{0.4, -0.1, 0.25},
		{1e-6, 0, 0},
		{0, 1.3, 0},
	}
	const eps = 1e-6

	for _, w := range examples {
		Jr := RightJacobian(w)
		base := Exp(w)
		for k := 0; k < 3; k++ {
			var d Vec3
			d[k] = eps
			// Exp(w)ᵀ·Exp(w+δ) ≈ Exp(Jr·δ)
			rel := base.T().Mul(Exp(w.Add(d)))
			col := Vec3{rel[2][1], rel[0][2], rel[1][0]}.Scale(1 / eps)
			for i := 0; i < 3; i++ {
				assert.InDelta(t, Jr[i][k], col[i], 1e-4)
			}
		}

		assertMat3InDelta(t, Identity(), Jr.Mul(RightJacobianInv(w)), 1e-9)
	}
}
