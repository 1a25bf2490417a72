package robot

import (
	"github.com/san-kum/gaitbench/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

// Placement is a rigid transform expressed in the world frame.
type Placement struct {
	Translation spatial.Vec3
	Rotation    spatial.Mat3
}

func (p Placement) Act(v spatial.Vec3) spatial.Vec3 {
	return p.Translation.Add(p.Rotation.MulVec(v))
}

// BasePlacement returns the world placement of the tree root.
func (m *Model) BasePlacement(q []float64) Placement {
	if !m.FreeFlyer() {
		return Placement{Rotation: spatial.Identity()}
	}
	quat := spatial.Quat{X: q[3], Y: q[4], Z: q[5], W: q[6]}.Normalize()
	return Placement{
		Translation: spatial.Vec3{q[0], q[1], q[2]},
		Rotation:    quat.Matrix(),
	}
}

// Kinematics caches the joint placements of one configuration.
type Kinematics struct {
	model  *Model
	base   Placement
	joints []Placement
	axes   []spatial.Vec3
}

// ForwardKinematics places every joint of the tree for configuration q.
func (m *Model) ForwardKinematics(q []float64) *Kinematics {
	k := &Kinematics{
		model:  m,
		base:   m.BasePlacement(q),
		joints: make([]Placement, len(m.Joints)),
		axes:   make([]spatial.Vec3, len(m.Joints)),
	}
	off := m.baseQ()
	for i, j := range m.Joints {
		parent := k.base
		if j.Parent >= 0 {
			parent = k.joints[j.Parent]
		}
		k.axes[i] = parent.Rotation.MulVec(j.Axis.Normalize())
		k.joints[i] = Placement{
			Translation: parent.Act(j.Origin),
			Rotation:    parent.Rotation.Mul(spatial.AxisAngle(j.Axis, q[off+i])),
		}
	}
	return k
}

func (k *Kinematics) Base() Placement { return k.base }

func (k *Kinematics) Joint(id int) Placement { return k.joints[id] }

// FramePosition returns the world position of a frame.
func (k *Kinematics) FramePosition(id int) spatial.Vec3 {
	f := k.model.Frames[id]
	if f.Joint < 0 {
		return k.base.Act(f.Translation)
	}
	return k.joints[f.Joint].Act(f.Translation)
}

// FrameJacobian returns the 3×nv Jacobian of the frame's world position with
// respect to the configuration tangent (world-frame base translation, then
// body-frame base rotation, then joint velocities).
func (k *Kinematics) FrameJacobian(id int) *mat.Dense {
	m := k.model
	J := mat.NewDense(3, m.NV(), nil)
	p := k.FramePosition(id)

	if m.FreeFlyer() {
		for i := 0; i < 3; i++ {
			J.Set(i, i, 1)
		}
		r := k.base.Rotation.T().MulVec(p.Sub(k.base.Translation))
		block := k.base.Rotation.Mul(spatial.Skew(r)).Scale(-1)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				J.Set(i, 3+j, block[i][j])
			}
		}
	}

	off := m.baseV()
	for j := m.Frames[id].Joint; j >= 0; j = m.Joints[j].Parent {
		col := k.axes[j].Cross(p.Sub(k.joints[j].Translation))
		for i := 0; i < 3; i++ {
			J.Set(i, off+j, col[i])
		}
	}
	return J
}

// FramePosition is a convenience wrapper around ForwardKinematics.
func (m *Model) FramePosition(q []float64, id int) spatial.Vec3 {
	return m.ForwardKinematics(q).FramePosition(id)
}
