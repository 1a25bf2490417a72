// Package robot holds rigid-body tree models, the loader that builds them
// from YAML descriptions, and the forward kinematics used by gait problems.
package robot

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/gaitbench/internal/spatial"
)

// JointType is the joint connecting the tree root to the world.
type JointType int

const (
	JointFixed JointType = iota
	JointFreeFlyer
)

func (j JointType) String() string {
	switch j {
	case JointFreeFlyer:
		return "free-flyer"
	default:
		return "fixed"
	}
}

// ParseJointType accepts "free-flyer" and "fixed".
func ParseJointType(s string) (JointType, error) {
	switch s {
	case "free-flyer", "freeflyer", "floating":
		return JointFreeFlyer, nil
	case "fixed":
		return JointFixed, nil
	default:
		return JointFixed, fmt.Errorf("unknown root joint type %q", s)
	}
}

// Joint is a revolute joint. Parent is -1 for joints attached to the base.
type Joint struct {
	Name   string
	Parent int
	Origin spatial.Vec3
	Axis   spatial.Vec3
	Lower  float64
	Upper  float64
}

// Frame is an operational point rigidly attached to a joint, or to the base
// when Joint is -1.
type Frame struct {
	Name        string
	Joint       int
	Translation spatial.Vec3
}

type Model struct {
	Name   string
	Root   JointType
	Joints []Joint
	Frames []Frame

	references map[string][]float64
}

func (m *Model) FreeFlyer() bool { return m.Root == JointFreeFlyer }

func (m *Model) NQ() int { return m.baseQ() + len(m.Joints) }

func (m *Model) NV() int { return m.baseV() + len(m.Joints) }

func (m *Model) baseQ() int {
	if m.FreeFlyer() {
		return 7
	}
	return 0
}

func (m *Model) baseV() int {
	if m.FreeFlyer() {
		return 6
	}
	return 0
}

// Neutral returns the configuration with the base at the origin, identity
// orientation and every joint at zero (clamped into its limits).
func (m *Model) Neutral() []float64 {
	q := make([]float64, m.NQ())
	if m.FreeFlyer() {
		q[6] = 1
	}
	for i, j := range m.Joints {
		q[m.baseQ()+i] = math.Max(j.Lower, math.Min(j.Upper, 0))
	}
	return q
}

func (m *Model) JointID(name string) (int, error) {
	for i, j := range m.Joints {
		if j.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownJoint, name)
}

func (m *Model) FrameID(name string) (int, error) {
	for i, f := range m.Frames {
		if f.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownFrame, name)
}

// ReferenceConfiguration returns a copy of the named configuration.
func (m *Model) ReferenceConfiguration(name string) ([]float64, error) {
	q, ok := m.references[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReference, name)
	}
	out := make([]float64, len(q))
	copy(out, q)
	return out, nil
}

func (m *Model) SetReferenceConfiguration(name string, q []float64) error {
	if len(q) != m.NQ() {
		return fmt.Errorf("%w: %s has %d entries, want %d", ErrConfigSize, name, len(q), m.NQ())
	}
	if m.references == nil {
		m.references = make(map[string][]float64)
	}
	c := make([]float64, len(q))
	copy(c, q)
	m.references[name] = c
	return nil
}

func (m *Model) ReferenceNames() []string {
	names := make([]string, 0, len(m.references))
	for name := range m.references {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks tree ordering and frame attachment.
func (m *Model) Validate() error {
	seen := make(map[string]bool, len(m.Joints))
	for i, j := range m.Joints {
		if seen[j.Name] {
			return fmt.Errorf("%w: duplicate joint %s", ErrInvalidModel, j.Name)
		}
		seen[j.Name] = true
		if j.Parent < -1 || j.Parent >= i {
			return fmt.Errorf("%w: joint %s listed before its parent", ErrInvalidModel, j.Name)
		}
		if j.Axis.Norm() == 0 {
			return fmt.Errorf("%w: joint %s has a zero axis", ErrInvalidModel, j.Name)
		}
		if j.Lower > j.Upper {
			return fmt.Errorf("%w: joint %s has inverted limits", ErrInvalidModel, j.Name)
		}
	}
	for _, f := range m.Frames {
		if f.Joint < -1 || f.Joint >= len(m.Joints) {
			return fmt.Errorf("%w: frame %s attached to missing joint", ErrInvalidModel, f.Name)
		}
	}
	return nil
}

const maxAngle = math.Pi
