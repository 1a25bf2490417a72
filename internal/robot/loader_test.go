package robot

import (
	"bytes"
	"io/fs"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadHyQ(t *testing.T) *Model {
	t.Helper()
	l := NewLoader(Builtin(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	m, err := l.BuildModel(HyQDescription, JointFreeFlyer)
	require.NoError(t, err)
	require.NoError(t, l.LoadReferenceConfigurations(m, HyQReferences, false))
	return m
}

func TestBuildModelHyQ(t *testing.T) {
	m := loadHyQ(t)

	assert.Equal(t, "hyq", m.Name)
	assert.True(t, m.FreeFlyer())
	assert.Equal(t, 19, m.NQ())
	assert.Equal(t, 18, m.NV())
	assert.Len(t, m.Joints, 12)

	for _, name := range []string{"lf_foot", "rf_foot", "lh_foot", "rh_foot", "base_link"} {
		_, err := m.FrameID(name)
		assert.NoError(t, err, name)
	}

	_, err := m.FrameID("tail")
	assert.ErrorIs(t, err, ErrUnknownFrame)
}

func TestBuildModelFixedBase(t *testing.T) {
	l := NewLoader(Builtin(), nil)
	m, err := l.BuildModel(HyQDescription, JointFixed)
	require.NoError(t, err)

	assert.Equal(t, 12, m.NQ())
	assert.Equal(t, 12, m.NV())

	require.NoError(t, l.LoadReferenceConfigurations(m, HyQReferences, false))
	q, err := m.ReferenceConfiguration("standing")
	require.NoError(t, err)
	require.Len(t, q, 12, "base pose is skipped for a fixed root")

	id, err := m.JointID("lf_hfe_joint")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, q[id], 1e-12)
}

func TestLoadReferenceConfigurationsBadBase(t *testing.T) {
	fsys := fstest.MapFS{
		"hyq.yaml": {Data: mustRead(t, HyQDescription)},
		"short.yaml": {Data: []byte(`
configurations:
  tilted:
    base: [0, 0, 0.5, 1]
`)},
	}
	l := NewLoader(fsys, nil)
	m, err := l.BuildModel("hyq.yaml", JointFreeFlyer)
	require.NoError(t, err)

	err = l.LoadReferenceConfigurations(m, "short.yaml", false)
	assert.ErrorIs(t, err, ErrConfigSize)
}

func mustRead(t *testing.T, name string) []byte {
	t.Helper()
	data, err := fs.ReadFile(Builtin(), name)
	require.NoError(t, err)
	return data
}

func TestLoadReferenceConfigurations(t *testing.T) {
	m := loadHyQ(t)

	assert.Equal(t, []string{"crouched", "standing"}, m.ReferenceNames())

	q, err := m.ReferenceConfiguration("standing")
	require.NoError(t, err)
	require.Len(t, q, m.NQ())
	assert.InDelta(t, 0.5, q[2], 1e-12)
	assert.InDelta(t, 1.0, q[6], 1e-12)

	id, err := m.JointID("lf_hfe_joint")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, q[7+id], 1e-12)

	q[2] = 42
	again, _ := m.ReferenceConfiguration("standing")
	assert.InDelta(t, 0.5, again[2], 1e-12, "ReferenceConfiguration must return a copy")

	_, err = m.ReferenceConfiguration("sitting")
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestLoadReferenceConfigurationsVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoader(Builtin(), slog.New(slog.NewTextHandler(&buf, nil)))
	m, err := l.BuildModel(HyQDescription, JointFreeFlyer)
	require.NoError(t, err)

	require.NoError(t, l.LoadReferenceConfigurations(m, HyQReferences, true))
	assert.Contains(t, buf.String(), "name=standing")
}

func TestLoaderErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.yaml": {Data: []byte("joints: [this is: not valid")},
		"orphan.yaml": {Data: []byte(`
name: orphan
joints:
  - name: knee
    parent: hip
    axis: [0, 1, 0]
`)},
		"arm.yaml": {Data: []byte(`
name: arm
joints:
  - name: shoulder
    axis: [0, 0, 1]
frames:
  - name: tip
    joint: shoulder
    translation: [1, 0, 0]
`)},
		"arm.refs.yaml": {Data: []byte(`
robot: arm
configurations:
  up:
    joints:
      elbow: 1.0
`)},
	}
	l := NewLoader(fsys, nil)

	_, err := l.BuildModel("missing.yaml", JointFixed)
	assert.Error(t, err)

	_, err = l.BuildModel("bad.yaml", JointFixed)
	assert.Error(t, err)

	_, err = l.BuildModel("orphan.yaml", JointFixed)
	assert.ErrorIs(t, err, ErrInvalidModel)

	m, err := l.BuildModel("arm.yaml", JointFixed)
	require.NoError(t, err)
	assert.Equal(t, -3.141592653589793, m.Joints[0].Lower, "missing limits default to ±π")

	err = l.LoadReferenceConfigurations(m, "arm.refs.yaml", false)
	assert.ErrorIs(t, err, ErrUnknownJoint)
}

func TestParseJointType(t *testing.T) {
	jt, err := ParseJointType("free-flyer")
	require.NoError(t, err)
	assert.Equal(t, JointFreeFlyer, jt)

	jt, err = ParseJointType("fixed")
	require.NoError(t, err)
	assert.Equal(t, JointFixed, jt)

	_, err = ParseJointType("planar")
	assert.Error(t, err)
}
