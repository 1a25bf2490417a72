package robot

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/san-kum/gaitbench/internal/spatial"
	"gopkg.in/yaml.v3"
)

// Paths of the HyQ quadruped inside the builtin model filesystem.
const (
	HyQDescription = "hyq/hyq.yaml"
	HyQReferences  = "hyq/hyq.refs.yaml"
)

//go:embed models
var builtin embed.FS

// Builtin returns the filesystem of models shipped with the binary.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtin, "models")
	if err != nil {
		panic(err)
	}
	return sub
}

// Loader builds robot models from description files.
type Loader interface {
	BuildModel(path string, root JointType) (*Model, error)
	LoadReferenceConfigurations(m *Model, path string, verbose bool) error
}

type description struct {
	Name   string      `yaml:"name"`
	Joints []jointSpec `yaml:"joints"`
	Frames []frameSpec `yaml:"frames"`
}

type jointSpec struct {
	Name   string     `yaml:"name"`
	Parent string     `yaml:"parent"`
	Origin [3]float64 `yaml:"origin"`
	Axis   [3]float64 `yaml:"axis"`
	Limits [2]float64 `yaml:"limits"`
}

type frameSpec struct {
	Name        string     `yaml:"name"`
	Joint       string     `yaml:"joint"`
	Translation [3]float64 `yaml:"translation"`
}

type referenceFile struct {
	Robot          string                     `yaml:"robot"`
	Configurations map[string]referenceConfig `yaml:"configurations"`
}

type referenceConfig struct {
	Base   []float64          `yaml:"base"`
	Joints map[string]float64 `yaml:"joints"`
}

// YAMLLoader reads model descriptions and reference configurations from a
// filesystem.
type YAMLLoader struct {
	fsys   fs.FS
	logger *slog.Logger
}

func NewLoader(fsys fs.FS, logger *slog.Logger) *YAMLLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &YAMLLoader{fsys: fsys, logger: logger}
}

func (l *YAMLLoader) BuildModel(path string, root JointType) (*Model, error) {
	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read description: %w", err)
	}

	var desc description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse description %s: %w", path, err)
	}

	m := &Model{Name: desc.Name, Root: root}
	index := make(map[string]int, len(desc.Joints))

	for _, js := range desc.Joints {
		parent := -1
		if js.Parent != "" {
			p, ok := index[js.Parent]
			if !ok {
				return nil, fmt.Errorf("%w: joint %s references parent %s before it is defined",
					ErrInvalidModel, js.Name, js.Parent)
			}
			parent = p
		}
		lower, upper := js.Limits[0], js.Limits[1]
		if lower == 0 && upper == 0 {
			lower, upper = -maxAngle, maxAngle
		}
		index[js.Name] = len(m.Joints)
		m.Joints = append(m.Joints, Joint{
			Name:   js.Name,
			Parent: parent,
			Origin: spatial.Vec3(js.Origin),
			Axis:   spatial.Vec3(js.Axis),
			Lower:  lower,
			Upper:  upper,
		})
	}

	for _, fsp := range desc.Frames {
		joint := -1
		if fsp.Joint != "" {
			j, ok := index[fsp.Joint]
			if !ok {
				return nil, fmt.Errorf("%w: frame %s", ErrUnknownJoint, fsp.Name)
			}
			joint = j
		}
		m.Frames = append(m.Frames, Frame{
			Name:        fsp.Name,
			Joint:       joint,
			Translation: spatial.Vec3(fsp.Translation),
		})
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	l.logger.Debug("model built",
		slog.String("robot", m.Name),
		slog.String("root", root.String()),
		slog.Int("nq", m.NQ()),
		slog.Int("nv", m.NV()),
	)

	return m, nil
}

// LoadReferenceConfigurations reads named configurations into m. Joints not
// listed keep their neutral value. A base pose must have 7 entries and is
// skipped for fixed-root models.
func (l *YAMLLoader) LoadReferenceConfigurations(m *Model, path string, verbose bool) error {
	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return fmt.Errorf("read references: %w", err)
	}

	var refs referenceFile
	if err := yaml.Unmarshal(data, &refs); err != nil {
		return fmt.Errorf("parse references %s: %w", path, err)
	}

	if refs.Robot != "" && refs.Robot != m.Name {
		l.logger.Warn("reference file targets a different robot",
			slog.String("file_robot", refs.Robot),
			slog.String("model", m.Name),
		)
	}

	for name, rc := range refs.Configurations {
		q := m.Neutral()

		switch {
		case len(rc.Base) == 0:
		case !m.FreeFlyer():
			l.logger.Debug("ignoring base pose for a fixed root",
				slog.String("configuration", name),
			)
		case len(rc.Base) != 7:
			return fmt.Errorf("%w: %s base pose has %d entries, want 7",
				ErrConfigSize, name, len(rc.Base))
		default:
			copy(q, rc.Base)
			quat := spatial.Quat{X: q[3], Y: q[4], Z: q[5], W: q[6]}.Normalize()
			q[3], q[4], q[5], q[6] = quat.X, quat.Y, quat.Z, quat.W
		}

		for joint, value := range rc.Joints {
			id, err := m.JointID(joint)
			if err != nil {
				return fmt.Errorf("configuration %s: %w", name, err)
			}
			q[m.baseQ()+id] = value
		}

		if err := m.SetReferenceConfiguration(name, q); err != nil {
			return err
		}

		if verbose {
			l.logger.Info("loaded reference configuration",
				slog.String("name", name),
				slog.Any("q", q),
			)
		}
	}

	return nil
}
