package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/gait"
	"github.com/san-kum/gaitbench/internal/robot"
	"github.com/san-kum/gaitbench/internal/solver"
)

const (
	DefaultTrials         = bench.DefaultTrials
	DefaultMaxIter        = bench.DefaultMaxIter
	DefaultRegularization = bench.DefaultReg
	DefaultThStop         = solver.DefaultThStop
	DefaultStepLength     = 0.25
	DefaultStepHeight     = 0.25
	DefaultTimeStep       = 0.01
	DefaultStepKnots      = 25
	DefaultSupportKnots   = 2
	DefaultDataDir        = ".gaitbench"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Trials  int           `yaml:"trials" validate:"gte=0"`
	Solver  SolverConfig  `yaml:"solver"`
	Robot   RobotConfig   `yaml:"robot"`
	Gait    GaitConfig    `yaml:"gait"`
	Weights WeightsConfig `yaml:"weights"`
	DataDir string        `yaml:"data_dir"`
}

type SolverConfig struct {
	Name           string  `yaml:"name" validate:"required"`
	MaxIter        int     `yaml:"max_iter" validate:"gte=0"`
	Regularization float64 `yaml:"regularization" validate:"gt=0"`
	ThStop         float64 `yaml:"th_stop" validate:"gt=0"`
}

type RobotConfig struct {
	// Dir is a directory holding description files; empty selects the
	// embedded models.
	Dir         string     `yaml:"dir"`
	Description string     `yaml:"description" validate:"required"`
	References  string     `yaml:"references" validate:"required"`
	Root        string     `yaml:"root" validate:"oneof=free-flyer fixed"`
	Feet        FeetConfig `yaml:"feet"`
}

type FeetConfig struct {
	LF string `yaml:"lf" validate:"required"`
	RF string `yaml:"rf" validate:"required"`
	LH string `yaml:"lh" validate:"required"`
	RH string `yaml:"rh" validate:"required"`
}

type GaitConfig struct {
	Name         string  `yaml:"name" validate:"required"`
	StepLength   float64 `yaml:"step_length" validate:"gte=0"`
	StepHeight   float64 `yaml:"step_height" validate:"gte=0"`
	TimeStep     float64 `yaml:"time_step" validate:"gt=0"`
	StepKnots    int     `yaml:"step_knots" validate:"gte=1"`
	SupportKnots int     `yaml:"support_knots" validate:"gte=0"`
}

type WeightsConfig struct {
	BaseTrack    float64 `yaml:"base_track" validate:"gte=0"`
	FootTrack    float64 `yaml:"foot_track" validate:"gte=0"`
	FootSupport  float64 `yaml:"foot_support" validate:"gte=0"`
	FootVelocity float64 `yaml:"foot_velocity" validate:"gte=0"`
	StateReg     float64 `yaml:"state_reg" validate:"gte=0"`
	ControlReg   float64 `yaml:"control_reg" validate:"gte=0"`
}

func DefaultConfig() *Config {
	w := gait.DefaultWeights()
	return &Config{
		Trials: DefaultTrials,
		Solver: SolverConfig{
			Name:           solver.DefaultName,
			MaxIter:        DefaultMaxIter,
			Regularization: DefaultRegularization,
			ThStop:         DefaultThStop,
		},
		Robot: RobotConfig{
			Description: robot.HyQDescription,
			References:  robot.HyQReferences,
			Root:        robot.JointFreeFlyer.String(),
			Feet:        FeetConfig{LF: "lf_foot", RF: "rf_foot", LH: "lh_foot", RH: "rh_foot"},
		},
		Gait: GaitConfig{
			Name:         "walking",
			StepLength:   DefaultStepLength,
			StepHeight:   DefaultStepHeight,
			TimeStep:     DefaultTimeStep,
			StepKnots:    DefaultStepKnots,
			SupportKnots: DefaultSupportKnots,
		},
		Weights: WeightsConfig(w),
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	return LoadFrom(path, DefaultConfig())
}

// LoadFrom reads path on top of a copy of base, so keys missing from the
// file keep the base values.
func LoadFrom(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and that the gait and solver are registered.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !slices.Contains(gait.Names(), c.Gait.Name) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, gait.ErrUnknownGait, c.Gait.Name)
	}
	if !slices.Contains(solver.Names(), c.Solver.Name) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, solver.ErrUnknownSolver, c.Solver.Name)
	}
	return nil
}

// Bench converts the file configuration into a harness configuration.
func (c *Config) Bench() (bench.Config, error) {
	if err := c.Validate(); err != nil {
		return bench.Config{}, err
	}
	root, err := robot.ParseJointType(c.Robot.Root)
	if err != nil {
		return bench.Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return bench.Config{
		Trials:         c.Trials,
		Solver:         c.Solver.Name,
		MaxIter:        c.Solver.MaxIter,
		Regularization: c.Solver.Regularization,
		ThStop:         c.Solver.ThStop,
		Description:    c.Robot.Description,
		References:     c.Robot.References,
		Root:           root,
		Feet:           [4]string{c.Robot.Feet.LF, c.Robot.Feet.RF, c.Robot.Feet.LH, c.Robot.Feet.RH},
		Gait:           c.Gait.Name,
		Params: gait.Params{
			StepLength:   c.Gait.StepLength,
			StepHeight:   c.Gait.StepHeight,
			TimeStep:     c.Gait.TimeStep,
			StepKnots:    c.Gait.StepKnots,
			SupportKnots: c.Gait.SupportKnots,
		},
		Weights: gait.Weights(c.Weights),
	}, nil
}
