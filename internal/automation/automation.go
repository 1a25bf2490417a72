// Package automation runs scripted sequences of benchmark configurations
// and parameter sweeps.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/config"
)

var (
	ErrUnknownPreset = errors.New("automation: unknown preset")
	ErrInvalidSweep  = errors.New("automation: invalid sweep")
	ErrEmptyScenario = errors.New("automation: scenario has no steps")
)

// RunFunc benchmarks one configuration.
type RunFunc func(ctx context.Context, cfg *config.Config) (*bench.Result, error)

// Scenario defines a scripted benchmark sequence.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep overrides the base configuration for a single run. Nil
// fields keep the base value.
type ScenarioStep struct {
	Name         string   `yaml:"name"`
	Preset       string   `yaml:"preset"`
	Gait         string   `yaml:"gait"`
	Trials       *int     `yaml:"trials"`
	MaxIter      *int     `yaml:"max_iter"`
	StepLength   *float64 `yaml:"step_length"`
	StepHeight   *float64 `yaml:"step_height"`
	TimeStep     *float64 `yaml:"time_step"`
	StepKnots    *int     `yaml:"step_knots"`
	SupportKnots *int     `yaml:"support_knots"`
}

// StepResult pairs a scenario step with its benchmark result.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *bench.Result
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(scenario.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	return &scenario, nil
}

// Apply returns a validated copy of base with the step's overrides. A
// preset replaces the benchmark settings of base but keeps its robot and
// data directory.
func (s ScenarioStep) Apply(base *config.Config) (*config.Config, error) {
	cfg := *base
	if s.Preset != "" {
		p := config.GetPreset(s.Preset)
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, s.Preset)
		}
		p.Robot, p.DataDir = base.Robot, base.DataDir
		cfg = *p
	}
	if s.Gait != "" {
		cfg.Gait.Name = s.Gait
	}
	setInt(&cfg.Trials, s.Trials)
	setInt(&cfg.Solver.MaxIter, s.MaxIter)
	setFloat(&cfg.Gait.StepLength, s.StepLength)
	setFloat(&cfg.Gait.StepHeight, s.StepHeight)
	setFloat(&cfg.Gait.TimeStep, s.TimeStep)
	setInt(&cfg.Gait.StepKnots, s.StepKnots)
	setInt(&cfg.Gait.SupportKnots, s.SupportKnots)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s ScenarioStep) label(i int) string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Preset != "":
		return s.Preset
	case s.Gait != "":
		return s.Gait
	}
	return fmt.Sprintf("step-%d", i+1)
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the results gathered so far.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, run RunFunc, logger *slog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.label(i)
		cfg, err := step.Apply(base)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}

		logger.Info("scenario step",
			slog.Int("step", i+1),
			slog.Int("of", len(scenario.Steps)),
			slog.String("name", name),
			slog.String("gait", cfg.Gait.Name),
		)

		res, err := run(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d (%s) run: %w", i+1, name, err)
		}
		results = append(results, StepResult{Name: name, Config: cfg, Result: res})
	}

	return results, nil
}

// Sweep varies one gait parameter over a list of values.
type Sweep struct {
	Param  string
	Values []float64
}

// SweepResult holds the result of one sweep value.
type SweepResult struct {
	Value  float64
	Result *bench.Result
}

type sweepParam struct {
	integer bool
	set     func(c *config.Config, v float64)
}

var sweepParams = map[string]sweepParam{
	"step_knots":    {true, func(c *config.Config, v float64) { c.Gait.StepKnots = int(v) }},
	"support_knots": {true, func(c *config.Config, v float64) { c.Gait.SupportKnots = int(v) }},
	"max_iter":      {true, func(c *config.Config, v float64) { c.Solver.MaxIter = int(v) }},
	"step_length":   {false, func(c *config.Config, v float64) { c.Gait.StepLength = v }},
	"step_height":   {false, func(c *config.Config, v float64) { c.Gait.StepHeight = v }},
	"time_step":     {false, func(c *config.Config, v float64) { c.Gait.TimeStep = v }},
}

// SweepParams lists the parameters a sweep can vary.
func SweepParams() []string {
	names := make([]string, 0, len(sweepParams))
	for name := range sweepParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Range returns n evenly spaced values from lo to hi inclusive.
func Range(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	step := (hi - lo) / float64(n-1)
	values := make([]float64, n)
	for i := range values {
		values[i] = lo + float64(i)*step
	}
	return values
}

// Configs returns the validated configuration of every sweep value.
func (s *Sweep) Configs(base *config.Config) ([]*config.Config, error) {
	p, ok := sweepParams[s.Param]
	if !ok {
		return nil, fmt.Errorf("%w: unknown parameter %q", ErrInvalidSweep, s.Param)
	}
	if len(s.Values) == 0 {
		return nil, fmt.Errorf("%w: no values", ErrInvalidSweep)
	}

	cfgs := make([]*config.Config, 0, len(s.Values))
	for _, v := range s.Values {
		if p.integer && v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %s needs integer values, got %v", ErrInvalidSweep, s.Param, v)
		}
		cfg := *base
		p.set(&cfg, v)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%v: %w", s.Param, v, err)
		}
		cfgs = append(cfgs, &cfg)
	}
	return cfgs, nil
}

// RunSweep benchmarks every sweep value. All values are validated before
// the first run.
func RunSweep(ctx context.Context, sweep *Sweep, base *config.Config, run RunFunc, logger *slog.Logger) ([]SweepResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfgs, err := sweep.Configs(base)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, 0, len(cfgs))
	for i, cfg := range cfgs {
		v := sweep.Values[i]
		res, err := run(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("%s=%v: %w", sweep.Param, v, err)
		}
		results = append(results, SweepResult{Value: v, Result: res})

		logger.Info("sweep",
			slog.Int("run", i+1),
			slog.Int("of", len(cfgs)),
			slog.String("param", sweep.Param),
			slog.Float64("value", v),
		)
	}
	return results, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
