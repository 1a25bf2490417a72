package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/gaitbench/internal/gait"
	"github.com/san-kum/gaitbench/internal/robot"
	"github.com/san-kum/gaitbench/internal/solver"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Trials != 5000 {
		t.Errorf("expected 5000 trials, got %d", cfg.Trials)
	}
	if cfg.Solver.MaxIter != 1000 {
		t.Errorf("expected max_iter 1000, got %d", cfg.Solver.MaxIter)
	}
	if cfg.Gait.Name != "walking" {
		t.Errorf("expected walking gait, got %s", cfg.Gait.Name)
	}
	if cfg.Solver.Name != solver.DefaultName {
		t.Errorf("expected %s solver, got %s", solver.DefaultName, cfg.Solver.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	data := []byte("trials: 10\ngait:\n  name: trotting\n  step_knots: 8\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trials != 10 || cfg.Gait.Name != "trotting" || cfg.Gait.StepKnots != 8 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Gait.StepLength != DefaultStepLength || cfg.Solver.Regularization != DefaultRegularization {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFromPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte("trials: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	base := GetPreset("smoke")
	cfg, err := LoadFrom(path, base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trials != 7 {
		t.Errorf("expected 7 trials, got %d", cfg.Trials)
	}
	if cfg.Gait.StepKnots != 4 || cfg.Solver.MaxIter != 5 {
		t.Errorf("preset values lost: %+v", cfg)
	}
	if base.Trials != 1 {
		t.Error("LoadFrom must not modify base")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("trials: [1, 2"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	cfg := GetPreset("quick")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip changed config:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"negative trials", func(c *Config) { c.Trials = -1 }},
		{"zero time step", func(c *Config) { c.Gait.TimeStep = 0 }},
		{"no step knots", func(c *Config) { c.Gait.StepKnots = 0 }},
		{"negative support knots", func(c *Config) { c.Gait.SupportKnots = -2 }},
		{"zero regularization", func(c *Config) { c.Solver.Regularization = 0 }},
		{"unknown root", func(c *Config) { c.Robot.Root = "planar" }},
		{"missing foot", func(c *Config) { c.Robot.Feet.RH = "" }},
		{"negative weight", func(c *Config) { c.Weights.FootTrack = -1 }},
		{"unknown gait", func(c *Config) { c.Gait.Name = "galloping" }},
		{"unknown solver", func(c *Config) { c.Solver.Name = "newton" }},
		{"missing solver", func(c *Config) { c.Solver.Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Gait.Name = "galloping"
	if err := cfg.Validate(); !errors.Is(err, gait.ErrUnknownGait) {
		t.Errorf("expected ErrUnknownGait in chain, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Solver.Name = "newton"
	if err := cfg.Validate(); !errors.Is(err, solver.ErrUnknownSolver) {
		t.Errorf("expected ErrUnknownSolver in chain, got %v", err)
	}
}

func TestBench(t *testing.T) {
	cfg := GetPreset("smoke")
	bc, err := cfg.Bench()
	if err != nil {
		t.Fatal(err)
	}

	if bc.Solver != solver.DefaultName {
		t.Errorf("unexpected solver %s", bc.Solver)
	}
	if bc.Trials != 1 || bc.MaxIter != 5 {
		t.Errorf("unexpected trials/max_iter: %d/%d", bc.Trials, bc.MaxIter)
	}
	if bc.Root != robot.JointFreeFlyer {
		t.Errorf("expected free-flyer root, got %s", bc.Root)
	}
	if bc.Feet != [4]string{"lf_foot", "rf_foot", "lh_foot", "rh_foot"} {
		t.Errorf("unexpected feet %v", bc.Feet)
	}
	if bc.Params.StepKnots != 4 || bc.Params.SupportKnots != 1 {
		t.Errorf("unexpected params %+v", bc.Params)
	}
	if bc.Weights != gait.DefaultWeights() {
		t.Errorf("unexpected weights %+v", bc.Weights)
	}

	cfg.Trials = -5
	if _, err := cfg.Bench(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("trotting")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Gait.Name != "trotting" {
		t.Errorf("expected trotting, got %s", cfg.Gait.Name)
	}

	cfg.Trials = 1
	if GetPreset("trotting").Trials == 1 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(presets))
	}
	for _, name := range presets {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s does not validate: %v", name, err)
		}
	}
}
