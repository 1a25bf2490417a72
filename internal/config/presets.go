package config

import "sort"

func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

var Presets = map[string]*Config{
	"walking": DefaultConfig(),
	"trotting": preset(func(c *Config) {
		c.Gait.Name = "trotting"
		c.Gait.StepLength = 0.15
		c.Gait.StepHeight = 0.1
	}),
	"pacing": preset(func(c *Config) {
		c.Gait.Name = "pacing"
		c.Gait.StepLength = 0.15
		c.Gait.StepHeight = 0.1
		c.Gait.StepKnots = 25
		c.Gait.SupportKnots = 5
	}),
	"bounding": preset(func(c *Config) {
		c.Gait.Name = "bounding"
		c.Gait.StepLength = 0.15
		c.Gait.StepHeight = 0.1
		c.Gait.StepKnots = 25
		c.Gait.SupportKnots = 5
	}),
	"quick": preset(func(c *Config) {
		c.Trials = 100
		c.Solver.MaxIter = 50
		c.Gait.StepKnots = 10
	}),
	"smoke": preset(func(c *Config) {
		c.Trials = 1
		c.Solver.MaxIter = 5
		c.Gait.StepKnots = 4
		c.Gait.SupportKnots = 1
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
