package gait

import (
	"fmt"
	"sort"

	"github.com/san-kum/gaitbench/internal/dynamo"
	"github.com/san-kum/gaitbench/internal/ocp"
)

// Params describes the footstep timing and geometry shared by every gait.
type Params struct {
	StepLength   float64
	StepHeight   float64
	TimeStep     float64
	StepKnots    int
	SupportKnots int
}

func DefaultParams() Params {
	return Params{
		StepLength:   0.25,
		StepHeight:   0.25,
		TimeStep:     1e-2,
		StepKnots:    25,
		SupportKnots: 2,
	}
}

func (p Params) Validate() error {
	if p.TimeStep <= 0 {
		return fmt.Errorf("%w: time step %g", ErrInvalidParams, p.TimeStep)
	}
	if p.StepKnots < 1 {
		return fmt.Errorf("%w: %d step knots", ErrInvalidParams, p.StepKnots)
	}
	if p.SupportKnots < 0 {
		return fmt.Errorf("%w: %d support knots", ErrInvalidParams, p.SupportKnots)
	}
	return nil
}

// Builder creates the problem of one gait.
type Builder func(g *Generator, x0 dynamo.State, p Params) (*ocp.Problem, error)

var registry = map[string]Builder{
	"walking":  walking,
	"trotting": trotting,
	"pacing":   pacing,
	"bounding": bounding,
}

// Names lists the registered gaits in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Horizon returns the number of running knots the named gait produces.
func Horizon(name string, p Params) (int, error) {
	phases, ok := map[string]int{"walking": 4, "trotting": 2, "pacing": 2, "bounding": 2}[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownGait, name)
	}
	return 2*p.SupportKnots + phases*(p.StepKnots+1) - 1, nil
}

// CreateProblem builds the named gait starting from x0.
func (g *Generator) CreateProblem(name string, x0 dynamo.State, p Params) (*ocp.Problem, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGait, name)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return build(g, x0, p)
}

// CreateWalkingProblem builds one walking cycle: rh and rf steps, then lh
// and lf steps, each pair preceded by a support phase. The first cycle
// built by a generator uses half-length right steps.
func (g *Generator) CreateWalkingProblem(x0 dynamo.State, stepLength, stepHeight, timeStep float64, stepKnots, supportKnots int) (*ocp.Problem, error) {
	return g.CreateProblem("walking", x0, Params{
		StepLength:   stepLength,
		StepHeight:   stepHeight,
		TimeStep:     timeStep,
		StepKnots:    stepKnots,
		SupportKnots: supportKnots,
	})
}

// firstLength halves the opening step of the first cycle.
func (g *Generator) firstLength(length float64) float64 {
	if g.firstStep {
		g.firstStep = false
		return 0.5 * length
	}
	return length
}

type phase struct {
	feet   []foot
	length float64
}

func (g *Generator) cycle(x0 dynamo.State, p Params, first, second []phase) (*ocp.Problem, error) {
	w, err := g.newWalker(x0, p)
	if err != nil {
		return nil, err
	}
	for _, half := range [][]phase{first, second} {
		if err := w.support(p.SupportKnots); err != nil {
			return nil, err
		}
		for _, ph := range half {
			if err := w.step(ph.feet, ph.length); err != nil {
				return nil, err
			}
		}
	}
	return w.problem(x0)
}

func walking(g *Generator, x0 dynamo.State, p Params) (*ocp.Problem, error) {
	first := g.firstLength(p.StepLength)
	return g.cycle(x0, p,
		[]phase{{[]foot{g.rh}, first}, {[]foot{g.rf}, first}},
		[]phase{{[]foot{g.lh}, p.StepLength}, {[]foot{g.lf}, p.StepLength}},
	)
}

func trotting(g *Generator, x0 dynamo.State, p Params) (*ocp.Problem, error) {
	first := g.firstLength(p.StepLength)
	return g.cycle(x0, p,
		[]phase{{[]foot{g.rf, g.lh}, first}},
		[]phase{{[]foot{g.lf, g.rh}, p.StepLength}},
	)
}

func pacing(g *Generator, x0 dynamo.State, p Params) (*ocp.Problem, error) {
	first := g.firstLength(p.StepLength)
	return g.cycle(x0, p,
		[]phase{{[]foot{g.rf, g.rh}, first}},
		[]phase{{[]foot{g.lf, g.lh}, p.StepLength}},
	)
}

func bounding(g *Generator, x0 dynamo.State, p Params) (*ocp.Problem, error) {
	first := g.firstLength(p.StepLength)
	return g.cycle(x0, p,
		[]phase{{[]foot{g.lh, g.rh}, first}},
		[]phase{{[]foot{g.lf, g.rf}, p.StepLength}},
	)
}
