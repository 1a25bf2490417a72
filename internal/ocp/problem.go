package ocp

import (
	"fmt"

	"github.com/san-kum/gaitbench/internal/dynamo"
)

// Problem is a shooting problem: an initial state, T running models and a
// terminal model, each paired with its own data.
type Problem struct {
	x0       dynamo.State
	running  []ActionModel
	terminal ActionModel

	runningDatas []*Data
	terminalData *Data
}

func NewProblem(x0 dynamo.State, running []ActionModel, terminal ActionModel) (*Problem, error) {
	if terminal == nil {
		return nil, fmt.Errorf("%w: terminal", ErrNilModel)
	}
	if err := terminal.State().CheckState(x0); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	if !x0.IsValid() {
		return nil, fmt.Errorf("initial state: %w", dynamo.ErrInvalidState)
	}
	p := &Problem{
		x0:           x0.Clone(),
		running:      running,
		terminal:     terminal,
		runningDatas: make([]*Data, len(running)),
		terminalData: terminal.CreateData(),
	}
	for i, m := range running {
		if m == nil {
			return nil, fmt.Errorf("%w: running model %d", ErrNilModel, i)
		}
		p.runningDatas[i] = m.CreateData()
	}
	return p, nil
}

// T is the number of running knots.
func (p *Problem) T() int { return len(p.running) }

func (p *Problem) X0() dynamo.State { return p.x0.Clone() }

func (p *Problem) RunningModels() []ActionModel { return p.running }

func (p *Problem) RunningDatas() []*Data { return p.runningDatas }

func (p *Problem) TerminalModel() ActionModel { return p.terminal }

func (p *Problem) TerminalData() *Data { return p.terminalData }

func (p *Problem) checkHorizon(xs []dynamo.State, us []dynamo.Control) error {
	if len(xs) != p.T()+1 || len(us) != p.T() {
		return fmt.Errorf("%w: got %d states and %d controls for T=%d",
			ErrHorizonMismatch, len(xs), len(us), p.T())
	}
	return nil
}

// Calc evaluates every knot and returns the total cost.
func (p *Problem) Calc(xs []dynamo.State, us []dynamo.Control) (float64, error) {
	if err := p.checkHorizon(xs, us); err != nil {
		return 0, err
	}
	total := 0.0
	for i, m := range p.running {
		if err := m.Calc(p.runningDatas[i], xs[i], us[i]); err != nil {
			return 0, fmt.Errorf("knot %d: %w", i, err)
		}
		total += p.runningDatas[i].Cost
	}
	if err := p.terminal.Calc(p.terminalData, xs[p.T()], nil); err != nil {
		return 0, fmt.Errorf("terminal knot: %w", err)
	}
	return total + p.terminalData.Cost, nil
}

// CalcDiff evaluates every knot together with its derivatives and returns the
// total cost.
func (p *Problem) CalcDiff(xs []dynamo.State, us []dynamo.Control) (float64, error) {
	if err := p.checkHorizon(xs, us); err != nil {
		return 0, err
	}
	total := 0.0
	for i, m := range p.running {
		if err := m.CalcDiff(p.runningDatas[i], xs[i], us[i]); err != nil {
			return 0, fmt.Errorf("knot %d: %w", i, err)
		}
		total += p.runningDatas[i].Cost
	}
	if err := p.terminal.CalcDiff(p.terminalData, xs[p.T()], nil); err != nil {
		return 0, fmt.Errorf("terminal knot: %w", err)
	}
	return total + p.terminalData.Cost, nil
}

// CostBreakdown sums the weighted cost terms of the last evaluation by
// name. Knots whose model does not expose a CostSum are skipped.
func (p *Problem) CostBreakdown() map[string]float64 {
	out := make(map[string]float64)
	add := func(m ActionModel, d *Data) {
		cm, ok := m.(interface{ Costs() *CostSum })
		if !ok {
			return
		}
		terms := d.CostTerms()
		for i, name := range cm.Costs().Names() {
			out[name] += terms[i]
		}
	}
	for i, m := range p.running {
		add(m, p.runningDatas[i])
	}
	add(p.terminal, p.terminalData)
	return out
}

// Rollout integrates us from x0 and returns the T+1 visited states.
func (p *Problem) Rollout(us []dynamo.Control) ([]dynamo.State, error) {
	if len(us) != p.T() {
		return nil, fmt.Errorf("%w: got %d controls for T=%d", ErrHorizonMismatch, len(us), p.T())
	}
	xs := make([]dynamo.State, p.T()+1)
	xs[0] = p.x0.Clone()
	for i, m := range p.running {
		d := p.runningDatas[i]
		if err := m.Calc(d, xs[i], us[i]); err != nil {
			return nil, fmt.Errorf("knot %d: %w", i, err)
		}
		xs[i+1] = d.Xnext.Clone()
	}
	return xs, nil
}

// QuasiStatic returns the quasi-static control of every running knot
// evaluated at the matching state of xs.
func (p *Problem) QuasiStatic(xs []dynamo.State) ([]dynamo.Control, error) {
	if len(xs) < p.T() {
		return nil, fmt.Errorf("%w: got %d states for T=%d", ErrHorizonMismatch, len(xs), p.T())
	}
	us := make([]dynamo.Control, p.T())
	for i, m := range p.running {
		u, err := m.QuasiStatic(p.runningDatas[i], xs[i])
		if err != nil {
			return nil, fmt.Errorf("knot %d: %w", i, err)
		}
		us[i] = u
	}
	return us, nil
}
