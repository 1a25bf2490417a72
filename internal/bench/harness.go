// Package bench times a solver and a shooting problem over repeated trials.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/gaitbench/internal/dynamo"
	"github.com/san-kum/gaitbench/internal/gait"
	"github.com/san-kum/gaitbench/internal/metrics"
	"github.com/san-kum/gaitbench/internal/robot"
	"github.com/san-kum/gaitbench/internal/solver"
)

// Loop names the three timed loops. The values are the labels of the
// printed report.
type Loop string

const (
	LoopSolve    Loop = "DDP.solve"
	LoopCalc     Loop = "ShootingProblem.calc"
	LoopCalcDiff Loop = "ShootingProblem.calcDiff"
)

var Loops = []Loop{LoopSolve, LoopCalc, LoopCalcDiff}

// Problem is the part of a shooting problem the loops exercise.
type Problem interface {
	T() int
	Calc(xs []dynamo.State, us []dynamo.Control) (float64, error)
	CalcDiff(xs []dynamo.State, us []dynamo.Control) (float64, error)
}

// Info describes the problem being timed.
type Info struct {
	Robot  string `json:"robot"`
	Gait   string `json:"gait"`
	Solver string `json:"solver"`
	T      int    `json:"horizon"`
	Nx     int    `json:"nx"`
	Ndx    int    `json:"ndx"`
	Nu     int    `json:"nu"`
}

// Target is a prepared problem, its solver and the warm-start trajectories.
type Target struct {
	Info    Info
	Problem Problem
	Solver  solver.Solver
	Xs      []dynamo.State
	Us      []dynamo.Control
}

// Prepare loads the model, builds the gait problem and its solver, and
// warm-starts the controls with the quasi-static control at x0.
func Prepare(cfg Config, loader robot.Loader, logger *slog.Logger) (*Target, error) {
	if logger == nil {
		logger = slog.Default()
	}

	model, err := loader.BuildModel(cfg.Description, cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	if err := loader.LoadReferenceConfigurations(model, cfg.References, cfg.Verbose); err != nil {
		return nil, fmt.Errorf("load reference configurations: %w", err)
	}

	gen, err := gait.New(model, cfg.Feet[0], cfg.Feet[1], cfg.Feet[2], cfg.Feet[3])
	if err != nil {
		return nil, fmt.Errorf("gait generator: %w", err)
	}
	gen.SetWeights(cfg.Weights)

	x0 := gen.DefaultState()
	problem, err := gen.CreateProblem(cfg.Gait, x0, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("create %s problem: %w", cfg.Gait, err)
	}

	s, err := solver.New(cfg.Solver, problem, cfg.ThStop)
	if err != nil {
		return nil, err
	}

	xs := dynamo.Repeat(x0, problem.T()+1)
	us, err := problem.QuasiStatic(xs)
	if err != nil {
		return nil, fmt.Errorf("quasi-static warm start: %w", err)
	}

	if logger.Enabled(context.Background(), slog.LevelDebug) {
		cost, err := problem.Calc(xs, us)
		if err != nil {
			return nil, fmt.Errorf("warm start cost: %w", err)
		}
		logger.Debug("warm start",
			slog.Float64("cost", cost),
			slog.Any("terms", problem.CostBreakdown()),
		)
	}

	st := gen.State()
	info := Info{
		Robot:  gen.Model().Name,
		Gait:   cfg.Gait,
		Solver: cfg.Solver,
		T:      problem.T(),
		Nx:     st.Nx(),
		Ndx:    st.Ndx(),
		Nu:     st.Nv(),
	}
	logger.Info("problem ready",
		slog.String("robot", info.Robot),
		slog.String("gait", info.Gait),
		slog.String("solver", info.Solver),
		slog.Any("feet", gen.Feet()),
		slog.Int("horizon", info.T),
		slog.Int("nx", info.Nx),
		slog.Int("ndx", info.Ndx),
	)

	return &Target{Info: info, Problem: problem, Solver: s, Xs: xs, Us: us}, nil
}

// Clock returns the current time. time.Now carries a monotonic reading, so
// differences between two calls are unaffected by wall-clock changes.
type Clock func() time.Time

// Observer is notified synchronously after every trial.
type Observer interface {
	OnTrial(loop Loop, trial, total int)
}

type ObserverFunc func(loop Loop, trial, total int)

func (f ObserverFunc) OnTrial(loop Loop, trial, total int) { f(loop, trial, total) }

// Samples are the raw per-trial measurements.
type Samples struct {
	Solve      []float64 `json:"solve_ms"`
	Iterations []float64 `json:"iterations"`
	Calc       []float64 `json:"calc_ms"`
	CalcDiff   []float64 `json:"calc_diff_ms"`
}

// Result is the summary of one run.
type Result struct {
	Info        Info          `json:"info"`
	Trials      int           `json:"trials"`
	Solve       metrics.Stats `json:"solve"`
	Iterations  metrics.Stats `json:"iterations"`
	Calc        metrics.Stats `json:"calc"`
	CalcDiff    metrics.Stats `json:"calc_diff"`
	Convergence float64       `json:"convergence"`
	FinalCost   float64       `json:"final_cost"`
	Effort      float64       `json:"control_effort"`
	Samples     Samples       `json:"-"`
}

// Stats returns the summary of a loop.
func (r *Result) Stats(loop Loop) metrics.Stats {
	switch loop {
	case LoopSolve:
		return r.Solve
	case LoopCalc:
		return r.Calc
	default:
		return r.CalcDiff
	}
}

// Runner executes the timed loops.
type Runner struct {
	clock     Clock
	logger    *slog.Logger
	observers []Observer
}

func NewRunner(clock Clock, logger *slog.Logger) *Runner {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{clock: clock, logger: logger}
}

func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (r *Runner) notify(loop Loop, trial, total int) {
	for _, o := range r.observers {
		o.OnTrial(loop, trial, total)
	}
}

// Run times cfg.Trials solver calls, then cfg.Trials problem evaluations,
// then cfg.Trials problem differentiations. The context is checked before
// every trial.
func (r *Runner) Run(ctx context.Context, cfg Config, t *Target) (*Result, error) {
	if cfg.Trials < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTrials, cfg.Trials)
	}

	solve := metrics.NewTiming(string(LoopSolve), cfg.Trials)
	iters := metrics.NewTiming("iterations", cfg.Trials)
	calc := metrics.NewTiming(string(LoopCalc), cfg.Trials)
	calcDiff := metrics.NewTiming(string(LoopCalcDiff), cfg.Trials)
	conv := metrics.NewConvergence()

	loops := []struct {
		loop   Loop
		timing *metrics.Timing
		call   func() error
	}{
		{LoopSolve, solve, func() error {
			ok, err := t.Solver.Solve(t.Xs, t.Us, cfg.MaxIter, false, cfg.Regularization)
			if err != nil {
				return err
			}
			iters.Observe(float64(t.Solver.Iter()))
			if ok {
				conv.Observe(1)
			} else {
				conv.Observe(0)
			}
			return nil
		}},
		{LoopCalc, calc, func() error {
			_, err := t.Problem.Calc(t.Xs, t.Us)
			return err
		}},
		{LoopCalcDiff, calcDiff, func() error {
			_, err := t.Problem.CalcDiff(t.Xs, t.Us)
			return err
		}},
	}

	for _, l := range loops {
		for i := 0; i < cfg.Trials; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			start := r.clock()
			err := l.call()
			elapsed := r.clock().Sub(start)
			if err != nil {
				return nil, fmt.Errorf("%s trial %d: %w", l.loop, i, err)
			}
			l.timing.Observe(float64(elapsed.Nanoseconds()) / 1e6)
			r.notify(l.loop, i+1, cfg.Trials)
		}
		r.logger.Debug("loop done",
			slog.String("loop", string(l.loop)),
			slog.Int("trials", cfg.Trials),
			slog.Float64("mean_ms", l.timing.Value()),
		)
	}

	res := &Result{
		Info:        t.Info,
		Trials:      cfg.Trials,
		Solve:       solve.Stats(),
		Iterations:  iters.Stats(),
		Calc:        calc.Stats(),
		CalcDiff:    calcDiff.Stats(),
		Convergence: conv.Value(),
		Samples: Samples{
			Solve:      solve.Samples(),
			Iterations: iters.Samples(),
			Calc:       calc.Samples(),
			CalcDiff:   calcDiff.Samples(),
		},
	}
	if cfg.Trials > 0 {
		res.FinalCost = t.Solver.Cost()
		effort := metrics.NewControlEffort()
		effort.ObserveTrajectory(t.Solver.Us())
		res.Effort = effort.Value()
	}
	return res, nil
}
