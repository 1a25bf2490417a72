package bench_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/dynamo"
	"github.com/san-kum/gaitbench/internal/robot"
	"github.com/san-kum/gaitbench/internal/solver"
)

type fakeProblem struct {
	calls, diffCalls int
	err              error
}

func (p *fakeProblem) T() int { return 2 }

func (p *fakeProblem) Calc(xs []dynamo.State, us []dynamo.Control) (float64, error) {
	p.calls++
	return 1, p.err
}

func (p *fakeProblem) CalcDiff(xs []dynamo.State, us []dynamo.Control) (float64, error) {
	p.diffCalls++
	return 1, p.err
}

type fakeSolver struct {
	solves  int
	iter    int
	lastReg float64
	lastMax int
	err     error
}

func (s *fakeSolver) Solve(xs []dynamo.State, us []dynamo.Control, maxIter int, isFeasible bool, reg float64) (bool, error) {
	s.solves++
	s.lastReg, s.lastMax = reg, maxIter
	s.iter = s.solves
	return s.solves%2 == 0, s.err
}

func (s *fakeSolver) Iter() int            { return s.iter }
func (s *fakeSolver) Cost() float64        { return 3.5 }
func (s *fakeSolver) Xs() []dynamo.State   { return nil }
func (s *fakeSolver) Us() []dynamo.Control { return []dynamo.Control{{1, -1}} }

// steppingClock advances by one more millisecond on every second call, so
// trial i lasts i+1 ms.
func steppingClock() bench.Clock {
	now := time.Unix(0, 0)
	calls := 0
	return func() time.Time {
		calls++
		if calls%2 == 0 {
			now = now.Add(time.Duration(calls/2) * time.Millisecond)
		}
		return now
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

var _ = Describe("ParseTrials", func() {
	DescribeTable("valid counts",
		func(in string, want int) {
			n, err := bench.ParseTrials(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(want))
		},
		Entry("zero", "0", 0),
		Entry("default", "5000", 5000),
		Entry("padded", " 12 ", 12),
	)

	DescribeTable("invalid counts",
		func(in string) {
			_, err := bench.ParseTrials(in)
			Expect(err).To(MatchError(bench.ErrInvalidTrials))
		},
		Entry("word", "many"),
		Entry("negative", "-3"),
		Entry("float", "2.5"),
		Entry("empty", ""),
	)
})

var _ = Describe("Runner", func() {
	var (
		problem *fakeProblem
		opt     *fakeSolver
		target  *bench.Target
		cfg     bench.Config
		runner  *bench.Runner
	)

	BeforeEach(func() {
		problem = &fakeProblem{}
		opt = &fakeSolver{}
		target = &bench.Target{Problem: problem, Solver: opt}
		cfg = bench.DefaultConfig()
		runner = bench.NewRunner(steppingClock(), quietLogger())
	})

	It("reports no data for zero trials", func() {
		cfg.Trials = 0
		res, err := runner.Run(context.Background(), cfg, target)
		Expect(err).NotTo(HaveOccurred())

		for _, loop := range bench.Loops {
			Expect(res.Stats(loop).HasData()).To(BeFalse())
		}
		Expect(res.Iterations.HasData()).To(BeFalse())
		Expect(opt.solves).To(BeZero())
		Expect(problem.calls).To(BeZero())
	})

	It("runs each loop exactly T times with the solver arguments", func() {
		cfg.Trials = 4
		res, err := runner.Run(context.Background(), cfg, target)
		Expect(err).NotTo(HaveOccurred())

		Expect(opt.solves).To(Equal(4))
		Expect(problem.calls).To(Equal(4))
		Expect(problem.diffCalls).To(Equal(4))
		Expect(opt.lastMax).To(Equal(bench.DefaultMaxIter))
		Expect(opt.lastReg).To(Equal(0.1))

		Expect(res.Samples.Solve).To(HaveLen(4))
		Expect(res.Samples.Calc).To(HaveLen(4))
		Expect(res.Samples.CalcDiff).To(HaveLen(4))
		Expect(res.Samples.Iterations).To(Equal([]float64{1, 2, 3, 4}))
		Expect(res.Iterations.Mean).To(Equal(2.5))
		Expect(res.Convergence).To(Equal(0.5))
		Expect(res.FinalCost).To(Equal(3.5))
		Expect(res.Effort).To(Equal(1.0))
	})

	It("measures elapsed time in milliseconds with mean between min and max", func() {
		cfg.Trials = 3
		res, err := runner.Run(context.Background(), cfg, target)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Samples.Solve).To(Equal([]float64{1, 2, 3}))
		Expect(res.Solve.Min).To(Equal(1.0))
		Expect(res.Solve.Max).To(Equal(3.0))
		Expect(res.Solve.Mean).To(Equal(2.0))

		for _, loop := range bench.Loops {
			st := res.Stats(loop)
			Expect(st.Count).To(Equal(3))
			Expect(st.Mean).To(BeNumerically(">=", st.Min))
			Expect(st.Mean).To(BeNumerically("<=", st.Max))
		}
	})

	It("notifies observers after every trial", func() {
		var seen []bench.Loop
		runner.AddObserver(bench.ObserverFunc(func(loop bench.Loop, trial, total int) {
			Expect(trial).To(BeNumerically(">=", 1))
			Expect(trial).To(BeNumerically("<=", total))
			seen = append(seen, loop)
		}))

		cfg.Trials = 2
		_, err := runner.Run(context.Background(), cfg, target)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]bench.Loop{
			bench.LoopSolve, bench.LoopSolve,
			bench.LoopCalc, bench.LoopCalc,
			bench.LoopCalcDiff, bench.LoopCalcDiff,
		}))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		runner.AddObserver(bench.ObserverFunc(func(bench.Loop, int, int) { cancel() }))

		cfg.Trials = 10
		_, err := runner.Run(ctx, cfg, target)
		Expect(err).To(MatchError(context.Canceled))
		Expect(opt.solves).To(Equal(1))
	})

	It("propagates solver and problem failures", func() {
		boom := errors.New("boom")
		cfg.Trials = 2

		opt.err = boom
		_, err := runner.Run(context.Background(), cfg, target)
		Expect(err).To(MatchError(boom))
		Expect(err.Error()).To(ContainSubstring("DDP.solve trial 0"))

		opt.err = nil
		problem.err = boom
		_, err = runner.Run(context.Background(), cfg, target)
		Expect(err).To(MatchError(boom))
		Expect(err.Error()).To(ContainSubstring("ShootingProblem.calc trial 0"))
	})

	It("rejects a negative trial count", func() {
		cfg.Trials = -1
		_, err := runner.Run(context.Background(), cfg, target)
		Expect(err).To(MatchError(bench.ErrInvalidTrials))
	})
})

var _ = Describe("Prepare", func() {
	var loader *robot.YAMLLoader

	BeforeEach(func() {
		loader = robot.NewLoader(robot.Builtin(), quietLogger())
	})

	It("builds the HyQ walking problem with a quasi-static warm start", func() {
		cfg := bench.DefaultConfig()
		t, err := bench.Prepare(cfg, loader, quietLogger())
		Expect(err).NotTo(HaveOccurred())

		Expect(t.Info.Robot).To(Equal("hyq"))
		Expect(t.Info.Solver).To(Equal(solver.DefaultName))
		Expect(t.Solver).To(BeAssignableToTypeOf(&solver.GaussNewton{}))
		Expect(t.Info.Nx).To(Equal(37))
		Expect(t.Info.Ndx).To(Equal(36))
		Expect(t.Info.Nu).To(Equal(18))
		Expect(t.Info.T).To(Equal(107))
		Expect(t.Xs).To(HaveLen(t.Info.T + 1))
		Expect(t.Us).To(HaveLen(t.Info.T))
		for _, u := range t.Us {
			Expect(u[2]).To(BeNumerically("~", 9.81, 1e-12))
		}
	})

	It("builds a fixed-root problem from the free-flyer references", func() {
		cfg := bench.DefaultConfig()
		cfg.Root = robot.JointFixed
		cfg.Params.StepKnots = 4
		cfg.Params.SupportKnots = 1
		t, err := bench.Prepare(cfg, loader, quietLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Info.Nx).To(Equal(24))
		Expect(t.Info.Nu).To(Equal(12))
		Expect(t.Xs[0]).To(HaveLen(24))
	})

	It("logs the feet and the warm start cost terms at debug level", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		cfg := bench.DefaultConfig()
		cfg.Params.StepKnots = 4
		cfg.Params.SupportKnots = 1
		_, err := bench.Prepare(cfg, loader, logger)
		Expect(err).NotTo(HaveOccurred())

		out := buf.String()
		Expect(out).To(ContainSubstring("feet=\"[lf_foot rf_foot lh_foot rh_foot]\""))
		Expect(out).To(ContainSubstring("msg=\"warm start\""))
		Expect(out).To(ContainSubstring("stateReg:"))
	})

	It("wraps loader failures", func() {
		cfg := bench.DefaultConfig()
		cfg.Description = "missing/robot.yaml"
		_, err := bench.Prepare(cfg, loader, quietLogger())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("build model"))

		cfg = bench.DefaultConfig()
		cfg.Feet[3] = "tail"
		_, err = bench.Prepare(cfg, loader, quietLogger())
		Expect(err).To(MatchError(robot.ErrUnknownFrame))
	})

	It("builds the configured solver", func() {
		cfg := bench.DefaultConfig()
		cfg.Params.StepKnots = 4
		cfg.Params.SupportKnots = 1
		cfg.Solver = solver.GradientName
		cfg.ThStop = 1e-4
		t, err := bench.Prepare(cfg, loader, quietLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Solver).To(BeAssignableToTypeOf(&solver.Gradient{}))
		Expect(t.Solver.(*solver.Gradient).ThStop).To(Equal(1e-4))

		cfg.Solver = "newton"
		_, err = bench.Prepare(cfg, loader, quietLogger())
		Expect(err).To(MatchError(solver.ErrUnknownSolver))
	})

	It("runs end to end on a single trial", func() {
		cfg := bench.DefaultConfig()
		cfg.Trials = 1
		cfg.MaxIter = 2
		cfg.Params.StepKnots = 4
		cfg.Params.SupportKnots = 1

		t, err := bench.Prepare(cfg, loader, quietLogger())
		Expect(err).NotTo(HaveOccurred())

		res, err := bench.NewRunner(nil, quietLogger()).Run(context.Background(), cfg, t)
		Expect(err).NotTo(HaveOccurred())
		for _, loop := range bench.Loops {
			Expect(res.Stats(loop).Count).To(Equal(1))
			Expect(res.Stats(loop).Min).To(BeNumerically(">=", 0))
		}
		Expect(res.Iterations.Mean).To(BeNumerically("<=", 2))
		Expect(res.Info.Gait).To(Equal("walking"))
	})
})
