// Command gaitbench times a trajectory optimizer on quadruped gait problems.
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/config"
	"github.com/san-kum/gaitbench/internal/report"
	"github.com/san-kum/gaitbench/internal/robot"
	"github.com/san-kum/gaitbench/internal/solver"
	"github.com/san-kum/gaitbench/internal/storage"
	"github.com/san-kum/gaitbench/internal/viz"
)

// options holds the flags shared by every command.
type options struct {
	configFile string
	preset     string
	gait       string
	solver     string
	modelDir   string
	dataDir    string
	save       bool
	json       bool
	plot       bool
	progress   bool
	verbose    bool
}

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("gaitbench failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "gaitbench [T]",
		Short: "benchmark a trajectory optimizer on quadruped gaits",
		Long: `gaitbench builds a quadruped gait problem, warm-starts it with the
quasi-static controls and times T solver calls, T problem evaluations and T
problem differentiations. T defaults to 5000.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if o.verbose && level != nil {
				level.Set(slog.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, args, o, logger)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&o.preset, "preset", "", "use preset configuration")
	pf.StringVar(&o.gait, "gait", "walking", "gait problem (walking, trotting, pacing, bounding)")
	pf.StringVar(&o.solver, "solver", solver.DefaultName, fmt.Sprintf("solver %v", solver.Names()))
	pf.StringVar(&o.modelDir, "model-dir", "", "directory with robot descriptions (default embedded)")
	pf.StringVar(&o.dataDir, "data", config.DefaultDataDir, "data directory")
	pf.BoolVar(&o.save, "save", false, "save the run to the data directory")
	pf.BoolVar(&o.json, "json", false, "print the result as JSON")
	pf.BoolVar(&o.plot, "plot", false, "plot per-trial durations")
	pf.BoolVar(&o.progress, "progress", false, "show progress bars (default on terminals)")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newListCmd(o),
		newShowCmd(o),
		newPlotCmd(o),
		newViewCmd(o),
		newPresetsCmd(),
		newInitCmd(o),
		newScenarioCmd(o, logger),
		newSweepCmd(o, logger),
	)

	return root
}

// resolveConfig applies, in order, the preset, the config file and the
// flags the user set explicitly.
func resolveConfig(cmd *cobra.Command, o *options) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if o.preset != "" {
		cfg = config.GetPreset(o.preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", o.preset, config.ListPresets())
		}
	}

	if o.configFile != "" {
		loaded, err := config.LoadFrom(o.configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("gait") {
		cfg.Gait.Name = o.gait
	}
	if cmd.Flags().Changed("solver") {
		cfg.Solver.Name = o.solver
	}
	if cmd.Flags().Changed("model-dir") {
		cfg.Robot.Dir = o.modelDir
	}
	if cmd.Flags().Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = o.dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore returns the run store of the resolved data directory.
func openStore(cmd *cobra.Command, o *options) (*storage.Store, error) {
	cfg, err := resolveConfig(cmd, o)
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.DataDir), nil
}

func modelFS(cfg *config.Config) fs.FS {
	if cfg.Robot.Dir == "" {
		return robot.Builtin()
	}
	return os.DirFS(cfg.Robot.Dir)
}

func showProgress(cmd *cobra.Command, o *options) bool {
	if cmd.Flags().Changed("progress") {
		return o.progress
	}
	f, ok := cmd.ErrOrStderr().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// benchmarker returns the function that prepares, runs and optionally
// saves one configuration.
func benchmarker(cmd *cobra.Command, o *options, logger *slog.Logger) func(ctx context.Context, cfg *config.Config) (*bench.Result, error) {
	progress := showProgress(cmd, o)

	return func(ctx context.Context, cfg *config.Config) (*bench.Result, error) {
		bcfg, err := cfg.Bench()
		if err != nil {
			return nil, err
		}
		bcfg.Verbose = o.verbose

		target, err := bench.Prepare(bcfg, robot.NewLoader(modelFS(cfg), logger), logger)
		if err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}

		runner := bench.NewRunner(time.Now, logger)
		if progress {
			runner.AddObserver(viz.NewProgress(cmd.ErrOrStderr(), 40))
		}
		res, err := runner.Run(ctx, bcfg, target)
		if err != nil {
			return nil, err
		}

		if o.save {
			st := storage.New(cfg.DataDir)
			if err := st.Init(); err != nil {
				return nil, err
			}
			runID, err := st.Save(bcfg, res)
			if err != nil {
				return nil, fmt.Errorf("save run: %w", err)
			}
			logger.Info("run saved", slog.String("id", runID), slog.String("dir", st.Dir()))
		}
		return res, nil
	}
}

func runBenchmark(cmd *cobra.Command, args []string, o *options, logger *slog.Logger) error {
	cfg, err := resolveConfig(cmd, o)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		trials, err := bench.ParseTrials(args[0])
		if err != nil {
			return err
		}
		cfg.Trials = trials
	}

	res, err := benchmarker(cmd, o, logger)(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res, o)
}

func printResult(w io.Writer, res *bench.Result, o *options) error {
	if o.json {
		return report.GenerateJSON(w, res)
	}
	if err := report.Legacy(w, res); err != nil {
		return err
	}
	if o.plot {
		fmt.Fprintln(w)
		return report.Plot(w, res.Samples)
	}
	return nil
}
