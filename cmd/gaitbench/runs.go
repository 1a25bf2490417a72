package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/gaitbench/internal/config"
	"github.com/san-kum/gaitbench/internal/gait"
	"github.com/san-kum/gaitbench/internal/report"
	"github.com/san-kum/gaitbench/internal/storage"
	"github.com/san-kum/gaitbench/internal/viz"
)

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listRuns(cmd, o)
		},
	}
}

func newShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a saved run (default latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRun(cmd, args, o)
		},
	}
}

func newPlotCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-trial durations of a saved run (default latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return plotRun(cmd, args, o)
		},
	}
}

func newViewCmd(o *options) *cobra.Command {
	var theme string
	cmd := &cobra.Command{
		Use:   "view",
		Short: "browse saved runs interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd, o)
			if err != nil {
				return err
			}
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
				return nil
			}
			return viz.RunViewer(runs, st.LoadSamples, viz.GetTheme(theme))
		},
	}
	cmd.Flags().StringVar(&theme, "theme", viz.ThemeCyberpunk.Name, fmt.Sprintf("color theme %v", viz.ThemeNames()))
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tGAIT\tTRIALS\tMAXITER\tSTEP\tKNOTS\tHORIZON")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				p := gait.Params{
					StepLength:   cfg.Gait.StepLength,
					StepHeight:   cfg.Gait.StepHeight,
					TimeStep:     cfg.Gait.TimeStep,
					StepKnots:    cfg.Gait.StepKnots,
					SupportKnots: cfg.Gait.SupportKnots,
				}
				horizon, err := gait.Horizon(cfg.Gait.Name, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2fx%.2f\t%d+%d\t%d\n",
					name,
					cfg.Gait.Name,
					cfg.Trials,
					cfg.Solver.MaxIter,
					cfg.Gait.StepLength,
					cfg.Gait.StepHeight,
					cfg.Gait.StepKnots,
					cfg.Gait.SupportKnots,
					horizon,
				)
			}
			return w.Flush()
		},
	}
}

const defaultConfigFile = "gaitbench.yaml"

func newInitCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: fmt.Sprintf("write the resolved configuration to a yaml file (default %s)", defaultConfigFile),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			cfg, err := resolveConfig(cmd, o)
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

func loadRun(st *storage.Store, args []string) (*storage.RunMetadata, error) {
	if len(args) == 0 {
		return st.Latest()
	}
	return st.Load(args[0])
}

func listRuns(cmd *cobra.Command, o *options) error {
	st, err := openStore(cmd, o)
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGAIT\tSOLVER\tTIME\tTRIALS\tHORIZON\tSOLVE[ms]\tCALC[ms]\tCALCDIFF[ms]")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.4g\t%.4g\t%.4g\n",
			run.ID,
			run.Info.Gait,
			run.Info.Solver,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Trials,
			run.Info.T,
			run.Solve.Mean,
			run.Calc.Mean,
			run.CalcDiff.Mean,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string, o *options) error {
	st, err := openStore(cmd, o)
	if err != nil {
		return err
	}
	meta, err := loadRun(st, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "time: %s\n\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	return report.Generate(out, meta.Result())
}

func plotRun(cmd *cobra.Command, args []string, o *options) error {
	st, err := openStore(cmd, o)
	if err != nil {
		return err
	}
	meta, err := loadRun(st, args)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "gait: %s\n", meta.Info.Gait)
	fmt.Fprintf(out, "trials: %d\n\n", meta.Trials)
	return report.Plot(out, samples)
}
