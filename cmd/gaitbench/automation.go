package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/san-kum/gaitbench/internal/automation"
	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/report"
)

func newScenarioCmd(o *options, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the benchmark steps of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			base, err := resolveConfig(cmd, o)
			if err != nil {
				return err
			}

			results, err := automation.RunScenario(cmd.Context(), sc, base, benchmarker(cmd, o, logger), logger)
			labels := make([]string, len(results))
			res := make([]*bench.Result, len(results))
			for i, r := range results {
				labels[i], res[i] = r.Name, r.Result
			}
			if len(res) > 0 {
				if name := sc.Name; name != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "scenario: %s\n", name)
				}
				if perr := report.Compare(cmd.OutOrStdout(), labels, res); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}

func newSweepCmd(o *options, logger *slog.Logger) *cobra.Command {
	var (
		param    string
		values   []float64
		from, to float64
		steps    int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "benchmark a range of values of one gait parameter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := resolveConfig(cmd, o)
			if err != nil {
				return err
			}

			sweep := &automation.Sweep{Param: param, Values: values}
			if !cmd.Flags().Changed("values") {
				sweep.Values = automation.Range(from, to, steps)
			}

			results, err := automation.RunSweep(cmd.Context(), sweep, base, benchmarker(cmd, o, logger), logger)
			labels := make([]string, len(results))
			res := make([]*bench.Result, len(results))
			for i, r := range results {
				labels[i] = param + "=" + strconv.FormatFloat(r.Value, 'g', -1, 64)
				res[i] = r.Result
			}
			if len(res) > 0 {
				if perr := report.Compare(cmd.OutOrStdout(), labels, res); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&param, "param", "step_knots", fmt.Sprintf("parameter to vary %v", automation.SweepParams()))
	cmd.Flags().Float64SliceVar(&values, "values", nil, "explicit values, comma separated")
	cmd.Flags().Float64Var(&from, "from", 5, "first value when --values is not set")
	cmd.Flags().Float64Var(&to, "to", 25, "last value when --values is not set")
	cmd.Flags().IntVar(&steps, "steps", 5, "number of values when --values is not set")

	return cmd
}
