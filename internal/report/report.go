// Package report formats benchmark results.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/metrics"
)

const noData = "no data"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffff"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444466"))
)

// Legacy writes the four classic benchmark lines:
//
//	DDP.solve [ms]: <mean> (<min>-<max>)
//	DDP.solve Mean Iter : <mean>
//	ShootingProblem.calc [ms]: <mean> (<min>-<max>)
//	ShootingProblem.calcDiff [ms]: <mean> (<min>-<max>)
func Legacy(w io.Writer, res *bench.Result) error {
	if res == nil {
		return fmt.Errorf("no result to report")
	}
	lines := []string{
		fmt.Sprintf("  %s [ms]: %s", bench.LoopSolve, formatRange(res.Solve)),
		fmt.Sprintf("  %s Mean Iter : %s", bench.LoopSolve, formatMean(res.Iterations)),
		fmt.Sprintf("  %s [ms]: %s", bench.LoopCalc, formatRange(res.Calc)),
		fmt.Sprintf("  %s [ms]: %s", bench.LoopCalcDiff, formatRange(res.CalcDiff)),
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// Generate writes a styled summary table of the run.
func Generate(w io.Writer, res *bench.Result) error {
	if res == nil {
		return fmt.Errorf("no result to report")
	}

	title := fmt.Sprintf("%s %s", res.Info.Robot, res.Info.Gait)
	if res.Info.Solver != "" {
		title += " (" + res.Info.Solver + ")"
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, labelStyle.Render(fmt.Sprintf("horizon %d  nx %d  ndx %d  nu %d  trials %d",
		res.Info.T, res.Info.Nx, res.Info.Ndx, res.Info.Nu, res.Trials)))

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("loop", "mean [ms]", "min [ms]", "max [ms]", "trials").
		Rows(Rows(res)...)
	fmt.Fprintln(w, t.Render())

	if res.Iterations.HasData() {
		fmt.Fprintf(w, "%s %s  %s %s  %s %s\n",
			labelStyle.Render("mean iterations"), formatFloat(res.Iterations.Mean),
			labelStyle.Render("converged"), fmt.Sprintf("%.0f%%", 100*res.Convergence),
			labelStyle.Render("final cost"), formatFloat(res.FinalCost),
		)
	}
	return nil
}

// Rows returns one table row per timed loop.
func Rows(res *bench.Result) [][]string {
	rows := make([][]string, 0, len(bench.Loops))
	for _, loop := range bench.Loops {
		st := res.Stats(loop)
		if !st.HasData() {
			rows = append(rows, []string{string(loop), noData, "-", "-", "0"})
			continue
		}
		rows = append(rows, []string{
			string(loop),
			formatFloat(st.Mean),
			formatFloat(st.Min),
			formatFloat(st.Max),
			strconv.Itoa(st.Count),
		})
	}
	return rows
}

// Compare writes one row per labelled result with the mean of every loop
// and the solve slowdown relative to the fastest run.
func Compare(w io.Writer, labels []string, results []*bench.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}
	if len(labels) != len(results) {
		return fmt.Errorf("%d labels for %d results", len(labels), len(results))
	}

	fastest := findFastest(results)
	rows := make([][]string, 0, len(results))
	for i, res := range results {
		slowdown := "-"
		if fastest > 0 && res.Solve.HasData() {
			slowdown = fmt.Sprintf("%.2fx", res.Solve.Mean/fastest)
		}
		rows = append(rows, []string{
			labels[i],
			res.Info.Gait,
			strconv.Itoa(res.Info.T),
			formatMean(res.Solve),
			formatMean(res.Iterations),
			formatMean(res.Calc),
			formatMean(res.CalcDiff),
			slowdown,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("run", "gait", "T", "solve [ms]", "iter", "calc [ms]", "calcDiff [ms]", "vs fastest").
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func findFastest(results []*bench.Result) float64 {
	fastest := math.Inf(1)
	for _, r := range results {
		if r.Solve.HasData() && r.Solve.Mean > 0 && r.Solve.Mean < fastest {
			fastest = r.Solve.Mean
		}
	}
	if math.IsInf(fastest, 1) {
		return 0
	}
	return fastest
}

// GenerateJSON writes the result as JSON to w.
func GenerateJSON(w io.Writer, res *bench.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(res)
}

// Plot writes a duration plot per loop of samples.
func Plot(w io.Writer, samples bench.Samples) error {
	series := []struct {
		loop bench.Loop
		data []float64
	}{
		{bench.LoopSolve, samples.Solve},
		{bench.LoopCalc, samples.Calc},
		{bench.LoopCalcDiff, samples.CalcDiff},
	}
	for _, s := range series {
		if _, err := fmt.Fprintln(w, PlotString(s.loop, s.data, 80, 10)); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// PlotString renders the per-trial durations of one loop.
func PlotString(loop bench.Loop, data []float64, width, height int) string {
	caption := fmt.Sprintf("%s [ms] per trial", loop)
	if len(data) == 0 {
		return fmt.Sprintf("%s: %s", caption, noData)
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

func formatRange(st metrics.Stats) string {
	if !st.HasData() {
		return noData
	}
	return fmt.Sprintf("%s (%s-%s)", formatFloat(st.Mean), formatFloat(st.Min), formatFloat(st.Max))
}

func formatMean(st metrics.Stats) string {
	if !st.HasData() {
		return noData
	}
	return formatFloat(st.Mean)
}

// formatFloat prints six significant digits without trailing zeros.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
