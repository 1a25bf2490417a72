package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/metrics"
)

func sampleResult() *bench.Result {
	return &bench.Result{
		Info:       bench.Info{Robot: "hyq", Gait: "walking", Solver: "gauss-newton", T: 107, Nx: 37, Ndx: 36, Nu: 18},
		Trials:     3,
		Solve:      metrics.Summarize([]float64{1, 2, 3}),
		Iterations: metrics.Summarize([]float64{4, 4, 7}),
		Calc:       metrics.Summarize([]float64{0.25, 0.5}),
		CalcDiff:   metrics.Summarize([]float64{1.5}),
		Samples: bench.Samples{
			Solve:    []float64{1, 2, 3},
			Calc:     []float64{0.25, 0.5},
			CalcDiff: []float64{1.5},
		},
	}
}

func TestLegacy(t *testing.T) {
	var buf bytes.Buffer
	if err := Legacy(&buf, sampleResult()); err != nil {
		t.Fatalf("Legacy failed: %v", err)
	}

	want := "  DDP.solve [ms]: 2 (1-3)\n" +
		"  DDP.solve Mean Iter : 5\n" +
		"  ShootingProblem.calc [ms]: 0.375 (0.25-0.5)\n" +
		"  ShootingProblem.calcDiff [ms]: 1.5 (1.5-1.5)\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestLegacyNoData(t *testing.T) {
	var buf bytes.Buffer
	if err := Legacy(&buf, &bench.Result{}); err != nil {
		t.Fatalf("Legacy failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, ": no data") {
			t.Errorf("expected no data, got %q", line)
		}
		if strings.Contains(line, "NaN") {
			t.Errorf("NaN in %q", line)
		}
	}
}

func TestLegacyNilResult(t *testing.T) {
	var buf bytes.Buffer
	if err := Legacy(&buf, nil); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, sampleResult()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"hyq walking (gauss-newton)", "horizon 107", "DDP.solve", "ShootingProblem.calcDiff", "0.375", "mean iterations"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestRowsNoData(t *testing.T) {
	rows := Rows(&bench.Result{})
	if len(rows) != len(bench.Loops) {
		t.Fatalf("expected %d rows, got %d", len(bench.Loops), len(rows))
	}
	for _, row := range rows {
		if row[1] != "no data" {
			t.Errorf("expected no data for %s, got %q", row[0], row[1])
		}
	}
}

func TestGenerateJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateJSON(&buf, sampleResult()); err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}

	var decoded bench.Result
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Info.T != 107 {
		t.Errorf("expected horizon 107, got %d", decoded.Info.T)
	}
	if decoded.Solve.Mean != 2 {
		t.Errorf("expected solve mean 2, got %v", decoded.Solve.Mean)
	}
	if strings.Contains(buf.String(), "solve_ms") {
		t.Error("raw samples should not be encoded")
	}
}

func TestPlot(t *testing.T) {
	var buf bytes.Buffer
	res := sampleResult()
	res.Samples.CalcDiff = nil
	if err := Plot(&buf, res.Samples); err != nil {
		t.Fatalf("Plot failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "DDP.solve [ms] per trial") {
		t.Error("expected solve caption")
	}
	if !strings.Contains(output, "ShootingProblem.calcDiff [ms] per trial: no data") {
		t.Error("expected no data for empty series")
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2"},
		{0.375, "0.375"},
		{1234567, "1.23457e+06"},
		{0.0000125, "1.25e-05"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	slow := sampleResult()
	slow.Solve = metrics.Summarize([]float64{4})
	empty := &bench.Result{Info: bench.Info{Gait: "pacing"}}

	var buf bytes.Buffer
	err := Compare(&buf, []string{"fast", "slow", "none"}, []*bench.Result{sampleResult(), slow, empty})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"fast", "slow", "1.00x", "2.00x", "pacing", "no data"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestCompareErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Compare(&buf, nil, nil); err == nil {
		t.Error("expected error for no results")
	}
	if err := Compare(&buf, []string{"a", "b"}, []*bench.Result{sampleResult()}); err == nil {
		t.Error("expected error for label mismatch")
	}
}
