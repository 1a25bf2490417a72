package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/metrics"
)

func sampleResult() *bench.Result {
	sm := bench.Samples{
		Solve:      []float64{1.5, 2.5},
		Iterations: []float64{3, 5},
		Calc:       []float64{0.25, 0.75},
		CalcDiff:   []float64{0.5, 1.5},
	}
	return &bench.Result{
		Info:        bench.Info{Robot: "hyq", Gait: "walking", T: 107, Nx: 37, Ndx: 36, Nu: 18},
		Trials:      2,
		Solve:       metrics.Summarize(sm.Solve),
		Iterations:  metrics.Summarize(sm.Iterations),
		Calc:        metrics.Summarize(sm.Calc),
		CalcDiff:    metrics.Summarize(sm.CalcDiff),
		Convergence: 0.5,
		FinalCost:   12.25,
		Samples:     sm,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res := sampleResult()
	runID, err := st.Save(bench.DefaultConfig(), res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !strings.HasPrefix(runID, "walking_") {
		t.Errorf("expected gait prefix in run id, got %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Info != res.Info {
		t.Errorf("expected info %+v, got %+v", res.Info, meta.Info)
	}
	if meta.Solve != res.Solve || meta.Iterations.Mean != 4 {
		t.Errorf("stats not preserved: %+v", meta)
	}
	if meta.MaxIter != bench.DefaultMaxIter || meta.Params.StepKnots != 25 {
		t.Errorf("config snapshot not preserved: %+v", meta)
	}
	if got := meta.Result(); got.FinalCost != 12.25 || got.Trials != 2 {
		t.Errorf("unexpected rebuilt result %+v", got)
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		t.Fatalf("load samples failed: %v", err)
	}
	if len(samples.Solve) != 2 || samples.Solve[1] != 2.5 {
		t.Errorf("unexpected solve samples %v", samples.Solve)
	}
	if samples.Iterations[1] != 5 || samples.CalcDiff[0] != 0.5 {
		t.Errorf("unexpected samples %+v", samples)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
	if _, err := st.Latest(); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		stamp := base.Add(time.Duration(2-i) * time.Hour)
		st.now = func() time.Time { return stamp }
		id, err := st.Save(bench.DefaultConfig(), sampleResult())
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		ids = append(ids, id)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[2].ID != ids[0] {
		t.Errorf("runs not ordered by timestamp: %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	latest, err := st.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != ids[0] {
		t.Errorf("expected latest %s, got %s", ids[0], latest.ID)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(bench.DefaultConfig(), sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}

	data, err := os.ReadFile(filepath.Join(runDir, "samples.csv"))
	if err != nil {
		t.Fatalf("samples.csv not created: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "trial,solve_ms,iterations,calc_ms,calc_diff_ms" {
		t.Errorf("unexpected header %q", lines[0])
	}
}

func TestStoreNoData(t *testing.T) {
	st := New(t.TempDir())
	res := &bench.Result{Info: bench.Info{Gait: "walking"}}

	runID, err := st.Save(bench.DefaultConfig(), res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Solve.HasData() {
		t.Error("expected no data for zero trials")
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples.Solve) != 0 {
		t.Errorf("expected no samples, got %v", samples.Solve)
	}
}

func TestStoreUnknownRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadSamples("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
