package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/gait"
	"github.com/san-kum/gaitbench/internal/metrics"
)

// ErrRunNotFound indicates an unknown run id.
var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
)

// Store keeps benchmark runs on disk, one directory per run holding
// metadata.json and samples.csv.
type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Info           bench.Info    `json:"info"`
	Trials         int           `json:"trials"`
	MaxIter        int           `json:"max_iter"`
	Regularization float64       `json:"regularization"`
	Params         gait.Params   `json:"params"`
	Solve          metrics.Stats `json:"solve"`
	Iterations     metrics.Stats `json:"iterations"`
	Calc           metrics.Stats `json:"calc"`
	CalcDiff       metrics.Stats `json:"calc_diff"`
	Convergence    float64       `json:"convergence"`
	FinalCost      float64       `json:"final_cost"`
	Effort         float64       `json:"control_effort"`
}

// Result rebuilds the summary part of a benchmark result.
func (m *RunMetadata) Result() *bench.Result {
	return &bench.Result{
		Info:        m.Info,
		Trials:      m.Trials,
		Solve:       m.Solve,
		Iterations:  m.Iterations,
		Calc:        m.Calc,
		CalcDiff:    m.CalcDiff,
		Convergence: m.Convergence,
		FinalCost:   m.FinalCost,
		Effort:      m.Effort,
	}
}

func (s *Store) Save(cfg bench.Config, result *bench.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", result.Info.Gait, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:             runID,
		Timestamp:      s.now(),
		Info:           result.Info,
		Trials:         result.Trials,
		MaxIter:        cfg.MaxIter,
		Regularization: cfg.Regularization,
		Params:         cfg.Params,
		Solve:          result.Solve,
		Iterations:     result.Iterations,
		Calc:           result.Calc,
		CalcDiff:       result.CalcDiff,
		Convergence:    result.Convergence,
		FinalCost:      result.FinalCost,
		Effort:         result.Effort,
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, samplesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"trial", "solve_ms", "iterations", "calc_ms", "calc_diff_ms"}); err != nil {
		return "", err
	}

	sm := result.Samples
	for i := 0; i < result.Trials; i++ {
		row := []string{
			strconv.Itoa(i),
			formatSample(sm.Solve, i),
			formatSample(sm.Iterations, i),
			formatSample(sm.Calc, i),
			formatSample(sm.CalcDiff, i),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return runID, nil
}

func formatSample(samples []float64, i int) string {
	if i >= len(samples) {
		return ""
	}
	return strconv.FormatFloat(samples[i], 'g', -1, 64)
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

// Latest returns the most recent run.
func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no runs in %s", ErrRunNotFound, s.baseDir)
	}
	return &runs[len(runs)-1], nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s metadata: %w", runID, err)
	}

	return &meta, nil
}

// LoadSamples reads the per-trial measurements of a run. Empty cells are
// skipped.
func (s *Store) LoadSamples(runID string) (bench.Samples, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return bench.Samples{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return bench.Samples{}, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return bench.Samples{}, err
	}

	var sm bench.Samples
	cols := []*[]float64{&sm.Solve, &sm.Iterations, &sm.Calc, &sm.CalcDiff}
	for i := 1; i < len(records); i++ {
		record := records[i]
		for j, col := range cols {
			if j+1 >= len(record) || record[j+1] == "" {
				continue
			}
			val, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return bench.Samples{}, fmt.Errorf("%s line %d: %w", samplesFile, i+1, err)
			}
			*col = append(*col, val)
		}
	}

	return sm, nil
}
