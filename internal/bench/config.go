package bench

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/gaitbench/internal/gait"
	"github.com/san-kum/gaitbench/internal/robot"
	"github.com/san-kum/gaitbench/internal/solver"
)

// ErrInvalidTrials indicates a trial count that is not a non-negative
// integer.
var ErrInvalidTrials = errors.New("bench: trial count must be a non-negative integer")

const (
	DefaultTrials  = 5000
	DefaultMaxIter = 1000
	DefaultReg     = 0.1
)

// Config fully describes one benchmark run.
type Config struct {
	Trials         int
	Solver         string
	MaxIter        int
	Regularization float64
	ThStop         float64

	Description string
	References  string
	Root        robot.JointType
	Feet        [4]string
	Verbose     bool

	Gait    string
	Params  gait.Params
	Weights gait.Weights
}

func DefaultConfig() Config {
	return Config{
		Trials:         DefaultTrials,
		Solver:         solver.DefaultName,
		MaxIter:        DefaultMaxIter,
		Regularization: DefaultReg,
		ThStop:         solver.DefaultThStop,
		Description:    robot.HyQDescription,
		References:     robot.HyQReferences,
		Root:           robot.JointFreeFlyer,
		Feet:           [4]string{"lf_foot", "rf_foot", "lh_foot", "rh_foot"},
		Gait:           "walking",
		Params:         gait.DefaultParams(),
		Weights:        gait.DefaultWeights(),
	}
}

// ParseTrials parses the trial count argument.
func ParseTrials(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTrials, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTrials, n)
	}
	return n, nil
}
