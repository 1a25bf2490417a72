package metrics

// Metric accumulates one scalar per observation.
type Metric interface {
	Name() string
	Observe(v float64)
	Value() float64
	Reset()
}

var (
	_ Metric = (*Timing)(nil)
	_ Metric = (*Convergence)(nil)
	_ Metric = (*ControlEffort)(nil)
)
