package metrics

import "math"

// Stats summarizes a sample set. Count == 0 means there is no data and the
// other fields are meaningless.
type Stats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

func (s Stats) HasData() bool { return s.Count > 0 }

// Summarize returns mean, min and max of samples without producing NaN for
// an empty set.
func Summarize(samples []float64) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	st := Stats{Count: len(samples), Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, v := range samples {
		sum += v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	st.Mean = sum / float64(len(samples))
	return st
}

// Timing keeps every observed duration in milliseconds.
type Timing struct {
	name    string
	samples []float64
}

func NewTiming(name string, capacity int) *Timing {
	return &Timing{
		name:    name,
		samples: make([]float64, 0, capacity),
	}
}

func (t *Timing) Name() string { return t.name }

func (t *Timing) Observe(ms float64) {
	t.samples = append(t.samples, ms)
}

// Value is the mean duration, 0 without samples.
func (t *Timing) Value() float64 {
	return Summarize(t.samples).Mean
}

func (t *Timing) Stats() Stats { return Summarize(t.samples) }

func (t *Timing) Samples() []float64 {
	out := make([]float64, len(t.samples))
	copy(out, t.samples)
	return out
}

func (t *Timing) Reset() {
	t.samples = t.samples[:0]
}
