package metrics

// Convergence is the fraction of solver calls that reported convergence.
// Observe takes 1 for a converged call and 0 otherwise.
type Convergence struct {
	name      string
	converged int
	samples   int
}

func NewConvergence() *Convergence {
	return &Convergence{
		name: "convergence",
	}
}

func (c *Convergence) Name() string {
	return c.name
}

func (c *Convergence) Observe(v float64) {
	c.samples++
	if v > 0 {
		c.converged++
	}
}

func (c *Convergence) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.converged) / float64(c.samples)
}

func (c *Convergence) Reset() {
	c.converged = 0
	c.samples = 0
}
