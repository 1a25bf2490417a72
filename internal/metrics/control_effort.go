package metrics

import (
	"math"

	"github.com/san-kum/gaitbench/internal/dynamo"
)

type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(v float64) {
	c.sum += math.Abs(v)
	c.samples++
}

// ObserveTrajectory adds every entry of every control in us.
func (c *ControlEffort) ObserveTrajectory(us []dynamo.Control) {
	for _, u := range us {
		for _, v := range u {
			c.Observe(v)
		}
	}
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
