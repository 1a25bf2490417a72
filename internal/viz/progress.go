package viz

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/san-kum/gaitbench/internal/bench"
)

// Progress draws a progress bar per timed loop. It redraws only when the
// whole percentage changes so large trial counts stay cheap.
type Progress struct {
	w        io.Writer
	bar      progress.Model
	lastLoop bench.Loop
	lastPct  int
}

func NewProgress(w io.Writer, width int) *Progress {
	return &Progress{
		w:       w,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(width)),
		lastPct: -1,
	}
}

func (p *Progress) OnTrial(loop bench.Loop, trial, total int) {
	if total <= 0 {
		return
	}
	if loop != p.lastLoop {
		p.lastLoop, p.lastPct = loop, -1
	}
	pct := trial * 100 / total
	if pct == p.lastPct {
		return
	}
	p.lastPct = pct

	fmt.Fprintf(p.w, "\r%-26s %s", loop, p.bar.ViewAs(float64(trial)/float64(total)))
	if trial == total {
		fmt.Fprintln(p.w)
	}
}

var _ bench.Observer = (*Progress)(nil)
