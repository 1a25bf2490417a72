package viz

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/gaitbench/internal/bench"
	"github.com/san-kum/gaitbench/internal/report"
	"github.com/san-kum/gaitbench/internal/storage"
)

// SampleLoader returns the raw samples of a saved run.
type SampleLoader func(runID string) (bench.Samples, error)

const (
	listHeight = 8
	plotHeight = 10
)

// Viewer browses saved runs. Samples are loaded on first selection and
// cached.
type Viewer struct {
	runs          []storage.RunMetadata
	load          SampleLoader
	cache         map[string]bench.Samples
	errs          map[string]error
	cursor, loop  int
	theme         Theme
	viewport      viewport.Model
	width, height int
}

func NewViewer(runs []storage.RunMetadata, load SampleLoader, theme Theme) Viewer {
	v := Viewer{
		runs:     runs,
		load:     load,
		cache:    make(map[string]bench.Samples),
		errs:     make(map[string]error),
		theme:    theme,
		viewport: viewport.New(80, plotHeight+8),
		width:    80,
		height:   24,
	}
	v.refresh()
	return v
}

func (v Viewer) Init() tea.Cmd { return nil }

func (v Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
		v.viewport.Width = msg.Width
		v.viewport.Height = max(msg.Height-listHeight-6, 4)
		v.refresh()
	}
	return v, nil
}

func (v Viewer) handleKey(msg tea.KeyMsg) (Viewer, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return v, tea.Quit
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
			v.refresh()
		}
	case "down", "j":
		if v.cursor < len(v.runs)-1 {
			v.cursor++
			v.refresh()
		}
	case "tab", "l":
		v.loop = (v.loop + 1) % len(bench.Loops)
		v.refresh()
	case "shift+tab", "h":
		v.loop = (v.loop + len(bench.Loops) - 1) % len(bench.Loops)
		v.refresh()
	case "t":
		v.theme = nextTheme(v.theme)
	default:
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	}
	return v, nil
}

// Selected returns the run under the cursor.
func (v Viewer) Selected() (storage.RunMetadata, bool) {
	if len(v.runs) == 0 {
		return storage.RunMetadata{}, false
	}
	return v.runs[v.cursor], true
}

func (v Viewer) Loop() bench.Loop { return bench.Loops[v.loop] }

func (v *Viewer) samples(id string) (bench.Samples, error) {
	if s, ok := v.cache[id]; ok {
		return s, nil
	}
	if err, ok := v.errs[id]; ok {
		return bench.Samples{}, err
	}
	s, err := v.load(id)
	if err != nil {
		v.errs[id] = err
		return bench.Samples{}, err
	}
	v.cache[id] = s
	return s, nil
}

func (v *Viewer) refresh() {
	run, ok := v.Selected()
	if !ok {
		v.viewport.SetContent("no saved runs")
		return
	}

	var b bytes.Buffer
	report.Legacy(&b, run.Result())
	b.WriteString("\n")

	s, err := v.samples(run.ID)
	if err != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(v.theme.Error).Render(fmt.Sprintf("samples: %v", err)))
		v.viewport.SetContent(b.String())
		return
	}

	loop := v.Loop()
	var data []float64
	switch loop {
	case bench.LoopSolve:
		data = s.Solve
	case bench.LoopCalc:
		data = s.Calc
	default:
		data = s.CalcDiff
	}
	b.WriteString(report.PlotString(loop, data, max(v.width-12, 10), plotHeight))
	if loop == bench.LoopSolve && len(s.Iterations) > 0 {
		b.WriteString("\n\n" + MetricLabel.Render("iterations ") + SparklineChart(s.Iterations, max(v.width-14, 10)))
	}
	v.viewport.SetContent(b.String())
	v.viewport.GotoTop()
}

func (v Viewer) View() string {
	var b strings.Builder
	title := lipgloss.NewStyle().Foreground(v.theme.Primary).Bold(true)
	muted := lipgloss.NewStyle().Foreground(v.theme.Muted)
	accent := lipgloss.NewStyle().Foreground(v.theme.Accent)
	text := lipgloss.NewStyle().Foreground(v.theme.Text).Bold(true)

	b.WriteString(HeaderStyle.Render(title.Render("GAITBENCH") + " " + muted.Render(fmt.Sprintf("%d saved runs", len(v.runs)))))
	b.WriteString("\n")

	start := 0
	if v.cursor >= listHeight {
		start = v.cursor - listHeight + 1
	}
	for i := start; i < len(v.runs) && i < start+listHeight; i++ {
		run := v.runs[i]
		line := fmt.Sprintf("%-22s %-9s T=%-6d %s", run.ID, run.Info.Gait, run.Trials, run.Timestamp.Format("2006-01-02 15:04"))
		if i == v.cursor {
			b.WriteString(title.Render("▸ ") + text.Render(line) + "\n")
		} else {
			b.WriteString("  " + muted.Render(line) + "\n")
		}
	}

	b.WriteString(Separator(max(v.width-2, 8)) + "\n")
	b.WriteString(MetricLabel.Render("loop ") + accent.Render(string(v.Loop())) + "  " + MetricLabel.Render("theme ") + MetricValue.Render(v.theme.Name) + "\n")
	b.WriteString(v.viewport.View() + "\n")
	b.WriteString(KeyHint.Render("j/k run  tab loop  t theme  pgup/pgdn scroll  q quit"))
	return b.String()
}

// RunViewer blocks until the viewer is closed.
func RunViewer(runs []storage.RunMetadata, load SampleLoader, theme Theme) error {
	_, err := tea.NewProgram(NewViewer(runs, load, theme), tea.WithAltScreen()).Run()
	return err
}
