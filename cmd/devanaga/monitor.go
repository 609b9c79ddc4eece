package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"devana/internal/events"
)

// monitorModel is a read-only terminal progress display subscribing to
// the GA engine's worker→host event stream. It never sends
// commands back to the engine and never edits parameters — it is a
// passive viewer of the same typed stream any host would consume, not an
// interactive visualization or parameter-tuning surface.
type monitorModel struct {
	events <-chan events.Event

	percent  float64
	status   string
	gen      events.GenerationRecord
	bench    events.BenchmarkRecord
	finished bool
	failed   bool
	errMsg   string

	bar lipgloss.Style
	bg  progress.Model
}

func newMonitorModel(stream <-chan events.Event) monitorModel {
	return monitorModel{
		events: stream,
		status: "starting",
		bg:     progress.New(progress.WithDefaultGradient()),
		bar:    lipgloss.NewStyle().Bold(true),
	}
}

type eventMsg events.Event
type streamClosedMsg struct{}

func waitForEvent(stream <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-stream
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m monitorModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case eventMsg:
		ev := events.Event(msg)
		switch ev.Kind {
		case events.KindProgress:
			m.percent = float64(ev.Percent) / 100
		case events.KindStatus:
			m.status = ev.Text
		case events.KindGenerationMetrics:
			m.gen = ev.Generation
		case events.KindBenchmark:
			m.bench = ev.Benchmark
		case events.KindFinished:
			m.finished = true
			m.status = "finished"
			m.percent = 1
		case events.KindError:
			m.failed = true
			m.errMsg = ev.Text
		}
		if m.finished || m.failed {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case streamClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m monitorModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "devana run — %s\n\n", m.status)
	fmt.Fprintln(&b, m.bg.ViewAs(m.percent))

	if m.failed {
		fmt.Fprintf(&b, "\nerror: %s\n", m.errMsg)
		return b.String()
	}

	fmt.Fprintf(&b, "\ngeneration %d   min %.6f   mean %.6f   max %.6f   diversity %.4f\n",
		m.gen.Generation, m.gen.MinFitness, m.gen.MeanFitness, m.gen.MaxFitness, m.gen.Diversity)
	fmt.Fprintf(&b, "p_c %.3f   p_m %.3f   population %d\n",
		m.gen.CrossoverProb, m.gen.MutationProb, m.gen.PopulationSize)

	if m.finished {
		fmt.Fprintf(&b, "\nbenchmark: %d generations, %d evaluations, %d cache hits, %s elapsed\n",
			m.bench.TotalGenerations, m.bench.TotalEvaluations, m.bench.CacheHits, m.bench.Elapsed)
	}

	fmt.Fprintln(&b, "\n(press q to quit)")
	return b.String()
}
