// Package tui renders conversion progress as an interactive terminal
// display. It follows the Elm architecture via Bubbletea: progress
// events from the pipeline arrive as messages and the view re-renders.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/narrata-labs/narrata-cli/internal/core/ports/driving"
)

// eventBuffer bounds the event channel; rendering never blocks the
// synthesis workers, late events are dropped instead.
const eventBuffer = 64

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	chapterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// progressMsg wraps a pipeline progress event.
type progressMsg driving.ProgressEvent

// doneMsg carries the conversion outcome.
type doneMsg struct {
	result *driving.ConvertResult
	err    error
}

// model is the Bubbletea model for one conversion.
type model struct {
	spinner spinner.Model
	bar     progress.Model
	events  <-chan driving.ProgressEvent
	cancel  context.CancelFunc

	stage        driving.Stage
	chapterCount int
	chaptersDone int
	chapter      int
	chunk        int
	chunkCount   int

	result *driving.ConvertResult
	err    error
	width  int
}

// Ensure model implements tea.Model.
var _ tea.Model = (*model)(nil)

func newModel(events <-chan driving.ProgressEvent, cancel context.CancelFunc) *model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &model{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		events:  events,
		cancel:  cancel,
		stage:   driving.StageExtract,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent delivers the next pipeline event as a message.
func (m *model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return progressMsg(ev)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Cancel and keep running until the pipeline reports back.
			m.cancel()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-8, 50)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		return m.applyEvent(driving.ProgressEvent(msg))

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case doneMsg:
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// applyEvent folds one pipeline event into the model.
func (m *model) applyEvent(ev driving.ProgressEvent) (tea.Model, tea.Cmd) {
	m.stage = ev.Stage
	if ev.ChapterCount > 0 {
		m.chapterCount = ev.ChapterCount
	}

	cmds := []tea.Cmd{m.waitForEvent()}
	switch ev.Stage {
	case driving.StageSynthesize:
		m.chapter = ev.Chapter
		m.chunk = ev.Chunk
		m.chunkCount = ev.ChunkCount
	case driving.StageAssemble:
		m.chaptersDone++
		if m.chapterCount > 0 {
			cmds = append(cmds, m.bar.SetPercent(float64(m.chaptersDone)/float64(m.chapterCount)))
		}
	case driving.StagePackage:
		cmds = append(cmds, m.bar.SetPercent(1))
	}
	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("narrata"))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(stageStyle.Render(m.stageLine()))
	b.WriteString("\n\n")

	if m.chapterCount > 0 {
		b.WriteString(m.bar.View())
		b.WriteString("\n")
		b.WriteString(chapterStyle.Render(
			fmt.Sprintf("%d/%d chapters", m.chaptersDone, m.chapterCount)))
		b.WriteString("\n")
	}

	b.WriteString(stageStyle.Render("press q to cancel"))
	b.WriteString("\n")
	return b.String()
}

// stageLine describes what the pipeline is doing right now.
func (m *model) stageLine() string {
	switch m.stage {
	case driving.StageExtract:
		return "extracting chapters"
	case driving.StageSynthesize:
		if m.chunkCount > 0 {
			return fmt.Sprintf("narrating chapter %d (chunk %d/%d)", m.chapter+1, m.chunk+1, m.chunkCount)
		}
		return "narrating"
	case driving.StageAssemble:
		return fmt.Sprintf("assembling chapter %d", m.chapter+1)
	case driving.StagePackage:
		return "encoding audiobook"
	default:
		return "working"
	}
}

// RunConversion drives a conversion while rendering progress. It
// returns the pipeline's result; pressing q cancels the conversion and
// surfaces the pipeline's cancellation error.
func RunConversion(ctx context.Context, converter driving.Converter, req driving.ConvertRequest) (*driving.ConvertResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan driving.ProgressEvent, eventBuffer)
	req.Emit = func(ev driving.ProgressEvent) {
		select {
		case events <- ev:
		default: // rendering is behind, drop
		}
	}

	// The program quits on doneMsg, so a cancellation (q or an outer
	// signal) still drains through the pipeline's own error path.
	program := tea.NewProgram(newModel(events, cancel))

	go func() {
		result, err := converter.Convert(ctx, req)
		program.Send(doneMsg{result: result, err: err})
	}()

	final, err := program.Run()
	if err != nil {
		cancel()
		return nil, err
	}

	fm := final.(*model)
	return fm.result, fm.err
}
