package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/capgen/capgen/pkg/observability"
	"github.com/capgen/capgen/pkg/pipeline"
)

// Stage indexes into the progress model. Order matches pipeline execution.
const (
	stageDecode = iota
	stageCompose
	stageEncode
	stageCompress
	stageCount
)

var stageNames = [stageCount]string{"Decode", "Caption", "Encode", "Compress"}

type stageStatus int

const (
	statusPending stageStatus = iota
	statusRunning
	statusDone
	statusFailed
	statusSkipped
)

// stageMsg updates one stage's display state.
type stageMsg struct {
	stage  int
	status stageStatus
	detail string
}

// runDoneMsg carries the pipeline outcome and quits the program.
type runDoneMsg struct {
	result *pipeline.Result
	err    error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// CaptionProgressModel is the bubbletea model showing per-stage progress of
// a captioning run.
type CaptionProgressModel struct {
	status [stageCount]stageStatus
	detail [stageCount]string
	frame  int

	result *pipeline.Result
	err    error
}

// NewCaptionProgressModel creates the progress model. Without a budget the
// compress stage is shown as skipped from the start.
func NewCaptionProgressModel(hasBudget bool) CaptionProgressModel {
	m := CaptionProgressModel{}
	if !hasBudget {
		m.status[stageCompress] = statusSkipped
	}
	return m
}

func (m CaptionProgressModel) Init() tea.Cmd {
	return tick()
}

func (m CaptionProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = context.Canceled
			return m, tea.Quit
		}
	case tickMsg:
		m.frame++
		return m, tick()
	case stageMsg:
		if msg.stage >= 0 && msg.stage < stageCount {
			m.status[msg.stage] = msg.status
			m.detail[msg.stage] = msg.detail
		}
	case runDoneMsg:
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m CaptionProgressModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Captioning"))
	b.WriteString("\n\n")

	for i := 0; i < stageCount; i++ {
		var icon string
		style := lipgloss.NewStyle()
		switch m.status[i] {
		case statusPending:
			icon, style = "·", StyleDim
		case statusRunning:
			icon = styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)])
		case statusDone:
			icon, style = styleIconSuccess.Render(iconSuccess), StyleValue
		case statusFailed:
			icon, style = styleIconError.Render(iconError), StyleWarning
		case statusSkipped:
			icon, style = "-", StyleDim
		}

		line := fmt.Sprintf("  %s %-9s", icon, stageNames[i])
		if m.detail[i] != "" {
			line += "  " + StyleDim.Render(m.detail[i])
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// Pipeline hooks → tea messages
// =============================================================================

// teaPipelineHooks forwards pipeline stage events into a running program.
type teaPipelineHooks struct {
	observability.NoopPipelineHooks
	send func(tea.Msg)
}

func (h *teaPipelineHooks) OnDecodeStart(context.Context, string) {
	h.send(stageMsg{stage: stageDecode, status: statusRunning})
}

func (h *teaPipelineHooks) OnDecodeComplete(_ context.Context, _, format string, frames int, d time.Duration, err error) {
	h.send(stageMsg{stage: stageDecode, status: doneStatus(err),
		detail: fmt.Sprintf("%s, %d frame(s), %s", format, max(frames, 1), d.Round(time.Millisecond))})
}

func (h *teaPipelineHooks) OnComposeStart(_ context.Context, frames int) {
	h.send(stageMsg{stage: stageCompose, status: statusRunning,
		detail: fmt.Sprintf("%d frame(s)", frames)})
}

func (h *teaPipelineHooks) OnComposeComplete(_ context.Context, frames int, d time.Duration, err error) {
	h.send(stageMsg{stage: stageCompose, status: doneStatus(err),
		detail: fmt.Sprintf("%d frame(s), %s", frames, d.Round(time.Millisecond))})
}

func (h *teaPipelineHooks) OnEncodeStart(_ context.Context, format string) {
	h.send(stageMsg{stage: stageEncode, status: statusRunning, detail: format})
}

func (h *teaPipelineHooks) OnEncodeComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	h.send(stageMsg{stage: stageEncode, status: doneStatus(err),
		detail: fmt.Sprintf("%s, %s, %s", format, formatBytes(size), d.Round(time.Millisecond))})
}

func (h *teaPipelineHooks) OnCompressStart(_ context.Context, _ string, budget int) {
	h.send(stageMsg{stage: stageCompress, status: statusRunning,
		detail: fmt.Sprintf("budget %s", formatBytes(budget))})
}

func (h *teaPipelineHooks) OnCompressComplete(_ context.Context, _ string, size int, budgetMet bool, d time.Duration, err error) {
	detail := fmt.Sprintf("%s, %s", formatBytes(size), d.Round(time.Millisecond))
	if !budgetMet {
		detail += ", budget missed"
	}
	h.send(stageMsg{stage: stageCompress, status: doneStatus(err), detail: detail})
}

func doneStatus(err error) stageStatus {
	if err != nil {
		return statusFailed
	}
	return statusDone
}

// runCaptionWithProgress executes the pipeline while a stage view runs in
// the foreground. Hooks are global, so only one progress run may be active
// per process; the CLI is single-command, which satisfies that.
func runCaptionWithProgress(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	p := tea.NewProgram(NewCaptionProgressModel(opts.Budget > 0),
		tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	observability.SetPipelineHooks(&teaPipelineHooks{send: p.Send})
	defer observability.SetPipelineHooks(observability.NoopPipelineHooks{})

	go func() {
		result, err := runner.Execute(ctx, opts)
		p.Send(runDoneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(CaptionProgressModel)
	return m.result, m.err
}
