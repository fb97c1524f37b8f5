package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/layout"
	"github.com/matzehuels/graphstudio/pkg/runviz"
	"github.com/matzehuels/graphstudio/pkg/studio"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	sectionStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorGray).MarginTop(1)
	promptBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorYellow).Padding(0, 1)
)

// Limits of the sidebar sections.
const (
	maxToolRows   = 6
	maxChunkRows  = 4
	progressWidth = 24
	valueWidth    = 48
)

// =============================================================================
// Messages
// =============================================================================

type (
	loadedMsg     struct{ err error }
	runStartedMsg struct {
		run *studio.Run
		err error
	}
	stepMsg struct {
		run  *studio.Run
		done bool
	}
	submittedMsg struct{ err error }
)

// =============================================================================
// watchModel - Live run view
// =============================================================================

// watchModel is the bubbletea model of the watch command. All backend I/O
// runs in commands; Update only reads controller snapshots.
type watchModel struct {
	ctx       context.Context
	ctrl      *studio.Controller
	autoStart bool

	run       *studio.Run
	state     runviz.RunState
	render    *layout.Result
	pendingID string
	cursor    int
	notice    string
	quitting  bool
}

func newWatchModel(ctx context.Context, ctrl *studio.Controller, autoStart bool) watchModel {
	return watchModel{
		ctx:       ctx,
		ctrl:      ctrl,
		autoStart: autoStart,
		state:     ctrl.Snapshot(),
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m watchModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.ctrl.Load(m.ctx)}
	}
}

func (m watchModel) startCmd() tea.Cmd {
	return func() tea.Msg {
		run, err := m.ctrl.StartRun(m.ctx)
		return runStartedMsg{run: run, err: err}
	}
}

func (m watchModel) stepCmd(run *studio.Run) tea.Cmd {
	return func() tea.Msg {
		return stepMsg{run: run, done: m.ctrl.Step(m.ctx, run)}
	}
}

func (m watchModel) submitCmd(response string) tea.Cmd {
	return func() tea.Msg {
		return submittedMsg{err: m.ctrl.Submit(m.ctx, response)}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadedMsg:
		m.sync()
		m.render = m.ctrl.Render()
		m.run = nil
		if msg.err != nil {
			m.notice = errs.UserMessage(msg.err)
			return m, nil
		}
		m.notice = ""
		if m.autoStart {
			m.autoStart = false
			return m, m.startCmd()
		}

	case runStartedMsg:
		m.sync()
		if errors.Is(msg.err, studio.ErrSuperseded) {
			return m, nil
		}
		if msg.err != nil {
			m.notice = errs.UserMessage(msg.err)
			return m, nil
		}
		m.run = msg.run
		return m, m.stepCmd(msg.run)

	case stepMsg:
		if msg.run != m.run {
			return m, nil
		}
		m.sync()
		if msg.done {
			m.run = nil
			return m, nil
		}
		return m, m.stepCmd(msg.run)

	case submittedMsg:
		m.sync()
		if msg.err != nil {
			m.notice = errs.UserMessage(msg.err)
		}
	}
	return m, nil
}

func (m watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.ctrl.Close()
		return m, tea.Quit
	case "r":
		if m.render == nil || m.state.Phase == runviz.PhaseLoading {
			return m, nil
		}
		m.notice = ""
		return m, m.startCmd()
	case "g":
		m.notice = ""
		m.run = nil
		m.render = nil
		return m, m.loadCmd()
	case "up", "k", "left", "h", "shift+tab":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "right", "l", "tab":
		if p := m.state.Pending; p != nil && m.cursor < len(p.Options)-1 {
			m.cursor++
		}
	case "enter":
		p := m.state.Pending
		if p == nil || p.Submitting || len(p.Options) == 0 {
			return m, nil
		}
		m.notice = ""
		m.state.Pending.Submitting = true
		return m, m.submitCmd(p.Options[m.cursor])
	}
	return m, nil
}

// sync refreshes the state snapshot and resets the option cursor when a new
// input request arrives.
func (m *watchModel) sync() {
	m.state = m.ctrl.Snapshot()
	p := m.state.Pending
	switch {
	case p == nil:
		m.pendingID, m.cursor = "", 0
	case p.RequestID != m.pendingID:
		m.pendingID, m.cursor = p.RequestID, 0
	case m.cursor >= len(p.Options):
		m.cursor = max(len(p.Options)-1, 0)
	}
}

func (m watchModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Graphstudio"))
	b.WriteString("  ")
	b.WriteString(phaseStyle(m.state.Phase).Render(m.state.StatusLabel()))
	b.WriteString("\n")
	if m.state.Error != "" {
		b.WriteString(StyleError.Render(m.state.Error))
		b.WriteString("\n")
	}

	b.WriteString(renderNodes(m.render, m.state))
	b.WriteString(renderTools(m.state.Tools))
	b.WriteString(renderStream(m.state.Stream))
	b.WriteString(renderPending(m.state.Pending, m.cursor))

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render(iconWarning + " " + m.notice))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("r run  g reload  ↑/↓ select  ⏎ submit  q quit"))
	return b.String()
}

func phaseStyle(p runviz.Phase) lipgloss.Style {
	switch p {
	case runviz.PhaseRunning:
		return statusStyles[runviz.StatusActive]
	case runviz.PhaseError:
		return statusStyles[runviz.StatusError]
	case runviz.PhaseReady:
		return statusStyles[runviz.StatusDone]
	}
	return statusStyles[runviz.StatusIdle]
}

// =============================================================================
// Sections
// =============================================================================

// renderNodes lists nodes level by level with their status and counts the
// taken edges.
func renderNodes(r *layout.Result, st runviz.RunState) string {
	if r == nil {
		return "\n" + listDimStyle.Render("No graph loaded") + "\n"
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Graph"))
	b.WriteString("\n")

	byLevel := map[int][]layout.PlacedNode{}
	for _, n := range r.Nodes {
		byLevel[n.Level] = append(byLevel[n.Level], n)
	}
	levels := make([]int, 0, len(byLevel))
	for l := range byLevel {
		levels = append(levels, l)
	}
	slices.Sort(levels)

	for _, l := range levels {
		cells := make([]string, 0, len(byLevel[l]))
		for _, n := range byLevel[l] {
			status := st.Nodes[n.ID]
			if status == "" {
				status = runviz.StatusIdle
			}
			label := n.Label
			if n.Dynamic {
				label = "(" + label + ")"
			}
			cells = append(cells, statusStyles[status].Render(statusIcon(status)+" "+label))
		}
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  L%-2d ", l)))
		b.WriteString(strings.Join(cells, "   "))
		b.WriteString("\n")
	}

	taken := 0
	for _, e := range r.Edges {
		if st.Edges[e.Key] {
			taken++
		}
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d/%d edges taken", taken, len(r.Edges))))
	b.WriteString("\n")
	return b.String()
}

// renderTools shows the most recent tool activity first.
func renderTools(tools []runviz.ToolActivity) string {
	if len(tools) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Tools"))
	b.WriteString("\n")
	for i, t := range tools {
		if i == maxToolRows {
			b.WriteString(listDimStyle.Render(fmt.Sprintf("  … %d more", len(tools)-maxToolRows)))
			b.WriteString("\n")
			break
		}
		icon, style := iconActive, statusStyles[runviz.StatusActive]
		switch {
		case t.Completed && t.Success:
			icon, style = iconSuccess, statusStyles[runviz.StatusDone]
		case t.Completed:
			icon, style = iconError, statusStyles[runviz.StatusError]
		}
		line := style.Render(icon+" "+t.ToolName) + listDimStyle.Render(" @ "+t.NodeID)
		if len(t.Output) > 0 {
			line += " " + listNormalStyle.Render(truncate(string(t.Output), valueWidth))
		} else if len(t.Arguments) > 0 {
			line += " " + listDimStyle.Render(truncate(string(t.Arguments), valueWidth))
		}
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}

// renderStream shows the streaming tool's progress and latest chunks.
func renderStream(s runviz.StreamBuffer) string {
	if s.Tick == 0 && len(s.Chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Stream"))
	b.WriteString("\n  ")
	if s.HasTotal {
		filled := int(s.Progress() * progressWidth)
		b.WriteString(StyleHighlight.Render(strings.Repeat("█", filled)))
		b.WriteString(listDimStyle.Render(strings.Repeat("░", progressWidth-filled)))
		b.WriteString(listDimStyle.Render(fmt.Sprintf(" %d/%d", s.Tick, s.Total)))
	} else {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("tick %d", s.Tick)))
	}
	if s.Final {
		b.WriteString(" " + StyleSuccess.Render(iconSuccess))
	}
	b.WriteString("\n")
	for i, c := range s.Chunks {
		if i == maxChunkRows {
			break
		}
		b.WriteString("  " + listNormalStyle.Render(truncate(c, valueWidth)) + "\n")
	}
	return b.String()
}

// renderPending shows the input prompt with the option under the cursor
// highlighted.
func renderPending(p *runviz.PendingInput, cursor int) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(StyleWarning.Render("Input required") + listDimStyle.Render(" @ "+p.NodeID) + "\n")
	b.WriteString(listNormalStyle.Render(p.Prompt) + "\n")
	if len(p.Context) > 0 {
		b.WriteString(listDimStyle.Render(truncate(string(p.Context), valueWidth)) + "\n")
	}
	opts := make([]string, len(p.Options))
	for i, o := range p.Options {
		if i == cursor {
			opts[i] = listSelectedStyle.Render("▸ " + o)
		} else {
			opts[i] = listNormalStyle.Render("  " + o)
		}
	}
	b.WriteString(strings.Join(opts, "  "))
	switch {
	case p.Submitting:
		b.WriteString("\n" + listDimStyle.Render("Submitting…"))
	case p.Error != "":
		b.WriteString("\n" + StyleError.Render(p.Error))
	}
	return "\n" + promptBoxStyle.Render(b.String()) + "\n"
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
