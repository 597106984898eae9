package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/promp/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))           // Orange
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

type keyMap struct {
	Yes  key.Binding
	No   key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Yes:  key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "apply")),
	No:   key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "cancel")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// --- Model ---

// Model shows the pending records of a batch and waits for a yes or no.
type Model struct {
	pending  []model.Pending
	answered bool
	approved bool
}

func New(pending []model.Pending) Model {
	return Model{pending: pending}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.answered {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Yes):
		m.answered, m.approved = true, true
		return m, tea.Quit
	case key.Matches(keyMsg, keys.No, keys.Quit):
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

// Approved reports whether the user pressed the apply key.
func (m Model) Approved() bool {
	return m.approved
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Pending Changes"))
	b.WriteString("\n\n")

	actionable := 0
	for _, p := range m.pending {
		if p.Actionable() {
			actionable++
		}
		b.WriteString("  " + m.renderPending(p) + "\n")
	}
	if len(m.pending) == 0 {
		b.WriteString(faintStyle.Render("Nothing to do.") + "\n")
	}

	if m.answered {
		if m.approved {
			b.WriteString("\n" + successStyle.Render("Applying...") + "\n")
		} else {
			b.WriteString("\n" + faintStyle.Render("Cancelled.") + "\n")
		}
		return b.String()
	}

	help := fmt.Sprintf("%s %s • %s %s • %s %s",
		keys.Yes.Help().Key, keys.Yes.Help().Desc,
		keys.No.Help().Key, keys.No.Help().Desc,
		keys.Quit.Help().Key, keys.Quit.Help().Desc)
	b.WriteString(fmt.Sprintf("\nApply %d change(s)?\n", actionable))
	b.WriteString(faintStyle.Render(help) + "\n")
	return b.String()
}

func (m Model) renderPending(p model.Pending) string {
	op := string(p.Record.Operation)
	if p.Record.Operation == model.OpUnknown && p.Record.RawOperation != "" {
		op = p.Record.RawOperation
	}
	line := fmt.Sprintf("%-7s %s", op, pathStyle.Render(p.Record.Path))

	switch p.Flag.Level {
	case model.LevelWarn:
		line += "  " + warnStyle.Render("["+p.Flag.String()+"]")
	case model.LevelSkip:
		line += "  " + errorStyle.Render("["+p.Flag.String()+"]")
	}
	if p.Actionable() && (p.Added > 0 || p.Removed > 0) {
		line += "  " + successStyle.Render(fmt.Sprintf("+%d", p.Added)) + " " + errorStyle.Render(fmt.Sprintf("-%d", p.Removed))
	}
	return line
}

// Confirmer asks for approval through an inline bubbletea program drawn on
// stderr.
type Confirmer struct {
	opts []tea.ProgramOption
}

func NewConfirmer(opts ...tea.ProgramOption) *Confirmer {
	return &Confirmer{opts: opts}
}

func (c *Confirmer) Confirm(ctx context.Context, pending []model.Pending) (bool, error) {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(os.Stderr)}, c.opts...)
	final, err := tea.NewProgram(New(pending), opts...).Run()
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return false, nil
	}
	return m.Approved(), nil
}
