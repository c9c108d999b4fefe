package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban-sync/internal/theme"
)

// Purpose tells the caller what the entered text is for.
type Purpose int

const (
	NewBoard Purpose = iota
	RenameBoard
	NewList
	RenameList
	NewTask
	DeleteBoard
	DeleteList
)

// confirms reports whether the prompt only asks for a yes.
func (p Purpose) confirms() bool {
	return p == DeleteBoard || p == DeleteList
}

// SubmitMsg is emitted when the user presses enter. Blank values are
// passed on so the board can reject them.
// Target is the id the prompt was opened for, if any.
type SubmitMsg struct {
	Purpose Purpose
	Target  string
	Value   string
}

// CancelMsg is emitted when the user leaves the prompt with esc.
type CancelMsg struct{}

// Model is a one-line text prompt.
type Model struct {
	input   textinput.Model
	title   string
	purpose Purpose
	target  string
	width   int
	height  int
}

// New creates a new prompt model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Open resets the prompt for purpose with an optional initial value and
// gives it focus.
func (m *Model) Open(purpose Purpose, title, target, value, placeholder string) tea.Cmd {
	m.purpose = purpose
	m.title = title
	m.target = target
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

// Purpose returns what the prompt was opened for.
func (m Model) Purpose() Purpose { return m.purpose }

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.input.Blur()
			return m, func() tea.Msg { return CancelMsg{} }
		case "enter":
			m.input.Blur()
			out := SubmitMsg{Purpose: m.purpose, Target: m.target, Value: strings.TrimSpace(m.input.Value())}
			return m, func() tea.Msg { return out }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render(m.title)}
	if m.purpose.confirms() {
		parts = append(parts, theme.HelpStyle.Render("enter to confirm, esc to cancel"))
	} else {
		parts = append(parts, m.input.View())
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the prompt dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}
