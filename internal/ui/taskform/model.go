package taskform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/theme"
)

// SavedMsg is dispatched when the user completes the form.
type SavedMsg struct {
	TaskID  string
	Details model.TaskDetails
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	content     string
	description string
	priority    model.Priority
	dueDate     string
}

// Model edits the details of one task.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	taskID string
	width  int
	height int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityLow},
		width:  width,
		height: height,
	}
}

// Start fills the form from t.
func (m *Model) Start(t model.Task) tea.Cmd {
	m.taskID = t.ID
	m.fb.content = t.Content
	m.fb.description = t.Description
	m.fb.priority = t.Priority
	if m.fb.priority == "" {
		m.fb.priority = model.PriorityLow
	}
	m.fb.dueDate = model.FormatDate(t.DueDate)
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m, m.handleSubmit()
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Edit Task") + "\n" + m.form.View()
	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	opts := make([]huh.Option[model.Priority], len(model.Priorities))
	for i, p := range model.Priorities {
		opts[i] = huh.NewOption(strings.ToUpper(string(p[:1]))+string(p[1:]), p)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.content).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(opts...).
				Value(&m.fb.priority),
			huh.NewInput().
				Title("Due Date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.dueDate).
				Validate(validateOptionalDate),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	out := SavedMsg{TaskID: m.taskID, Details: m.details()}
	return func() tea.Msg { return out }
}

// details converts the bound values. The date was validated by the form.
func (m Model) details() model.TaskDetails {
	due, _ := model.ParseDate(m.fb.dueDate)
	return model.TaskDetails{
		Content:     strings.TrimSpace(m.fb.content),
		Description: strings.TrimSpace(m.fb.description),
		DueDate:     due,
		Priority:    m.fb.priority,
	}
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	if _, err := model.ParseDate(s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
