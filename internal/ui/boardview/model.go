package boardview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/reorder"
	"github.com/nhle/kanban-sync/internal/theme"
	"github.com/nhle/kanban-sync/internal/ui"
)

// CardHeight is the number of rows a task card takes: title and details.
const CardHeight = 2

// Model renders one board as columns and tracks the keyboard cursor. It
// never changes the board itself; the caller feeds it fresh snapshots.
type Model struct {
	board   model.Board
	layout  ui.Layout
	listIdx int
	taskIdx int

	// Drag state. hover is the insertion index among the focused list's
	// cards, not counting the held one.
	held    string
	hover   int
	preview *reorder.Preview

	now func() time.Time
}

// New creates an empty board view.
func New(width, height int) Model {
	return Model{layout: ui.NewLayout(width, height), now: time.Now}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.layout = ui.NewLayout(width, height)
}

// SetBoard replaces the rendered board and keeps the cursor in range.
func (m *Model) SetBoard(b model.Board) {
	if b.ID != m.board.ID {
		m.listIdx, m.taskIdx = 0, 0
	}
	m.board = b
	m.clamp()
}

// Board returns the rendered board.
func (m Model) Board() model.Board { return m.board }

// FocusedList returns the list under the cursor.
func (m Model) FocusedList() (model.List, bool) {
	if m.listIdx < 0 || m.listIdx >= len(m.board.Lists) {
		return model.List{}, false
	}
	return m.board.Lists[m.listIdx], true
}

// SelectedTask returns the task under the cursor.
func (m Model) SelectedTask() (model.Task, bool) {
	l, ok := m.FocusedList()
	if !ok || m.taskIdx < 0 || m.taskIdx >= len(l.Tasks) {
		return model.Task{}, false
	}
	return l.Tasks[m.taskIdx], true
}

// Select moves the cursor onto taskID when it is on the board.
func (m *Model) Select(taskID string) {
	for li, l := range m.board.Lists {
		for ti, t := range l.Tasks {
			if t.ID == taskID {
				m.listIdx, m.taskIdx = li, ti
				return
			}
		}
	}
}

// FocusList moves the cursor onto listID when it is on the board.
func (m *Model) FocusList(listID string) {
	for li, l := range m.board.Lists {
		if l.ID == listID {
			m.listIdx, m.taskIdx = li, 0
			return
		}
	}
}

// Up moves the cursor, or the drop point while dragging, one card up.
func (m *Model) Up() {
	if m.held != "" {
		if m.hover > 0 {
			m.hover--
		}
		return
	}
	if m.taskIdx > 0 {
		m.taskIdx--
	}
}

// Down moves the cursor, or the drop point while dragging, one card down.
func (m *Model) Down() {
	if m.held != "" {
		if m.hover < len(m.candidates()) {
			m.hover++
		}
		return
	}
	l, _ := m.FocusedList()
	if m.taskIdx < len(l.Tasks)-1 {
		m.taskIdx++
	}
}

// Left focuses the previous list.
func (m *Model) Left() {
	if m.listIdx > 0 {
		m.listIdx--
		m.enterList()
	}
}

// Right focuses the next list.
func (m *Model) Right() {
	if m.listIdx < len(m.board.Lists)-1 {
		m.listIdx++
		m.enterList()
	}
}

func (m *Model) enterList() {
	if m.held != "" {
		if m.hover > len(m.candidates()) {
			m.hover = len(m.candidates())
		}
		return
	}
	l, _ := m.FocusedList()
	if m.taskIdx >= len(l.Tasks) {
		m.taskIdx = max(len(l.Tasks)-1, 0)
	}
}

// StartDrag marks taskID as held with the drop point at its current place.
func (m *Model) StartDrag(taskID string) {
	m.held = taskID
	m.hover = m.taskIdx
	m.preview = nil
}

// EndDrag clears the drag state.
func (m *Model) EndDrag() {
	m.held = ""
	m.hover = 0
	m.preview = nil
}

// Dragging reports whether a task is held.
func (m Model) Dragging() bool { return m.held != "" }

// SetPreview shows the projected order of the list being hovered.
func (m *Model) SetPreview(p reorder.Preview) {
	m.preview = &p
}

// Preview returns the projected order last set while dragging.
func (m Model) Preview() (reorder.Preview, bool) {
	if m.preview == nil {
		return reorder.Preview{}, false
	}
	return *m.preview, true
}

// Slots returns the rendered geometry of a list's cards, top to bottom,
// in rows from the top of the column body.
func (m Model) Slots(listID string) []reorder.Slot {
	for _, l := range m.board.Lists {
		if l.ID != listID {
			continue
		}
		slots := make([]reorder.Slot, len(l.Tasks))
		for i, t := range l.Tasks {
			slots[i] = reorder.Slot{TaskID: t.ID, Top: float64(i * CardHeight), Height: CardHeight}
		}
		return slots
	}
	return nil
}

// PointerY places a virtual pointer in the focused list so that the held
// task lands at the hover index: on the top edge of the card it should
// precede, or under the last card.
func (m Model) PointerY() float64 {
	cands := m.candidates()
	if len(cands) == 0 {
		return 0
	}
	if m.hover < len(cands) {
		return cands[m.hover].Top
	}
	last := cands[len(cands)-1]
	return last.Top + last.Height
}

func (m Model) candidates() []reorder.Slot {
	l, ok := m.FocusedList()
	if !ok {
		return nil
	}
	var out []reorder.Slot
	for _, s := range m.Slots(l.ID) {
		if s.TaskID != m.held {
			out = append(out, s)
		}
	}
	return out
}

func (m *Model) clamp() {
	if m.listIdx >= len(m.board.Lists) {
		m.listIdx = max(len(m.board.Lists)-1, 0)
	}
	l, _ := m.FocusedList()
	if m.taskIdx >= len(l.Tasks) {
		m.taskIdx = max(len(l.Tasks)-1, 0)
	}
}

// View renders the board.
func (m Model) View() string {
	if len(m.board.Lists) == 0 {
		return lipgloss.NewStyle().
			Width(m.layout.Width).
			Height(m.layout.ContentHeight()).
			Align(lipgloss.Center, lipgloss.Center).
			Render(theme.HelpStyle.Render("This board has no lists yet.\nPress L to add one."))
	}

	width := m.layout.ColumnWidth(len(m.board.Lists))
	cols := make([]string, len(m.board.Lists))
	for i, l := range m.board.Lists {
		cols[i] = m.renderColumn(i, l, width)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderColumn(idx int, l model.List, width int) string {
	focused := idx == m.listIdx
	tasks := m.displayTasks(l)

	var b strings.Builder
	b.WriteString(theme.ColumnTitleStyle.Render(fmt.Sprintf("%s (%d)", l.Title, len(l.Tasks))))
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString(theme.HelpStyle.Render("no tasks"))
	}
	inner := width - 4
	for i, t := range tasks {
		if i > 0 {
			b.WriteString("\n")
		}
		selected := focused && m.held == "" && i == m.taskIdx
		b.WriteString(m.renderCard(t, inner, selected, t.ID == m.held))
	}
	return theme.ColumnStyle(focused).Width(width - 2).Render(b.String())
}

// displayTasks applies the drag preview: the hovered list shows the held
// task at its drop point and other lists hide it.
func (m Model) displayTasks(l model.List) []model.Task {
	if m.held == "" || m.preview == nil {
		return l.Tasks
	}
	if m.preview.ListID != l.ID {
		out := make([]model.Task, 0, len(l.Tasks))
		for _, t := range l.Tasks {
			if t.ID != m.held {
				out = append(out, t)
			}
		}
		return out
	}

	byID := make(map[string]model.Task, len(l.Tasks)+1)
	for _, t := range l.Tasks {
		byID[t.ID] = t
	}
	if _, ok := byID[m.held]; !ok {
		for _, other := range m.board.Lists {
			for _, t := range other.Tasks {
				if t.ID == m.held {
					byID[t.ID] = t
				}
			}
		}
	}
	out := make([]model.Task, 0, len(m.preview.Order))
	for _, id := range m.preview.Order {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (m Model) renderCard(t model.Task, width int, selected, held bool) string {
	title := t.Content
	if lipgloss.Width(title) > width {
		title = truncate(title, width)
	}

	meta := theme.PriorityStyle(t.Priority).Render("● " + string(t.Priority))
	if t.DueDate != nil {
		overdue := t.IsOverdue(m.now())
		label := "due " + model.FormatDate(t.DueDate)
		if overdue {
			label = "overdue " + model.FormatDate(t.DueDate)
		}
		meta += " " + theme.DueDateStyle(overdue).Render(label)
	}
	return theme.CardStyle(selected, held).Render(title + "\n" + meta)
}

func truncate(s string, width int) string {
	if width <= 1 {
		return "…"
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
