package boardview

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/reorder"
)

func sampleBoard() model.Board {
	due := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	return model.Board{ID: "b1", Name: "Work", Lists: []model.List{
		{ID: "todo", Title: "To Do", BoardID: "b1", Tasks: []model.Task{
			{ID: "a", Content: "Write report", ListID: "todo", Priority: model.PriorityHigh, DueDate: &due},
			{ID: "b", Content: "Review PR", ListID: "todo", Priority: model.PriorityLow},
			{ID: "c", Content: "Plan sprint", ListID: "todo", Priority: model.PriorityMedium},
		}},
		{ID: "done", Title: "Done", BoardID: "b1", Tasks: []model.Task{
			{ID: "d", Content: "Ship it", ListID: "done", Priority: model.PriorityLow},
		}},
		{ID: "empty", Title: "Later", BoardID: "b1"},
	}}
}

func newView() Model {
	m := New(120, 30)
	m.now = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }
	m.SetBoard(sampleBoard())
	return m
}

func TestNavigation(t *testing.T) {
	m := newView()

	m.Down()
	m.Down()
	m.Down()
	if sel, _ := m.SelectedTask(); sel.ID != "c" {
		t.Fatalf("selected = %s, want c", sel.ID)
	}

	m.Right()
	if sel, _ := m.SelectedTask(); sel.ID != "d" {
		t.Errorf("selected = %s, want d (cursor clamped)", sel.ID)
	}

	m.Right()
	if _, ok := m.SelectedTask(); ok {
		t.Error("empty list has no selection")
	}
	if l, _ := m.FocusedList(); l.ID != "empty" {
		t.Errorf("focused = %s, want empty", l.ID)
	}

	m.Right()
	if l, _ := m.FocusedList(); l.ID != "empty" {
		t.Errorf("moved past the last list: %s", l.ID)
	}
}

func TestSetBoardKeepsCursorInRange(t *testing.T) {
	m := newView()
	m.Select("c")

	b := sampleBoard()
	b.Lists[0].Tasks = b.Lists[0].Tasks[:1]
	m.SetBoard(b)

	if sel, _ := m.SelectedTask(); sel.ID != "a" {
		t.Errorf("selected = %s, want a", sel.ID)
	}

	m.SetBoard(model.Board{ID: "b2", Name: "Home"})
	if _, ok := m.FocusedList(); ok {
		t.Error("board without lists has no focused list")
	}
}

func TestSlots(t *testing.T) {
	m := newView()

	want := []reorder.Slot{
		{TaskID: "a", Top: 0, Height: CardHeight},
		{TaskID: "b", Top: 2, Height: CardHeight},
		{TaskID: "c", Top: 4, Height: CardHeight},
	}
	if got := m.Slots("todo"); !reflect.DeepEqual(got, want) {
		t.Errorf("slots = %+v, want %+v", got, want)
	}
	if got := m.Slots("missing"); got != nil {
		t.Errorf("slots for unknown list = %+v", got)
	}
}

// The virtual pointer must land the held task at the hover index.
func TestPointerMatchesInsertionIndex(t *testing.T) {
	tests := []struct {
		name  string
		pick  string
		moves func(*Model)
		want  int
	}{
		{"stay", "a", func(*Model) {}, 0},
		{"one down", "a", func(m *Model) { m.Down() }, 1},
		{"to the end", "a", func(m *Model) { m.Down(); m.Down(); m.Down() }, 2},
		{"from the middle up", "b", func(m *Model) { m.Up() }, 0},
		{"past the top", "c", func(m *Model) { m.Up(); m.Up(); m.Up() }, 0},
		{"into another list", "b", func(m *Model) { m.Right() }, 1},
		{"into an empty list", "a", func(m *Model) { m.Right(); m.Right() }, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newView()
			m.Select(tc.pick)
			m.StartDrag(tc.pick)
			tc.moves(&m)

			l, _ := m.FocusedList()
			got := reorder.InsertionIndex(m.Slots(l.ID), tc.pick, m.PointerY())
			if got != tc.want {
				t.Errorf("insertion index = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestViewRendersCards(t *testing.T) {
	m := newView()

	view := m.View()
	for _, want := range []string{"To Do (3)", "Done (1)", "Write report", "overdue 2026-10-18", "● high", "no tasks"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewShowsDragPreview(t *testing.T) {
	m := newView()
	m.StartDrag("a")
	m.Right()
	m.SetPreview(reorder.Preview{ListID: "done", Index: 0, Order: []string{"a", "d"}})

	got := m.displayTasks(m.board.Lists[1])
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "d" {
		t.Errorf("done shows %+v, want a then d", got)
	}
	if src := m.displayTasks(m.board.Lists[0]); len(src) != 2 {
		t.Errorf("source list shows %d tasks, want the held one hidden", len(src))
	}

	m.EndDrag()
	if _, ok := m.Preview(); ok {
		t.Error("preview kept after the drag ended")
	}
}

func TestViewEmptyBoard(t *testing.T) {
	m := New(80, 20)
	m.SetBoard(model.Board{ID: "b", Name: "Empty"})

	if !strings.Contains(m.View(), "no lists yet") {
		t.Error("empty board hint missing")
	}
}
