package board

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/nhle/kanban-sync/internal/model"
)

// seqIDs returns an IDFunc yielding "id-1", "id-2", ...
func seqIDs() IDFunc {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
}

// newTestStore builds a store holding one board "B1" with lists "A" and
// "B". List A holds tasks a0..a2 and list B holds b0, b1.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := New(WithIDFunc(seqIDs()))
	err := s.Replace(model.Hierarchy{
		CurrentBoardID: "B1",
		Boards: []model.Board{{
			ID:   "B1",
			Name: "Board one",
			Lists: []model.List{
				{ID: "A", Title: "To Do", BoardID: "B1", Tasks: []model.Task{
					{ID: "a0", Content: "first", ListID: "A", Priority: model.PriorityLow},
					{ID: "a1", Content: "second", ListID: "A", Priority: model.PriorityLow},
					{ID: "a2", Content: "third", ListID: "A", Priority: model.PriorityHigh},
				}},
				{ID: "B", Title: "Done", BoardID: "B1", Tasks: []model.Task{
					{ID: "b0", Content: "shipped", ListID: "B", Priority: model.PriorityMedium},
					{ID: "b1", Content: "released", ListID: "B", Priority: model.PriorityLow},
				}},
			},
		}},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	return s
}

func taskOrder(t *testing.T, s *Store, listID string) []string {
	t.Helper()
	l, ok := s.List(listID)
	if !ok {
		t.Fatalf("list %s not found", listID)
	}
	return l.TaskIDs()
}

func TestAddAndDeleteTaskCounts(t *testing.T) {
	s := newTestStore(t)

	var added []string
	for i := 0; i < 5; i++ {
		task, err := s.AddTask("A", fmt.Sprintf("task %d", i))
		if err != nil {
			t.Fatalf("add task: %v", err)
		}
		added = append(added, task.ID)
	}

	deleted := 0
	for _, id := range []string{added[0], added[3], "missing", added[0]} {
		if _, err := s.DeleteTask(id); err == nil {
			deleted++
		} else if !IsNotFound(err) {
			t.Fatalf("delete %s: unexpected error %v", id, err)
		}
	}

	if deleted != 2 {
		t.Fatalf("expected 2 successful deletes, got %d", deleted)
	}
	if got, want := len(taskOrder(t, s, "A")), 3+5-2; got != want {
		t.Fatalf("expected %d tasks, got %d", want, got)
	}
}

func TestAddTaskDefaults(t *testing.T) {
	s := newTestStore(t)

	task, err := s.AddTask("B", "  write docs  ")
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if task.Content != "write docs" || task.ListID != "B" || task.Priority != model.PriorityLow {
		t.Fatalf("unexpected task: %+v", task)
	}
	if got := taskOrder(t, s, "B"); got[len(got)-1] != task.ID {
		t.Fatalf("new task not appended: %v", got)
	}
}

func TestDeleteListCascadesOnlyItsTasks(t *testing.T) {
	s := newTestStore(t)

	removed, err := s.DeleteList("A")
	if err != nil {
		t.Fatalf("delete list: %v", err)
	}
	if len(removed.Tasks) != 3 {
		t.Fatalf("expected removed list to carry 3 tasks, got %d", len(removed.Tasks))
	}
	for _, id := range []string{"a0", "a1", "a2"} {
		if _, _, ok := s.FindTaskByID(id); ok {
			t.Fatalf("task %s survived list deletion", id)
		}
	}
	if got := taskOrder(t, s, "B"); !reflect.DeepEqual(got, []string{"b0", "b1"}) {
		t.Fatalf("other list changed: %v", got)
	}
}

func TestDeleteLastBoardFails(t *testing.T) {
	s := newTestStore(t)
	before := s.Snapshot()

	_, err := s.DeleteBoard()
	var invErr *InvariantError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvariantError, got %v", err)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatal("store changed after rejected delete")
	}
}

func TestDeleteBoardSelectsFirstRemaining(t *testing.T) {
	s := newTestStore(t)

	b2, err := s.AddBoard("Second")
	if err != nil {
		t.Fatalf("add board: %v", err)
	}
	if s.CurrentBoardID() != b2.ID {
		t.Fatalf("new board not current")
	}
	if _, err := s.AddList("Backlog"); err != nil {
		t.Fatalf("add list: %v", err)
	}

	removed, err := s.DeleteBoard()
	if err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if removed.ID != b2.ID || len(removed.Lists) != 1 {
		t.Fatalf("unexpected removed board: %+v", removed)
	}
	if s.CurrentBoardID() != "B1" || len(s.Boards()) != 1 {
		t.Fatalf("expected B1 to remain current, got %q", s.CurrentBoardID())
	}
}

func TestBlankNamesAreRejected(t *testing.T) {
	tests := []struct {
		name string
		op   func(s *Store) error
	}{
		{"add board", func(s *Store) error { _, err := s.AddBoard(""); return err }},
		{"rename board", func(s *Store) error { return s.RenameBoard(" ") }},
		{"add list", func(s *Store) error { _, err := s.AddList("\t"); return err }},
		{"rename list", func(s *Store) error { return s.RenameList("A", "") }},
		{"add task", func(s *Store) error { _, err := s.AddTask("A", "   "); return err }},
		{"update task", func(s *Store) error { return s.UpdateTask("a0", "") }},
		{"update details", func(s *Store) error {
			return s.UpdateTaskDetails("a0", model.TaskDetails{Content: " ", Priority: model.PriorityLow})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			before := s.Snapshot()

			err := tt.op(s)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Message == "" {
				t.Fatal("validation error has no message")
			}
			if !reflect.DeepEqual(before, s.Snapshot()) {
				t.Fatal("store changed after rejected input")
			}
		})
	}
}

func TestSwitchBoardUnknown(t *testing.T) {
	s := newTestStore(t)

	err := s.SwitchBoard("nope")
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if s.CurrentBoardID() != "B1" {
		t.Fatalf("current board changed to %q", s.CurrentBoardID())
	}
}

func TestUpdateTaskDetailsReplacesAllFields(t *testing.T) {
	s := newTestStore(t)
	due := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

	err := s.UpdateTaskDetails("a1", model.TaskDetails{
		Content:     "renamed",
		Description: "more words",
		DueDate:     &due,
		Priority:    model.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("update details: %v", err)
	}

	task, list, ok := s.FindTaskByID("a1")
	if !ok || list.ID != "A" {
		t.Fatalf("task not found in list A")
	}
	if task.Content != "renamed" || task.Description != "more words" || task.Priority != model.PriorityHigh {
		t.Fatalf("unexpected task: %+v", task)
	}
	if model.FormatDate(task.DueDate) != "2026-03-14" || task.DueDate.Hour() != 0 {
		t.Fatalf("due date not truncated to a day: %v", task.DueDate)
	}

	if err := s.UpdateTaskDetails("a1", model.TaskDetails{Content: "x"}); err == nil {
		t.Fatal("expected error when priority is missing")
	}
}

func TestFindTaskByIDMissing(t *testing.T) {
	s := newTestStore(t)

	if _, _, ok := s.FindTaskByID("ghost"); ok {
		t.Fatal("expected missing task")
	}
}

func TestMoveTaskAcrossLists(t *testing.T) {
	s := newTestStore(t)

	if err := s.MoveTask("a2", "B", 0); err != nil {
		t.Fatalf("move task: %v", err)
	}

	task, list, ok := s.FindTaskByID("a2")
	if !ok || list.ID != "B" || task.ListID != "B" {
		t.Fatalf("task not moved to B: %+v in %s", task, list.ID)
	}
	if got := taskOrder(t, s, "B"); !reflect.DeepEqual(got, []string{"a2", "b0", "b1"}) {
		t.Fatalf("unexpected B order: %v", got)
	}
	if got := taskOrder(t, s, "A"); !reflect.DeepEqual(got, []string{"a0", "a1"}) {
		t.Fatalf("unexpected A order: %v", got)
	}
}

func TestMoveTaskWithinList(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  []string
	}{
		{"to front", 0, []string{"a2", "a0", "a1"}},
		{"to middle", 1, []string{"a0", "a2", "a1"}},
		{"unchanged", 2, []string{"a0", "a1", "a2"}},
		{"clamped high", 99, []string{"a0", "a1", "a2"}},
		{"clamped low", -3, []string{"a2", "a0", "a1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			if err := s.MoveTask("a2", "A", tt.index); err != nil {
				t.Fatalf("move task: %v", err)
			}
			if got := taskOrder(t, s, "A"); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoveTaskUnknownTarget(t *testing.T) {
	s := newTestStore(t)

	if err := s.MoveTask("a0", "Z", 0); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err := s.MoveTask("zz", "A", 0); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestReorderListIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	changed, err := s.ReorderList("A", []string{"a2", "a0", "a1"})
	if err != nil || !changed {
		t.Fatalf("first reorder: changed=%v err=%v", changed, err)
	}
	final := taskOrder(t, s, "A")

	changed, err = s.ReorderList("A", final)
	if err != nil {
		t.Fatalf("second reorder: %v", err)
	}
	if changed {
		t.Fatal("reapplying the final order reported a change")
	}
	if got := taskOrder(t, s, "A"); !reflect.DeepEqual(got, final) {
		t.Fatalf("order drifted: %v", got)
	}
}

func TestReorderListToleratesPartialOrder(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.ReorderList("A", []string{"a1", "b0", "a1"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := taskOrder(t, s, "A"); !reflect.DeepEqual(got, []string{"a1", "a0", "a2"}) {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestReplaceRejectsInconsistentHierarchy(t *testing.T) {
	tests := []struct {
		name string
		h    model.Hierarchy
	}{
		{"no boards", model.Hierarchy{}},
		{"list parent mismatch", model.Hierarchy{Boards: []model.Board{{
			ID: "b", Name: "B", Lists: []model.List{{ID: "l", Title: "L", BoardID: "other"}},
		}}}},
		{"orphan task", model.Hierarchy{Boards: []model.Board{{
			ID: "b", Name: "B", Lists: []model.List{{ID: "l", Title: "L", BoardID: "b", Tasks: []model.Task{
				{ID: "t", Content: "x", ListID: "gone"},
			}}},
		}}}},
		{"duplicate task id across boards", model.Hierarchy{Boards: []model.Board{
			{ID: "b1", Name: "B1", Lists: []model.List{{ID: "l1", Title: "L", BoardID: "b1", Tasks: []model.Task{{ID: "t", Content: "x", ListID: "l1"}}}}},
			{ID: "b2", Name: "B2", Lists: []model.List{{ID: "l2", Title: "L", BoardID: "b2", Tasks: []model.Task{{ID: "t", Content: "y", ListID: "l2"}}}}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			if err := s.Replace(tt.h); !errors.Is(err, ErrInvariant) {
				t.Fatalf("expected invariant error, got %v", err)
			}
			if !s.Empty() {
				t.Fatal("store populated from rejected hierarchy")
			}
		})
	}
}

func TestReplaceFallsBackToFirstBoard(t *testing.T) {
	s := New()
	err := s.Replace(model.Hierarchy{
		CurrentBoardID: "missing",
		Boards:         []model.Board{{ID: "x", Name: "X"}, {ID: "y", Name: "Y"}},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if s.CurrentBoardID() != "x" {
		t.Fatalf("expected first board, got %q", s.CurrentBoardID())
	}
}

func TestReadAccessorsReturnCopies(t *testing.T) {
	s := newTestStore(t)

	b, _ := s.CurrentBoard()
	b.Lists[0].Tasks[0].Content = "mutated outside"
	b.Lists[0].Title = "nope"

	task, list, _ := s.FindTaskByID("a0")
	if task.Content != "first" || list.Title != "To Do" {
		t.Fatal("store state leaked through a read accessor")
	}
}

func TestIDFailureLeavesStoreUnchanged(t *testing.T) {
	s := newTestStore(t)
	before := s.Snapshot()
	s.newID = func() (string, error) { return "", errors.New("entropy exhausted") }

	if _, err := s.AddTask("A", "x"); err == nil {
		t.Fatal("expected id error")
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatal("store changed after id failure")
	}
}
