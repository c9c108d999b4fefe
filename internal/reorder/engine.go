// Package reorder turns pointer-driven drag gestures into task moves on the
// board. It computes where a held task would land from the rendered
// geometry of a list and commits the result through the board store.
package reorder

import (
	"errors"
	"fmt"

	"github.com/nhle/kanban-sync/internal/board"
	"github.com/nhle/kanban-sync/internal/model"
)

// ErrNothingHeld is returned by Over and Drop when no drag is in progress.
var ErrNothingHeld = errors.New("no task is being dragged")

// Board is the subset of the board store the engine drives.
type Board interface {
	FindTaskByID(taskID string) (model.Task, model.List, bool)
	List(listID string) (model.List, bool)
	MoveTask(taskID, targetListID string, targetIndex int) error
	ReorderList(listID string, order []string) (bool, error)
}

// Slot is the rendered vertical extent of one task row.
type Slot struct {
	TaskID string
	Top    float64
	Height float64
}

// Mid returns the vertical midpoint of the slot.
func (s Slot) Mid() float64 {
	return s.Top + s.Height/2
}

// Preview is the projected order of a list while a task hovers over it.
type Preview struct {
	ListID string
	Index  int
	Order  []string
}

// Engine tracks a single drag gesture.
type Engine struct {
	board    Board
	held     string
	fromList string
}

// New creates an engine bound to b.
func New(b Board) *Engine {
	return &Engine{board: b}
}

// Begin picks up taskID.
func (e *Engine) Begin(taskID string) error {
	_, l, ok := e.board.FindTaskByID(taskID)
	if !ok {
		return &board.NotFoundError{Kind: "task", ID: taskID}
	}
	e.held = taskID
	e.fromList = l.ID
	return nil
}

// Held returns the id of the task being dragged and the list it was picked
// up from.
func (e *Engine) Held() (taskID, fromList string, ok bool) {
	return e.held, e.fromList, e.held != ""
}

// Cancel releases the held task without touching the board.
func (e *Engine) Cancel() {
	e.held = ""
	e.fromList = ""
}

// InsertionIndex returns where a task dropped at pointerY lands among
// slots. The held slot is skipped. The task goes in front of the first
// candidate whose midpoint is below the pointer (the one nearest to it);
// when there is none it goes to the end.
func InsertionIndex(slots []Slot, held string, pointerY float64) int {
	best := -1
	bestOffset := 0.0
	n := 0
	for _, s := range slots {
		if s.TaskID == held {
			continue
		}
		offset := pointerY - s.Mid()
		if offset < 0 && (best < 0 || offset > bestOffset) {
			best = n
			bestOffset = offset
		}
		n++
	}
	if best < 0 {
		return n
	}
	return best
}

// Over projects the rendered order of listID with the held task placed at
// the pointer.
func (e *Engine) Over(listID string, pointerY float64, slots []Slot) (Preview, error) {
	if e.held == "" {
		return Preview{}, ErrNothingHeld
	}
	if _, ok := e.board.List(listID); !ok {
		return Preview{}, &board.NotFoundError{Kind: "list", ID: listID}
	}

	idx := InsertionIndex(slots, e.held, pointerY)
	order := make([]string, 0, len(slots)+1)
	for _, s := range slots {
		if s.TaskID == e.held {
			continue
		}
		if len(order) == idx {
			order = append(order, e.held)
		}
		order = append(order, s.TaskID)
	}
	if len(order) == idx {
		order = append(order, e.held)
	}
	return Preview{ListID: listID, Index: idx, Order: order}, nil
}

// Drop commits the held task into listID so the list ends up in
// renderedOrder. A task coming from another list is moved first, then the
// target list is reconciled against the rendered order. The hold is
// released whatever the outcome. It reports whether the board changed.
func (e *Engine) Drop(listID string, renderedOrder []string) (bool, error) {
	if e.held == "" {
		return false, ErrNothingHeld
	}
	taskID := e.held
	defer e.Cancel()

	_, src, ok := e.board.FindTaskByID(taskID)
	if !ok {
		return false, &board.NotFoundError{Kind: "task", ID: taskID}
	}

	moved := false
	if src.ID != listID {
		idx := indexOf(renderedOrder, taskID)
		if idx < 0 {
			idx = len(renderedOrder)
		}
		if err := e.board.MoveTask(taskID, listID, idx); err != nil {
			return false, fmt.Errorf("moving task %s: %w", taskID, err)
		}
		moved = true
	}

	changed, err := e.board.ReorderList(listID, renderedOrder)
	if err != nil {
		return moved, fmt.Errorf("reordering list %s: %w", listID, err)
	}
	return moved || changed, nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
