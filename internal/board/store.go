// Package board holds the in-memory board hierarchy and every operation
// that mutates it. The store owns all boards, lists and tasks; callers get
// copies and route changes through the methods below.
package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/kanban-sync/internal/model"
)

// IDFunc generates a fresh, globally unique entity id.
type IDFunc func() (string, error)

// NewUUID is the default IDFunc.
func NewUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	return id.String(), nil
}

// Option configures a Store.
type Option func(*Store)

// WithIDFunc overrides id generation.
func WithIDFunc(fn IDFunc) Option {
	return func(s *Store) { s.newID = fn }
}

// Store is the canonical board hierarchy. It is not safe for concurrent
// use; all access happens on the goroutine that drives the application.
type Store struct {
	boards         []model.Board
	currentBoardID string
	newID          IDFunc
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{newID: NewUUID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Empty reports whether the store holds no boards yet.
func (s *Store) Empty() bool {
	return len(s.boards) == 0
}

// Replace installs a loaded hierarchy after checking its structural
// invariants. The store is left untouched when h is rejected.
func (s *Store) Replace(h model.Hierarchy) error {
	if err := Validate(h); err != nil {
		return err
	}
	h = h.Clone()
	current := h.CurrentBoardID
	if _, ok := h.Board(current); !ok {
		current = h.Boards[0].ID
	}
	s.boards = h.Boards
	s.currentBoardID = current
	return nil
}

// Validate checks that h satisfies the hierarchy invariants: at least one
// board, non-blank names, consistent parent references and unique ids.
func Validate(h model.Hierarchy) error {
	if len(h.Boards) == 0 {
		return &InvariantError{Message: "hierarchy has no boards"}
	}
	boardIDs := make(map[string]bool)
	listIDs := make(map[string]bool)
	taskIDs := make(map[string]bool)
	for _, b := range h.Boards {
		if b.ID == "" || boardIDs[b.ID] {
			return &InvariantError{Message: fmt.Sprintf("duplicate or empty board id %q", b.ID)}
		}
		boardIDs[b.ID] = true
		if isBlank(b.Name) {
			return &InvariantError{Message: fmt.Sprintf("board %q has no name", b.ID)}
		}
		for _, l := range b.Lists {
			if l.ID == "" || listIDs[l.ID] {
				return &InvariantError{Message: fmt.Sprintf("duplicate or empty list id %q", l.ID)}
			}
			listIDs[l.ID] = true
			if l.BoardID != b.ID {
				return &InvariantError{Message: fmt.Sprintf("list %q belongs to board %q, found in %q", l.ID, l.BoardID, b.ID)}
			}
			for _, t := range l.Tasks {
				if t.ID == "" || taskIDs[t.ID] {
					return &InvariantError{Message: fmt.Sprintf("duplicate or empty task id %q", t.ID)}
				}
				taskIDs[t.ID] = true
				if t.ListID != l.ID {
					return &InvariantError{Message: fmt.Sprintf("task %q belongs to list %q, found in %q", t.ID, t.ListID, l.ID)}
				}
			}
		}
	}
	return nil
}

// Snapshot returns a deep copy of the whole hierarchy.
func (s *Store) Snapshot() model.Hierarchy {
	return model.Hierarchy{
		Boards:         s.boards,
		CurrentBoardID: s.currentBoardID,
	}.Clone()
}

// Boards returns copies of all boards in order.
func (s *Store) Boards() []model.Board {
	return s.Snapshot().Boards
}

// CurrentBoardID returns the id of the board on screen, or "" before load.
func (s *Store) CurrentBoardID() string {
	return s.currentBoardID
}

// CurrentBoard returns a copy of the board on screen.
func (s *Store) CurrentBoard() (model.Board, bool) {
	b := s.current()
	if b == nil {
		return model.Board{}, false
	}
	return b.Clone(), true
}

// List returns a copy of a list on the current board.
func (s *Store) List(listID string) (model.List, bool) {
	_, l := s.findList(listID)
	if l == nil {
		return model.List{}, false
	}
	return l.Clone(), true
}

// AddBoard creates a board, appends it and makes it current.
func (s *Store) AddBoard(name string) (model.Board, error) {
	if isBlank(name) {
		return model.Board{}, invalid("name", "Board name cannot be empty.")
	}
	id, err := s.newID()
	if err != nil {
		return model.Board{}, err
	}
	b := model.Board{ID: id, Name: strings.TrimSpace(name), Lists: []model.List{}}
	s.boards = append(s.boards, b)
	s.currentBoardID = id
	return b.Clone(), nil
}

// RenameBoard renames the current board.
func (s *Store) RenameBoard(newName string) error {
	if isBlank(newName) {
		return invalid("name", "Board name cannot be empty.")
	}
	b := s.current()
	if b == nil {
		return notFound("board", s.currentBoardID)
	}
	b.Name = strings.TrimSpace(newName)
	return nil
}

// DeleteBoard removes the current board together with its lists and
// tasks, then selects the first remaining board. The last board cannot
// be deleted.
func (s *Store) DeleteBoard() (model.Board, error) {
	if len(s.boards) <= 1 {
		return model.Board{}, &InvariantError{Message: "You can't delete the last board."}
	}
	idx := s.boardIndex(s.currentBoardID)
	if idx < 0 {
		return model.Board{}, notFound("board", s.currentBoardID)
	}
	removed := s.boards[idx]
	s.boards = append(s.boards[:idx:idx], s.boards[idx+1:]...)
	s.currentBoardID = s.boards[0].ID
	return removed, nil
}

// SwitchBoard makes boardID the current board.
func (s *Store) SwitchBoard(boardID string) error {
	if s.boardIndex(boardID) < 0 {
		return notFound("board", boardID)
	}
	s.currentBoardID = boardID
	return nil
}

// AddList appends a list to the current board.
func (s *Store) AddList(title string) (model.List, error) {
	if isBlank(title) {
		return model.List{}, invalid("title", "List title cannot be empty.")
	}
	b := s.current()
	if b == nil {
		return model.List{}, notFound("board", s.currentBoardID)
	}
	id, err := s.newID()
	if err != nil {
		return model.List{}, err
	}
	l := model.List{ID: id, Title: strings.TrimSpace(title), BoardID: b.ID, Tasks: []model.Task{}}
	b.Lists = append(b.Lists, l)
	return l.Clone(), nil
}

// RenameList renames a list on the current board.
func (s *Store) RenameList(listID, title string) error {
	if isBlank(title) {
		return invalid("title", "List title cannot be empty.")
	}
	_, l := s.findList(listID)
	if l == nil {
		return notFound("list", listID)
	}
	l.Title = strings.TrimSpace(title)
	return nil
}

// DeleteList removes a list and every task in it.
func (s *Store) DeleteList(listID string) (model.List, error) {
	b, l := s.findList(listID)
	if l == nil {
		return model.List{}, notFound("list", listID)
	}
	removed := *l
	idx := listIndex(b, listID)
	b.Lists = append(b.Lists[:idx:idx], b.Lists[idx+1:]...)
	return removed, nil
}

// AddTask appends a new low-priority task to a list.
func (s *Store) AddTask(listID, content string) (model.Task, error) {
	if isBlank(content) {
		return model.Task{}, invalid("content", "Task content cannot be empty.")
	}
	_, l := s.findList(listID)
	if l == nil {
		return model.Task{}, notFound("list", listID)
	}
	id, err := s.newID()
	if err != nil {
		return model.Task{}, err
	}
	t := model.Task{
		ID:       id,
		Content:  strings.TrimSpace(content),
		ListID:   l.ID,
		Priority: model.PriorityLow,
	}
	l.Tasks = append(l.Tasks, t)
	return t.Clone(), nil
}

// UpdateTask replaces a task's content.
func (s *Store) UpdateTask(taskID, content string) error {
	if isBlank(content) {
		return invalid("content", "Task content cannot be empty.")
	}
	_, t := s.findTask(taskID)
	if t == nil {
		return notFound("task", taskID)
	}
	t.Content = strings.TrimSpace(content)
	return nil
}

// UpdateTaskDetails replaces content, description, due date and priority
// in one step.
func (s *Store) UpdateTaskDetails(taskID string, d model.TaskDetails) error {
	if isBlank(d.Content) {
		return invalid("content", "Task title cannot be empty.")
	}
	prio, err := model.ParsePriority(string(d.Priority))
	if err != nil || d.Priority == "" {
		return invalid("priority", "Task priority must be low, medium or high.")
	}
	_, t := s.findTask(taskID)
	if t == nil {
		return notFound("task", taskID)
	}
	var due *time.Time
	if d.DueDate != nil {
		day := model.Today(*d.DueDate)
		due = &day
	}
	t.Content = strings.TrimSpace(d.Content)
	t.Description = d.Description
	t.DueDate = due
	t.Priority = prio
	return nil
}

// DeleteTask removes a task from its list.
func (s *Store) DeleteTask(taskID string) (model.Task, error) {
	l, t := s.findTask(taskID)
	if t == nil {
		return model.Task{}, notFound("task", taskID)
	}
	removed := *t
	idx := taskIndex(l, taskID)
	l.Tasks = append(l.Tasks[:idx:idx], l.Tasks[idx+1:]...)
	return removed, nil
}

// FindTaskByID searches the current board for a task. A missing task is
// reported through ok rather than an error.
func (s *Store) FindTaskByID(taskID string) (task model.Task, list model.List, ok bool) {
	l, t := s.findTask(taskID)
	if t == nil {
		return model.Task{}, model.List{}, false
	}
	return t.Clone(), l.Clone(), true
}

// MoveTask takes a task out of its list and inserts it into targetListID
// at targetIndex, clamped to the bounds of the target list.
func (s *Store) MoveTask(taskID, targetListID string, targetIndex int) error {
	src, t := s.findTask(taskID)
	if t == nil {
		return notFound("task", taskID)
	}
	_, dst := s.findList(targetListID)
	if dst == nil {
		return notFound("list", targetListID)
	}

	from := taskIndex(src, taskID)
	if src == dst && clamp(targetIndex, len(dst.Tasks)-1) == from {
		return nil
	}

	moved := *t
	src.Tasks = append(src.Tasks[:from:from], src.Tasks[from+1:]...)
	moved.ListID = dst.ID

	at := clamp(targetIndex, len(dst.Tasks))
	dst.Tasks = append(dst.Tasks, model.Task{})
	copy(dst.Tasks[at+1:], dst.Tasks[at:])
	dst.Tasks[at] = moved
	return nil
}

// ReorderList makes the list's task order follow order. Ids that are not
// in the list are ignored and tasks missing from order keep their relative
// order after the ones that were named. It reports whether anything moved.
func (s *Store) ReorderList(listID string, order []string) (bool, error) {
	_, l := s.findList(listID)
	if l == nil {
		return false, notFound("list", listID)
	}

	byID := make(map[string]model.Task, len(l.Tasks))
	for _, t := range l.Tasks {
		byID[t.ID] = t
	}
	next := make([]model.Task, 0, len(l.Tasks))
	placed := make(map[string]bool, len(l.Tasks))
	for _, id := range order {
		t, ok := byID[id]
		if !ok || placed[id] {
			continue
		}
		next = append(next, t)
		placed[id] = true
	}
	for _, t := range l.Tasks {
		if !placed[t.ID] {
			next = append(next, t)
		}
	}

	changed := false
	for i := range next {
		if next[i].ID != l.Tasks[i].ID {
			changed = true
			break
		}
	}
	l.Tasks = next
	return changed, nil
}

func (s *Store) current() *model.Board {
	idx := s.boardIndex(s.currentBoardID)
	if idx < 0 {
		return nil
	}
	return &s.boards[idx]
}

func (s *Store) boardIndex(id string) int {
	for i := range s.boards {
		if s.boards[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) findList(listID string) (*model.Board, *model.List) {
	b := s.current()
	if b == nil {
		return nil, nil
	}
	idx := listIndex(b, listID)
	if idx < 0 {
		return b, nil
	}
	return b, &b.Lists[idx]
}

func (s *Store) findTask(taskID string) (*model.List, *model.Task) {
	b := s.current()
	if b == nil {
		return nil, nil
	}
	for i := range b.Lists {
		l := &b.Lists[i]
		if idx := taskIndex(l, taskID); idx >= 0 {
			return l, &l.Tasks[idx]
		}
	}
	return nil, nil
}

func listIndex(b *model.Board, listID string) int {
	for i := range b.Lists {
		if b.Lists[i].ID == listID {
			return i
		}
	}
	return -1
}

func taskIndex(l *model.List, taskID string) int {
	for i := range l.Tasks {
		if l.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

// clamp bounds i to [0, max].
func clamp(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
