package sync

import "github.com/nhle/kanban-sync/internal/model"

// Command is a user intent the controller applies to the board. The set
// is closed; only the types in this file implement it.
type Command interface {
	command()
}

// AddBoard creates a board and makes it current.
type AddBoard struct{ Name string }

// RenameBoard renames the current board.
type RenameBoard struct{ Name string }

// DeleteBoard deletes the current board.
type DeleteBoard struct{}

// SwitchBoard makes another board current.
type SwitchBoard struct{ BoardID string }

// AddList appends a list to the current board.
type AddList struct{ Title string }

// RenameList retitles a list.
type RenameList struct {
	ListID string
	Title  string
}

// DeleteList deletes a list and its tasks.
type DeleteList struct{ ListID string }

// AddTask appends a task to a list.
type AddTask struct {
	ListID  string
	Content string
}

// UpdateTask changes a task's content only.
type UpdateTask struct {
	TaskID  string
	Content string
}

// UpdateTaskDetails replaces every editable field of a task.
type UpdateTaskDetails struct {
	TaskID  string
	Details model.TaskDetails
}

// DeleteTask deletes a task.
type DeleteTask struct{ TaskID string }

// MoveTask moves a task to Index in ListID.
type MoveTask struct {
	TaskID string
	ListID string
	Index  int
}

// ReorderList makes a list follow Order.
type ReorderList struct {
	ListID string
	Order  []string
}

// SetTheme changes the display theme.
type SetTheme struct{ Theme string }

// BeginDrag picks a task up.
type BeginDrag struct{ TaskID string }

// DropTask drops the held task into ListID, which is rendered as Order.
type DropTask struct {
	ListID string
	Order  []string
}

// CancelDrag puts the held task back.
type CancelDrag struct{}

func (AddBoard) command()          {}
func (RenameBoard) command()       {}
func (DeleteBoard) command()       {}
func (SwitchBoard) command()       {}
func (AddList) command()           {}
func (RenameList) command()        {}
func (DeleteList) command()        {}
func (AddTask) command()           {}
func (UpdateTask) command()        {}
func (UpdateTaskDetails) command() {}
func (DeleteTask) command()        {}
func (MoveTask) command()          {}
func (ReorderList) command()       {}
func (SetTheme) command()          {}
func (BeginDrag) command()         {}
func (DropTask) command()          {}
func (CancelDrag) command()        {}
