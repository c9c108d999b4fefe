package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency level of a task.
type Priority string

// Priority levels accepted by the board and the remote API.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the accepted priority levels from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority normalizes s into a Priority. An empty string yields
// PriorityLow, matching the server default.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityLow, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// DateLayout is the wire and storage format of due dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date. An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return &t, nil
}

// FormatDate renders d as YYYY-MM-DD, or "" when d is nil.
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

// Today returns the current calendar date in UTC with the time part zeroed.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Task is a unit of work on a board. Its position inside the owning
// list's Tasks slice is its display order.
type Task struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	ListID      string     `json:"listId"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    Priority   `json:"priority"`
}

// IsOverdue reports whether the task's due date lies before today.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(Today(now))
}

// taskJSON is the snapshot encoding of a Task with the due date kept as
// a plain calendar date.
type taskJSON struct {
	ID          string   `json:"id"`
	Content     string   `json:"content"`
	ListID      string   `json:"listId"`
	Description string   `json:"description"`
	DueDate     *string  `json:"dueDate"`
	Priority    Priority `json:"priority"`
}

// MarshalJSON encodes the due date as YYYY-MM-DD.
func (t Task) MarshalJSON() ([]byte, error) {
	out := taskJSON{
		ID:          t.ID,
		Content:     t.Content,
		ListID:      t.ListID,
		Description: t.Description,
		Priority:    t.Priority,
	}
	if t.DueDate != nil {
		d := FormatDate(t.DueDate)
		out.DueDate = &d
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a task, validating its priority and due date.
func (t *Task) UnmarshalJSON(data []byte) error {
	var in taskJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	prio, err := ParsePriority(string(in.Priority))
	if err != nil {
		return err
	}
	var due *time.Time
	if in.DueDate != nil {
		if due, err = ParseDate(*in.DueDate); err != nil {
			return err
		}
	}
	*t = Task{
		ID:          in.ID,
		Content:     in.Content,
		ListID:      in.ListID,
		Description: in.Description,
		DueDate:     due,
		Priority:    prio,
	}
	return nil
}

// TaskDetails is the full editable content of a task. Detail edits
// replace all four fields at once.
type TaskDetails struct {
	Content     string
	Description string
	DueDate     *time.Time
	Priority    Priority
}
