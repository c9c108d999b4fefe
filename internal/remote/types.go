package remote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/kanban-sync/internal/model"
)

// Credentials is the body of the register and login endpoints.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Project groups boards on the server.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Board is the server representation of a board.
type Board struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Project *int64 `json:"project,omitempty"`
}

// List is the server representation of a list with its cards embedded.
type List struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Board    int64  `json:"board"`
	Position int    `json:"position"`
	Tasks    []Card `json:"tasks"`
}

// Card is the server representation of a task.
type Card struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	List        int64   `json:"list"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    string  `json:"priority"`
	Position    int     `json:"position"`
}

// CardInput is the body of POST /api/cards/.
type CardInput struct {
	Title       string  `json:"title"`
	List        int64   `json:"list"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
	Position    int     `json:"position"`
}

// CardPatch is the body of PATCH /api/cards/{id}/. Nil fields are left
// untouched by the server.
type CardPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	List        *int64  `json:"list,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// FormatID renders a server id the way the board model stores it.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID reports the server id behind a model id. Locally created ids
// (UUIDs) are not server ids.
func ParseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ToTask converts a card into a model task.
func (c Card) ToTask() (model.Task, error) {
	prio, err := model.ParsePriority(c.Priority)
	if err != nil {
		return model.Task{}, fmt.Errorf("card %d: %w", c.ID, err)
	}
	var dueStr string
	if c.DueDate != nil {
		dueStr = *c.DueDate
	}
	due, err := model.ParseDate(dueStr)
	if err != nil {
		return model.Task{}, fmt.Errorf("card %d: %w", c.ID, err)
	}
	return model.Task{
		ID:          FormatID(c.ID),
		Content:     strings.TrimSpace(c.Title),
		ListID:      FormatID(c.List),
		Description: c.Description,
		DueDate:     due,
		Priority:    prio,
	}, nil
}

// ToList converts a list and its cards into a model list. Cards keep the
// order the server returned them in.
func (l List) ToList() (model.List, error) {
	out := model.List{
		ID:      FormatID(l.ID),
		Title:   l.Title,
		BoardID: FormatID(l.Board),
		Tasks:   make([]model.Task, 0, len(l.Tasks)),
	}
	for _, c := range l.Tasks {
		t, err := c.ToTask()
		if err != nil {
			return model.List{}, err
		}
		// Cards nested under a list always belong to it.
		t.ListID = out.ID
		out.Tasks = append(out.Tasks, t)
	}
	return out, nil
}

// ToBoard converts a board and its lists into a model board.
func (b Board) ToBoard(lists []List) (model.Board, error) {
	out := model.Board{
		ID:    FormatID(b.ID),
		Name:  b.Name,
		Lists: make([]model.List, 0, len(lists)),
	}
	for _, l := range lists {
		ml, err := l.ToList()
		if err != nil {
			return model.Board{}, err
		}
		ml.BoardID = out.ID
		out.Lists = append(out.Lists, ml)
	}
	return out, nil
}

// CardInputFromTask builds a create body for t in the server list listID.
func CardInputFromTask(t model.Task, listID int64, position int) CardInput {
	in := CardInput{
		Title:       t.Content,
		List:        listID,
		Description: t.Description,
		Priority:    string(t.Priority),
		Position:    position,
	}
	if in.Priority == "" {
		in.Priority = string(model.PriorityLow)
	}
	if t.DueDate != nil {
		d := model.FormatDate(t.DueDate)
		in.DueDate = &d
	}
	return in
}
