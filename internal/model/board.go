package model

// List is an ordered column of tasks within a board.
type List struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	BoardID string `json:"boardId"`
	Tasks   []Task `json:"tasks"`
}

// TaskIDs returns the ids of the list's tasks in display order.
func (l List) TaskIDs() []string {
	ids := make([]string, len(l.Tasks))
	for i, t := range l.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// Board is a named workspace holding lists.
type Board struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Lists []List `json:"lists"`
}

// Hierarchy is a complete snapshot of the board state: every board with
// its lists and tasks, plus the id of the board currently on screen.
type Hierarchy struct {
	Boards         []Board `json:"boards"`
	CurrentBoardID string  `json:"currentBoardId"`
}

// Empty reports whether the hierarchy holds no boards.
func (h Hierarchy) Empty() bool {
	return len(h.Boards) == 0
}

// Board returns the board with the given id.
func (h Hierarchy) Board(id string) (Board, bool) {
	for _, b := range h.Boards {
		if b.ID == id {
			return b, true
		}
	}
	return Board{}, false
}

// Clone returns a deep copy of the hierarchy.
func (h Hierarchy) Clone() Hierarchy {
	out := Hierarchy{CurrentBoardID: h.CurrentBoardID}
	if h.Boards != nil {
		out.Boards = make([]Board, len(h.Boards))
		for i, b := range h.Boards {
			out.Boards[i] = b.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	out := b
	if b.Lists != nil {
		out.Lists = make([]List, len(b.Lists))
		for i, l := range b.Lists {
			out.Lists[i] = l.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the list.
func (l List) Clone() List {
	out := l
	if l.Tasks != nil {
		out.Tasks = make([]Task, len(l.Tasks))
		for i, t := range l.Tasks {
			out.Tasks[i] = t.Clone()
		}
	}
	return out
}

// Clone returns a copy of the task that shares no memory with t.
func (t Task) Clone() Task {
	out := t
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	return out
}
