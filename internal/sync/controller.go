// Package sync runs a board session. The controller loads the hierarchy,
// applies user commands to the board store, saves each change locally and
// hands it to the pusher for the server.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nhle/kanban-sync/internal/board"
	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/persist"
	"github.com/nhle/kanban-sync/internal/reorder"
)

// State is the lifecycle stage of a session.
type State int

const (
	StateLoading State = iota
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrNotReady rejects commands dispatched outside the Ready state.
var ErrNotReady = errors.New("board is not ready")

// User-facing messages raised by the controller itself.
const (
	MsgNotReady   = "The board is not ready yet."
	MsgLoadFailed = "Could not load your boards."
	MsgSaveFailed = "Could not save your changes on this device."
)

// Adapter loads and saves the hierarchy.
type Adapter interface {
	Load(ctx context.Context) (persist.LoadResult, error)
	Bootstrap(ctx context.Context, remoteReachable bool) (persist.LoadResult, error)
	Save(ctx context.Context, h model.Hierarchy, prefs model.Preferences) error
	SavePreferences(ctx context.Context, prefs model.Preferences) error
}

// Pusher replays changes on the server in the background.
type Pusher interface {
	Start()
	Stop()
	Enqueue(job persist.Job)
	Flush(ctx context.Context) error
	Notifications() <-chan model.Notification
}

var (
	_ Adapter = (*persist.Adapter)(nil)
	_ Pusher  = (*persist.Pusher)(nil)
)

// NotificationMsg is a tea.Msg carrying a notification raised in the
// background.
type NotificationMsg struct {
	Notification model.Notification
}

// Option configures a Controller.
type Option func(*Controller)

// WithPusher enables remote pushes.
func WithPusher(p Pusher) Option {
	return func(c *Controller) { c.pusher = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithClock overrides the time stamped on notifications.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithBoardOptions configures the board store the controller creates.
func WithBoardOptions(opts ...board.Option) Option {
	return func(c *Controller) { c.boardOpts = append(c.boardOpts, opts...) }
}

// Controller owns the board store for one session. It is not safe for
// concurrent use; the UI loop is its only caller.
type Controller struct {
	adapter   Adapter
	pusher    Pusher
	board     *board.Store
	drag      *reorder.Engine
	log       *log.Logger
	now       func() time.Time
	boardOpts []board.Option

	state   State
	source  persist.Source
	prefs   model.Preferences
	pushing bool
}

// New creates a controller in the Loading state.
func New(adapter Adapter, opts ...Option) *Controller {
	c := &Controller{
		adapter: adapter,
		log:     log.New(io.Discard),
		now:     time.Now,
		state:   StateLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.board = board.New(c.boardOpts...)
	c.drag = reorder.New(c.board)
	return c
}

// Start loads the hierarchy, bootstrapping a starter board when nothing
// was found, and moves the session to Ready. On failure the session ends
// in Error with an empty board. The returned notices are meant for the
// user either way.
func (c *Controller) Start(ctx context.Context) ([]model.Notification, error) {
	if c.state != StateLoading {
		return nil, fmt.Errorf("session already started (%s)", c.state)
	}

	res, err := c.adapter.Load(ctx)
	if err != nil {
		return c.fail(nil, fmt.Errorf("loading boards: %w", err))
	}
	notices := res.Notices
	if res.Empty {
		res, err = c.adapter.Bootstrap(ctx, res.RemoteReachable)
		if err != nil {
			return c.fail(notices, fmt.Errorf("creating starter board: %w", err))
		}
		notices = append(notices, res.Notices...)
	}

	if err := c.board.Replace(res.Hierarchy); err != nil {
		return c.fail(notices, fmt.Errorf("installing boards: %w", err))
	}
	c.prefs = res.Preferences
	c.source = res.Source
	c.state = StateReady

	if res.NeedsSave {
		if n := c.save(ctx); !n.IsZero() {
			notices = append(notices, n)
		}
	}
	if c.pusher != nil {
		c.pusher.Start()
		c.pushing = true
	}

	c.log.Info("session ready", "source", c.source, "boards", len(c.board.Boards()), "board", c.board.CurrentBoardID())
	return notices, nil
}

func (c *Controller) fail(notices []model.Notification, err error) ([]model.Notification, error) {
	c.state = StateError
	c.log.Error("starting session", "err", err)
	return append(notices, c.notice(model.LevelError, MsgLoadFailed)), err
}

// Close pushes what is still queued, within ctx, and stops the pusher.
func (c *Controller) Close(ctx context.Context) error {
	if !c.pushing {
		return nil
	}
	c.pushing = false
	err := c.pusher.Flush(ctx)
	c.pusher.Stop()
	return err
}

// Dispatch applies cmd. Successful mutations are saved locally and queued
// for the server. Rejected commands come back as an error-level
// notification together with the error; deleting something that is
// already gone is not an error.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) (model.Notification, error) {
	if c.state != StateReady {
		return c.notice(model.LevelError, MsgNotReady), ErrNotReady
	}

	n, err := c.apply(ctx, cmd)
	if err != nil {
		c.log.Warn("command rejected", "command", fmt.Sprintf("%T", cmd), "err", err)
		return c.notice(model.LevelError, userMessage(err)), err
	}
	return n, nil
}

func (c *Controller) apply(ctx context.Context, cmd Command) (model.Notification, error) {
	switch cmd := cmd.(type) {
	case AddBoard:
		b, err := c.board.AddBoard(cmd.Name)
		if err != nil {
			return model.Notification{}, err
		}
		c.push(persist.Job{Kind: persist.JobCreateBoard, ID: b.ID, Name: b.Name})
		return c.commit(ctx, model.LevelSuccess, fmt.Sprintf("Board \"%s\" created successfully.", b.Name)), nil

	case RenameBoard:
		old, _ := c.board.CurrentBoard()
		if err := c.board.RenameBoard(cmd.Name); err != nil {
			return model.Notification{}, err
		}
		b, _ := c.board.CurrentBoard()
		c.push(persist.Job{Kind: persist.JobRenameBoard, ID: b.ID, Name: b.Name})
		return c.commit(ctx, model.LevelInfo, fmt.Sprintf("Board renamed from \"%s\" to \"%s\".", old.Name, b.Name)), nil

	case DeleteBoard:
		b, err := c.board.DeleteBoard()
		if board.IsNotFound(err) {
			return model.Notification{}, nil
		}
		if err != nil {
			return model.Notification{}, err
		}
		c.push(persist.Job{Kind: persist.JobDeleteBoard, ID: b.ID})
		return c.commit(ctx, model.LevelSuccess, fmt.Sprintf("Board \"%s\" was deleted.", b.Name)), nil

	case SwitchBoard:
		if err := c.board.SwitchBoard(cmd.BoardID); err != nil {
			return model.Notification{}, err
		}
		c.drag.Cancel()
		b, _ := c.board.CurrentBoard()
		return c.commit(ctx, model.LevelInfo, fmt.Sprintf("Switched to board \"%s\".", b.Name)), nil

	case AddList:
		l, err := c.board.AddList(cmd.Title)
		if err != nil {
			return model.Notification{}, err
		}
		b, _ := c.board.CurrentBoard()
		c.push(persist.Job{Kind: persist.JobCreateList, ID: l.ID, ParentID: l.BoardID, Name: l.Title, Position: len(b.Lists) - 1})
		return c.commit(ctx, model.LevelSuccess, fmt.Sprintf("List \"%s\" added.", l.Title)), nil

	case RenameList:
		if err := c.board.RenameList(cmd.ListID, cmd.Title); err != nil {
			return model.Notification{}, err
		}
		l, _ := c.board.List(cmd.ListID)
		c.push(persist.Job{Kind: persist.JobRenameList, ID: l.ID, Name: l.Title})
		return c.commit(ctx, model.LevelInfo, "List renamed successfully."), nil

	case DeleteList:
		l, err := c.board.DeleteList(cmd.ListID)
		if board.IsNotFound(err) {
			return model.Notification{}, nil
		}
		if err != nil {
			return model.Notification{}, err
		}
		c.push(persist.Job{Kind: persist.JobDeleteList, ID: l.ID})
		return c.commit(ctx, model.LevelSuccess, fmt.Sprintf("List \"%s\" was deleted.", l.Title)), nil

	case AddTask:
		t, err := c.board.AddTask(cmd.ListID, cmd.Content)
		if err != nil {
			return model.Notification{}, err
		}
		l, _ := c.board.List(t.ListID)
		c.push(persist.Job{Kind: persist.JobCreateTask, ID: t.ID, ParentID: t.ListID, Task: t, Position: len(l.Tasks) - 1})
		return c.commit(ctx, model.LevelSuccess, "Task added."), nil

	case UpdateTask:
		if err := c.board.UpdateTask(cmd.TaskID, cmd.Content); err != nil {
			return model.Notification{}, err
		}
		c.pushTask(cmd.TaskID)
		return c.commit(ctx, model.LevelSuccess, "Task updated successfully."), nil

	case UpdateTaskDetails:
		if err := c.board.UpdateTaskDetails(cmd.TaskID, cmd.Details); err != nil {
			return model.Notification{}, err
		}
		c.pushTask(cmd.TaskID)
		return c.commit(ctx, model.LevelSuccess, "Task updated successfully."), nil

	case DeleteTask:
		t, err := c.board.DeleteTask(cmd.TaskID)
		if board.IsNotFound(err) {
			return model.Notification{}, nil
		}
		if err != nil {
			return model.Notification{}, err
		}
		c.push(persist.Job{Kind: persist.JobDeleteTask, ID: t.ID})
		return c.commit(ctx, model.LevelSuccess, "Task deleted."), nil

	case MoveTask:
		_, src, ok := c.board.FindTaskByID(cmd.TaskID)
		if !ok {
			return model.Notification{}, &board.NotFoundError{Kind: "task", ID: cmd.TaskID}
		}
		before, _ := c.board.List(cmd.ListID)
		if err := c.board.MoveTask(cmd.TaskID, cmd.ListID, cmd.Index); err != nil {
			return model.Notification{}, err
		}
		after, _ := c.board.List(cmd.ListID)
		if src.ID == cmd.ListID && slices.Equal(before.TaskIDs(), after.TaskIDs()) {
			return model.Notification{}, nil
		}
		c.pushOrder(cmd.ListID, src.ID)
		return c.commit(ctx, "", ""), nil

	case ReorderList:
		changed, err := c.board.ReorderList(cmd.ListID, cmd.Order)
		if err != nil || !changed {
			return model.Notification{}, err
		}
		c.pushOrder(cmd.ListID)
		return c.commit(ctx, "", ""), nil

	case SetTheme:
		if cmd.Theme != model.ThemeLight && cmd.Theme != model.ThemeDark {
			return model.Notification{}, &board.ValidationError{Field: "theme", Message: fmt.Sprintf("Unknown theme \"%s\".", cmd.Theme)}
		}
		c.prefs.Theme = cmd.Theme
		c.prefs.LastBoardID = c.board.CurrentBoardID()
		if err := c.adapter.SavePreferences(ctx, c.prefs); err != nil {
			c.log.Error("saving preferences", "err", err)
			return c.notice(model.LevelError, MsgSaveFailed), nil
		}
		return model.Notification{}, nil

	case BeginDrag:
		return model.Notification{}, c.drag.Begin(cmd.TaskID)

	case DropTask:
		_, from, ok := c.drag.Held()
		if !ok {
			return model.Notification{}, reorder.ErrNothingHeld
		}
		changed, err := c.drag.Drop(cmd.ListID, cmd.Order)
		if err != nil || !changed {
			return model.Notification{}, err
		}
		c.pushOrder(cmd.ListID, from)
		return c.commit(ctx, "", ""), nil

	case CancelDrag:
		c.drag.Cancel()
		return model.Notification{}, nil
	}
	return model.Notification{}, fmt.Errorf("unknown command %T", cmd)
}

// commit saves the board and returns msg as a notification. A failed save
// keeps the change in memory and reports MsgSaveFailed instead.
func (c *Controller) commit(ctx context.Context, level model.Level, msg string) model.Notification {
	if n := c.save(ctx); !n.IsZero() {
		return n
	}
	if msg == "" {
		return model.Notification{}
	}
	return c.notice(level, msg)
}

func (c *Controller) save(ctx context.Context) model.Notification {
	h := c.board.Snapshot()
	if err := c.adapter.Save(ctx, h, c.prefs); err != nil {
		c.log.Error("saving boards", "err", err)
		return c.notice(model.LevelError, MsgSaveFailed)
	}
	c.prefs.LastBoardID = h.CurrentBoardID
	return model.Notification{}
}

func (c *Controller) push(job persist.Job) {
	if c.pusher != nil {
		c.pusher.Enqueue(job)
	}
}

func (c *Controller) pushTask(taskID string) {
	t, _, ok := c.board.FindTaskByID(taskID)
	if ok {
		c.push(persist.Job{Kind: persist.JobUpdateTask, ID: t.ID, Task: t})
	}
}

// pushOrder queues the task order of each distinct list.
func (c *Controller) pushOrder(listIDs ...string) {
	seen := make(map[string]bool, len(listIDs))
	for _, id := range listIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if l, ok := c.board.List(id); ok {
			c.push(persist.Job{Kind: persist.JobSyncOrder, ParentID: l.ID, Order: l.TaskIDs()})
		}
	}
}

func (c *Controller) notice(level model.Level, msg string) model.Notification {
	return model.Notification{Level: level, Message: msg, CreatedAt: c.now()}
}

// userMessage picks the text shown for a rejected command.
func userMessage(err error) string {
	var verr *board.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var ierr *board.InvariantError
	if errors.As(err, &ierr) {
		return ierr.Message
	}
	if errors.Is(err, reorder.ErrNothingHeld) {
		return "Pick up a task first."
	}
	return err.Error()
}

// State returns the lifecycle stage.
func (c *Controller) State() State { return c.state }

// Source tells where the boards were loaded from.
func (c *Controller) Source() persist.Source { return c.source }

// Preferences returns the display preferences.
func (c *Controller) Preferences() model.Preferences { return c.prefs }

// Snapshot returns a copy of the whole hierarchy.
func (c *Controller) Snapshot() model.Hierarchy { return c.board.Snapshot() }

// Boards returns copies of every board.
func (c *Controller) Boards() []model.Board { return c.board.Boards() }

// CurrentBoard returns a copy of the board on screen.
func (c *Controller) CurrentBoard() (model.Board, bool) { return c.board.CurrentBoard() }

// FindTask looks a task up on the current board.
func (c *Controller) FindTask(taskID string) (model.Task, model.List, bool) {
	return c.board.FindTaskByID(taskID)
}

// Held returns the task being dragged, if any.
func (c *Controller) Held() (taskID, fromList string, ok bool) { return c.drag.Held() }

// DragPreview projects where the held task would land in listID with the
// pointer at pointerY.
func (c *Controller) DragPreview(listID string, pointerY float64, slots []reorder.Slot) (reorder.Preview, error) {
	return c.drag.Over(listID, pointerY, slots)
}

// WaitForNotification returns a tea.Cmd that waits for the next
// background notification. Call it again after each NotificationMsg to
// keep listening. It returns nil when nothing is pushed.
func (c *Controller) WaitForNotification() tea.Cmd {
	if c.pusher == nil {
		return nil
	}
	ch := c.pusher.Notifications()
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return NotificationMsg{Notification: n}
	}
}
