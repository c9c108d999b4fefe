package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nhle/kanban-sync/internal/keys"
	"github.com/nhle/kanban-sync/internal/model"
	appsync "github.com/nhle/kanban-sync/internal/sync"
	"github.com/nhle/kanban-sync/internal/theme"
	"github.com/nhle/kanban-sync/internal/ui"
	"github.com/nhle/kanban-sync/internal/ui/boardview"
	helpview "github.com/nhle/kanban-sync/internal/ui/help"
	"github.com/nhle/kanban-sync/internal/ui/prompt"
	"github.com/nhle/kanban-sync/internal/ui/taskform"
)

// Toasts disappear after this long.
const toastTTL = 4 * time.Second

// startedMsg reports the end of session start-up.
type startedMsg struct {
	notices []model.Notification
	err     error
}

// closedMsg reports that queued pushes were flushed.
type closedMsg struct{}

// toastExpiredMsg clears the toast created at the given time.
type toastExpiredMsg struct {
	at time.Time
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewPrompt
	ViewForm
	ViewHelp
)

// Option configures the root model.
type Option func(*Model)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Model) { m.log = l }
}

// WithCloseTimeout bounds how long quitting waits for queued pushes.
func WithCloseTimeout(d time.Duration) Option {
	return func(m *Model) { m.closeTimeout = d }
}

// WithDefaultTheme sets the theme used until the user picks one.
func WithDefaultTheme(name string) Option {
	return func(m *Model) { m.defaultTheme = name }
}

// Model is the root Bubble Tea model. It routes input between the board
// and its overlays and turns key presses into session commands.
type Model struct {
	ctrl         *appsync.Controller
	keys         *keys.KeyMap
	layout       ui.Layout
	currentView  ViewState
	board        boardview.Model
	prompt       prompt.Model
	form         taskform.Model
	helpView     helpview.Model
	toast        model.Notification
	log          *log.Logger
	closeTimeout time.Duration
	defaultTheme string
	starting     bool
	quitting     bool
	ready        bool
}

// New creates the root model for a session that has not started yet.
func New(ctrl *appsync.Controller, opts ...Option) Model {
	km := keys.DefaultKeyMap()
	m := Model{
		ctrl:         ctrl,
		keys:         km,
		layout:       ui.NewLayout(80, 24),
		board:        boardview.New(80, 21),
		prompt:       prompt.New(80, 21),
		form:         taskform.New(80, 21),
		helpView:     helpview.New(km, 80, 21),
		log:          log.New(io.Discard),
		closeTimeout: 5 * time.Second,
		starting:     true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the session.
func (m Model) Init() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		notices, err := ctrl.Start(context.Background())
		return startedMsg{notices: notices, err: err}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		h := m.layout.ContentHeight()
		m.board.SetSize(msg.Width, h)
		m.prompt.SetSize(msg.Width, h)
		m.form.SetSize(msg.Width, h)
		m.helpView.SetSize(msg.Width, h)
		if m.currentView == ViewForm {
			return m.updateActiveView(msg)
		}
		return m, nil

	case startedMsg:
		m.starting = false
		var cmd tea.Cmd
		for _, n := range msg.notices {
			cmd = m.notify(n)
		}
		if msg.err != nil {
			return m, cmd
		}
		theme.Apply(m.themeName())
		m.refresh()
		return m, tea.Batch(cmd, m.ctrl.WaitForNotification())

	case appsync.NotificationMsg:
		cmd := m.notify(msg.Notification)
		return m, tea.Batch(cmd, m.ctrl.WaitForNotification())

	case toastExpiredMsg:
		if m.toast.CreatedAt.Equal(msg.at) {
			m.toast = model.Notification{}
		}
		return m, nil

	case closedMsg:
		return m, tea.Quit

	case prompt.SubmitMsg:
		m.currentView = ViewBoard
		cmd := m.submitPrompt(msg)
		return m, cmd

	case prompt.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case taskform.SavedMsg:
		m.currentView = ViewBoard
		cmd := m.dispatch(appsync.UpdateTaskDetails{TaskID: msg.TaskID, Details: msg.Details})
		return m, cmd

	case taskform.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.quitting {
			return m, nil
		}
		switch m.currentView {
		case ViewBoard:
			return m.handleBoardKey(msg)
		case ViewForm:
			if key.Matches(msg, m.keys.Cancel) {
				m.currentView = ViewBoard
				return m, nil
			}
		case ViewHelp:
			if key.Matches(msg, m.keys.Help, m.keys.Cancel, m.keys.Quit) {
				m.currentView = ViewBoard
			}
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case ViewForm:
		m.form, cmd = m.form.Update(msg)
	}
	return m, cmd
}

func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}
	if m.starting || m.ctrl.State() != appsync.StateReady {
		return m, nil
	}
	if m.board.Dragging() {
		return m.handleDragKey(msg)
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.Up):
		m.board.Up()
	case key.Matches(msg, k.Down):
		m.board.Down()
	case key.Matches(msg, k.Left):
		m.board.Left()
	case key.Matches(msg, k.Right):
		m.board.Right()

	case key.Matches(msg, k.NextBoard):
		cmd := m.switchBoard(1)
		return m, cmd
	case key.Matches(msg, k.PrevBoard):
		cmd := m.switchBoard(-1)
		return m, cmd
	case key.Matches(msg, k.NewBoard):
		return m.openPrompt(prompt.NewBoard, "New board", "", "", "Board name")
	case key.Matches(msg, k.RenameBoard):
		b := m.board.Board()
		return m.openPrompt(prompt.RenameBoard, "Rename board", b.ID, b.Name, "Board name")
	case key.Matches(msg, k.DeleteBoard):
		b := m.board.Board()
		return m.openPrompt(prompt.DeleteBoard, fmt.Sprintf("Delete board %q and everything on it?", b.Name), b.ID, "", "")

	case key.Matches(msg, k.NewList):
		return m.openPrompt(prompt.NewList, "New list", "", "", "List title")
	case key.Matches(msg, k.RenameList):
		if l, ok := m.board.FocusedList(); ok {
			return m.openPrompt(prompt.RenameList, "Rename list", l.ID, l.Title, "List title")
		}
	case key.Matches(msg, k.DeleteList):
		if l, ok := m.board.FocusedList(); ok {
			return m.openPrompt(prompt.DeleteList, fmt.Sprintf("Delete list %q and its tasks?", l.Title), l.ID, "", "")
		}

	case key.Matches(msg, k.NewTask):
		if l, ok := m.board.FocusedList(); ok {
			return m.openPrompt(prompt.NewTask, "New task in "+l.Title, l.ID, "", "What needs to be done?")
		}
	case key.Matches(msg, k.EditTask):
		if t, ok := m.board.SelectedTask(); ok {
			m.currentView = ViewForm
			cmd := m.form.Start(t)
			return m, cmd
		}
	case key.Matches(msg, k.DeleteTask):
		if t, ok := m.board.SelectedTask(); ok {
			cmd := m.dispatch(appsync.DeleteTask{TaskID: t.ID})
			return m, cmd
		}

	case key.Matches(msg, k.Grab):
		if t, ok := m.board.SelectedTask(); ok {
			cmd := m.beginDrag(t.ID)
			return m, cmd
		}
	case key.Matches(msg, k.Theme):
		next := theme.Toggle(m.themeName())
		n, err := m.ctrl.Dispatch(context.Background(), appsync.SetTheme{Theme: next})
		if err == nil {
			theme.Apply(next)
		}
		cmd := m.notify(n)
		return m, cmd
	case key.Matches(msg, k.Help):
		m.currentView = ViewHelp
	}
	return m, nil
}

func (m Model) handleDragKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Drop):
		cmd := m.drop()
		return m, cmd
	case key.Matches(msg, k.Cancel):
		m.board.EndDrag()
		cmd := m.dispatch(appsync.CancelDrag{})
		return m, cmd
	case key.Matches(msg, k.Up):
		m.board.Up()
	case key.Matches(msg, k.Down):
		m.board.Down()
	case key.Matches(msg, k.Left):
		m.board.Left()
	case key.Matches(msg, k.Right):
		m.board.Right()
	default:
		return m, nil
	}
	m.updatePreview()
	return m, nil
}

// themeName is the saved theme, or the configured default before the
// user has chosen one.
func (m Model) themeName() string {
	if name := m.ctrl.Preferences().Theme; name != "" {
		return name
	}
	return m.defaultTheme
}

func (m *Model) beginDrag(taskID string) tea.Cmd {
	n, err := m.ctrl.Dispatch(context.Background(), appsync.BeginDrag{TaskID: taskID})
	if err != nil {
		return m.notify(n)
	}
	m.board.StartDrag(taskID)
	m.updatePreview()
	return nil
}

func (m *Model) updatePreview() {
	l, ok := m.board.FocusedList()
	if !ok {
		return
	}
	p, err := m.ctrl.DragPreview(l.ID, m.board.PointerY(), m.board.Slots(l.ID))
	if err != nil {
		m.log.Debug("drag preview", "list", l.ID, "err", err)
		return
	}
	m.board.SetPreview(p)
}

func (m *Model) drop() tea.Cmd {
	taskID, _, _ := m.ctrl.Held()
	p, ok := m.board.Preview()
	m.board.EndDrag()
	if !ok {
		return m.dispatch(appsync.CancelDrag{})
	}
	cmd := m.dispatch(appsync.DropTask{ListID: p.ListID, Order: p.Order})
	m.board.Select(taskID)
	return cmd
}

func (m *Model) switchBoard(step int) tea.Cmd {
	boards := m.ctrl.Boards()
	if len(boards) < 2 {
		return nil
	}
	cur := m.board.Board().ID
	idx := 0
	for i, b := range boards {
		if b.ID == cur {
			idx = i
		}
	}
	next := boards[(idx+step+len(boards))%len(boards)]
	return m.dispatch(appsync.SwitchBoard{BoardID: next.ID})
}

func (m Model) openPrompt(p prompt.Purpose, title, target, value, placeholder string) (tea.Model, tea.Cmd) {
	m.currentView = ViewPrompt
	cmd := m.prompt.Open(p, title, target, value, placeholder)
	return m, cmd
}

func (m *Model) submitPrompt(msg prompt.SubmitMsg) tea.Cmd {
	switch msg.Purpose {
	case prompt.NewBoard:
		return m.dispatch(appsync.AddBoard{Name: msg.Value})
	case prompt.RenameBoard:
		return m.dispatch(appsync.RenameBoard{Name: msg.Value})
	case prompt.DeleteBoard:
		return m.dispatch(appsync.DeleteBoard{})
	case prompt.NewList:
		return m.dispatch(appsync.AddList{Title: msg.Value})
	case prompt.RenameList:
		return m.dispatch(appsync.RenameList{ListID: msg.Target, Title: msg.Value})
	case prompt.DeleteList:
		return m.dispatch(appsync.DeleteList{ListID: msg.Target})
	case prompt.NewTask:
		cmd := m.dispatch(appsync.AddTask{ListID: msg.Target, Content: msg.Value})
		if b, ok := m.ctrl.CurrentBoard(); ok {
			for _, l := range b.Lists {
				if l.ID == msg.Target && len(l.Tasks) > 0 {
					m.board.Select(l.Tasks[len(l.Tasks)-1].ID)
				}
			}
		}
		return cmd
	}
	return nil
}

// dispatch runs cmd against the session, refreshes the board and shows
// the resulting notification.
func (m *Model) dispatch(cmd appsync.Command) tea.Cmd {
	n, _ := m.ctrl.Dispatch(context.Background(), cmd)
	m.refresh()
	return m.notify(n)
}

func (m *Model) refresh() {
	b, _ := m.ctrl.CurrentBoard()
	m.board.SetBoard(b)
}

// notify shows n and schedules its removal.
func (m *Model) notify(n model.Notification) tea.Cmd {
	if n.IsZero() {
		return nil
	}
	m.toast = n
	at := n.CreatedAt
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{at: at}
	})
}

// quit flushes queued pushes before leaving. A session that is still
// starting has nothing to flush.
func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}
	m.quitting = true
	if m.starting {
		return m, tea.Quit
	}
	ctrl, timeout, logger := m.ctrl, m.closeTimeout, m.log
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := ctrl.Close(ctx); err != nil {
			logger.Warn("unsent changes left on exit", "err", err)
		}
		return closedMsg{}
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Kanban"
	if b := m.board.Board(); b.Name != "" {
		title = b.Name
	}
	header := m.layout.RenderHeader(title, m.status())
	toast := m.layout.RenderToast(m.toast)
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, m.renderContent(), toast, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewPrompt:
		return m.prompt.View()
	case ViewForm:
		return m.form.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return m.board.View()
	}
}

// status returns a short description of the session state.
func (m Model) status() string {
	switch {
	case m.quitting:
		return "saving…"
	case m.starting:
		return "loading…"
	case m.ctrl.State() == appsync.StateError:
		return "offline: nothing loaded"
	}
	return fmt.Sprintf("%d boards · %s", len(m.ctrl.Boards()), m.ctrl.Source())
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewPrompt:
		return "enter submit | esc cancel"
	case ViewForm:
		return "tab next field | enter submit | esc cancel"
	case ViewHelp:
		return "? close help | esc back"
	}
	if m.board.Dragging() {
		return "h/j/k/l move | enter drop | esc cancel"
	}
	return m.helpView.ShortView()
}
