// Package persist decides where the board hierarchy comes from and where
// it goes: the remote server first, the local cache as a fallback, and a
// starter board when both are empty.
package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/kanban-sync/internal/board"
	"github.com/nhle/kanban-sync/internal/credential"
	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/remote"
	"github.com/nhle/kanban-sync/internal/store"
)

// User-facing notices raised while loading.
const (
	MsgRemoteUnreachable = "Could not connect to the server. Loading a local backup."
	MsgStartingFresh     = "Could not load any saved data, starting fresh."
	MsgBootstrapFailed   = "Could not create a sample board on the server."
	MsgBootstrapped      = "Created a sample board for you!"
)

// Source tells where a loaded hierarchy came from.
type Source string

const (
	SourceRemote    Source = "remote"
	SourceCache     Source = "cache"
	SourceBootstrap Source = "bootstrap"
	SourceStarter   Source = "starter"
)

// LoadResult is the outcome of Load or Bootstrap.
type LoadResult struct {
	Hierarchy   model.Hierarchy
	Preferences model.Preferences
	Source      Source

	// Empty is set when neither the remote nor the cache held a board.
	// The caller follows up with Bootstrap.
	Empty bool

	// RemoteReachable is set when the remote answered the board query.
	RemoteReachable bool

	// NeedsSave is set when the hierarchy exists only in memory.
	NeedsSave bool

	Notices []model.Notification
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRemote enables the remote server. Without it the adapter runs from
// the cache alone.
func WithRemote(r Remote) Option {
	return func(a *Adapter) { a.remote = r }
}

// WithCredentials lets the adapter log in with a stored account and keep
// the account created for the starter board.
func WithCredentials(c Credentials) Option {
	return func(a *Adapter) { a.creds = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithIDFunc overrides id generation for locally synthesized entities.
func WithIDFunc(fn board.IDFunc) Option {
	return func(a *Adapter) { a.newID = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// Adapter loads and saves the board hierarchy.
type Adapter struct {
	remote Remote
	cache  store.Cache
	creds  Credentials
	log    *log.Logger
	newID  board.IDFunc
	now    func() time.Time
}

// New creates an adapter over cache.
func New(cache store.Cache, opts ...Option) *Adapter {
	a := &Adapter{
		cache: cache,
		log:   log.New(io.Discard),
		newID: board.NewUUID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HasRemote reports whether a remote server is configured.
func (a *Adapter) HasRemote() bool {
	return a.remote != nil
}

// Login signs in with the account stored for the configured server, if
// any. Failures are logged and otherwise ignored.
func (a *Adapter) Login(ctx context.Context) {
	if a.remote == nil || a.creds == nil {
		return
	}
	acct, err := a.creds.LoadAccount(a.remote.BaseURL())
	if errors.Is(err, credential.ErrNoAccount) {
		return
	}
	if err != nil {
		a.log.Warn("reading stored account", "err", err)
		return
	}
	err = a.remote.Login(ctx, remote.Credentials{Username: acct.Username, Password: acct.Password})
	if err != nil {
		a.log.Warn("logging in with stored account", "user", acct.Username, "err", err)
		return
	}
	a.log.Info("logged in", "user", acct.Username)
}

// Load fetches the hierarchy from the remote, falling back to the cache
// when the remote cannot be reached. A remote result is written through
// to the cache. It returns an error only when the cache itself fails in a
// way that cannot be recovered from.
func (a *Adapter) Load(ctx context.Context) (LoadResult, error) {
	prefs, err := a.cache.LoadPreferences(ctx)
	if err != nil {
		a.log.Warn("reading preferences", "err", err)
		prefs = model.Preferences{}
	}

	var notices []model.Notification
	if a.remote != nil {
		a.Login(ctx)

		h, err := a.loadRemote(ctx)
		if err == nil {
			if h.Empty() {
				a.log.Info("remote has no boards")
				return LoadResult{Preferences: prefs, Source: SourceRemote, Empty: true, RemoteReachable: true}, nil
			}
			h.CurrentBoardID = pickCurrent(h, prefs.LastBoardID, "")
			if err := a.cache.SaveSnapshot(ctx, h); err != nil {
				a.log.Warn("writing remote snapshot to cache", "err", err)
			}
			a.log.Info("loaded boards from remote", "boards", len(h.Boards))
			return LoadResult{Hierarchy: h, Preferences: prefs, Source: SourceRemote, RemoteReachable: true}, nil
		}
		a.log.Error("loading from remote", "err", err)
		notices = append(notices, a.notice(model.LevelError, MsgRemoteUnreachable))
	}

	h, err := a.cache.LoadSnapshot(ctx)
	switch {
	case errors.Is(err, store.ErrCorruptSnapshot):
		a.log.Error("discarding cached snapshot", "err", err)
		if err := a.cache.ClearSnapshot(ctx); err != nil {
			return LoadResult{}, &PersistenceError{Op: "clearing corrupt snapshot", Err: err}
		}
		notices = append(notices, a.notice(model.LevelError, MsgStartingFresh))
		h = model.Hierarchy{}
	case err != nil:
		a.log.Error("reading cached snapshot", "err", err)
		notices = append(notices, a.notice(model.LevelError, MsgStartingFresh))
		h = model.Hierarchy{}
	}

	if h.Empty() {
		return LoadResult{Preferences: prefs, Source: SourceCache, Empty: true, Notices: notices}, nil
	}
	h.CurrentBoardID = pickCurrent(h, prefs.LastBoardID, h.CurrentBoardID)
	a.log.Info("loaded boards from cache", "boards", len(h.Boards))
	return LoadResult{Hierarchy: h, Preferences: prefs, Source: SourceCache, Notices: notices}, nil
}

// Save writes h to the cache and records its current board as the last
// viewed one. The remote is not involved.
func (a *Adapter) Save(ctx context.Context, h model.Hierarchy, prefs model.Preferences) error {
	if err := a.cache.SaveSnapshot(ctx, h); err != nil {
		return &PersistenceError{Op: "saving snapshot", Err: err}
	}
	prefs.LastBoardID = h.CurrentBoardID
	if err := a.cache.SavePreferences(ctx, prefs); err != nil {
		return &PersistenceError{Op: "saving preferences", Err: err}
	}
	return nil
}

// SavePreferences writes display preferences only.
func (a *Adapter) SavePreferences(ctx context.Context, prefs model.Preferences) error {
	if err := a.cache.SavePreferences(ctx, prefs); err != nil {
		return &PersistenceError{Op: "saving preferences", Err: err}
	}
	return nil
}

// loadRemote reads every board and its lists. Any failure fails the
// whole load so a partial hierarchy never replaces the cache.
func (a *Adapter) loadRemote(ctx context.Context) (model.Hierarchy, error) {
	boards, err := a.remote.ListBoards(ctx)
	if err != nil {
		return model.Hierarchy{}, &PersistenceError{Op: "listing boards", Err: err}
	}

	h := model.Hierarchy{Boards: make([]model.Board, 0, len(boards))}
	for _, b := range boards {
		lists, err := a.remote.ListLists(ctx, b.ID)
		if err != nil {
			return model.Hierarchy{}, &PersistenceError{Op: fmt.Sprintf("listing lists of board %d", b.ID), Err: err}
		}
		mb, err := b.ToBoard(lists)
		if err != nil {
			return model.Hierarchy{}, &PersistenceError{Op: fmt.Sprintf("decoding board %d", b.ID), Err: err}
		}
		h.Boards = append(h.Boards, mb)
	}
	if !h.Empty() {
		if err := board.Validate(h); err != nil {
			return model.Hierarchy{}, &PersistenceError{Op: "checking remote boards", Err: err}
		}
	}
	return h, nil
}

func (a *Adapter) notice(level model.Level, msg string) model.Notification {
	return model.Notification{Level: level, Message: msg, CreatedAt: a.now()}
}

// pickCurrent returns the first of the candidate ids naming a board in h,
// or the first board.
func pickCurrent(h model.Hierarchy, candidates ...string) string {
	for _, id := range candidates {
		if id == "" {
			continue
		}
		if _, ok := h.Board(id); ok {
			return id
		}
	}
	if h.Empty() {
		return ""
	}
	return h.Boards[0].ID
}
