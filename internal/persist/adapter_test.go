package persist_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/99designs/keyring"

	"github.com/nhle/kanban-sync/internal/credential"
	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/persist"
	"github.com/nhle/kanban-sync/internal/remote"
	"github.com/nhle/kanban-sync/internal/remote/remotetest"
	"github.com/nhle/kanban-sync/internal/store"
	"github.com/nhle/kanban-sync/tests/testutil"
)

var fixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func seqIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("local-%d", n), nil
	}
}

func newRemote(t *testing.T, srv *remotetest.Server) *remote.Client {
	t.Helper()
	c, err := remote.NewClient(srv.URL(), remote.WithTimeout(5*time.Second), remote.WithRetry(0, time.Millisecond))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func hasNotice(notices []model.Notification, level model.Level, msg string) bool {
	for _, n := range notices {
		if n.Level == level && n.Message == msg {
			return true
		}
	}
	return false
}

// stubCache lets a test script cache failures.
type stubCache struct {
	loadSnapshotFn func(ctx context.Context) (model.Hierarchy, error)
	cleared        int
	saved          []model.Hierarchy
}

func (s *stubCache) LoadSnapshot(ctx context.Context) (model.Hierarchy, error) {
	if s.loadSnapshotFn == nil {
		return model.Hierarchy{}, errors.New("unexpected LoadSnapshot call")
	}
	return s.loadSnapshotFn(ctx)
}

func (s *stubCache) SaveSnapshot(_ context.Context, h model.Hierarchy) error {
	s.saved = append(s.saved, h)
	return nil
}

func (s *stubCache) ClearSnapshot(context.Context) error {
	s.cleared++
	return nil
}

func (s *stubCache) LoadPreferences(context.Context) (model.Preferences, error) {
	return model.Preferences{}, nil
}

func (s *stubCache) SavePreferences(context.Context, model.Preferences) error { return nil }

func (s *stubCache) Close() error { return nil }

func TestBootstrapOnEmptyRemote(t *testing.T) {
	srv := remotetest.New(t)
	cache := testutil.NewTestStore(t)
	creds := credential.New(keyring.NewArrayKeyring(nil))
	ctx := context.Background()

	a := persist.New(cache,
		persist.WithRemote(newRemote(t, srv)),
		persist.WithCredentials(creds),
		persist.WithClock(clock),
	)

	res, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Empty || !res.RemoteReachable {
		t.Fatalf("expected empty reachable remote, got %+v", res)
	}
	// From here on the server only serves the account created by Bootstrap.
	srv.RequireLogin(true)

	res, err = a.Bootstrap(ctx, res.RemoteReachable)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if res.Source != persist.SourceBootstrap || res.NeedsSave {
		t.Fatalf("expected remote bootstrap, got source=%s needsSave=%v", res.Source, res.NeedsSave)
	}
	if !hasNotice(res.Notices, model.LevelSuccess, persist.MsgBootstrapped) {
		t.Fatalf("missing success notice: %+v", res.Notices)
	}

	h := res.Hierarchy
	if len(h.Boards) != 1 || h.Boards[0].Name != persist.StarterBoardName || h.CurrentBoardID != h.Boards[0].ID {
		t.Fatalf("unexpected boards: %+v", h.Boards)
	}
	b := h.Boards[0]
	var titles []string
	var counts []int
	for _, l := range b.Lists {
		titles = append(titles, l.Title)
		counts = append(counts, len(l.Tasks))
	}
	if !reflect.DeepEqual(titles, []string{"To Do", "In Progress", "Done"}) {
		t.Fatalf("unexpected lists: %v", titles)
	}
	if !reflect.DeepEqual(counts, []int{2, 1, 0}) {
		t.Fatalf("unexpected task counts: %v", counts)
	}
	first := b.Lists[0].Tasks[0]
	if first.Content != "Set up project structure" || first.Priority != model.PriorityHigh ||
		model.FormatDate(first.DueDate) != "2026-10-19" {
		t.Fatalf("unexpected first task: %+v", first)
	}

	// Server side mirrors the hierarchy.
	boards := srv.Boards()
	if len(boards) != 1 || remote.FormatID(boards[0].ID) != b.ID {
		t.Fatalf("server boards: %+v", boards)
	}
	if projects := srv.Projects(); len(projects) != 1 || projects[0].Name != persist.StarterProjectName {
		t.Fatalf("server projects: %+v", projects)
	}
	if lists := srv.Lists(boards[0].ID); len(lists) != 3 || len(lists[0].Tasks) != 2 || len(lists[1].Tasks) != 1 {
		t.Fatalf("server lists: %+v", lists)
	}

	// Cache mirrors the hierarchy.
	cached, err := cache.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if !reflect.DeepEqual(cached, h) {
		t.Fatalf("cache does not mirror hierarchy:\n got %+v\nwant %+v", cached, h)
	}

	// The generated account is kept for the next session.
	acct, err := creds.LoadAccount(srv.URL())
	if err != nil {
		t.Fatalf("stored account: %v", err)
	}
	if acct.Username != fmt.Sprintf("user%d", fixedNow.UnixMilli()) || acct.Password == "" {
		t.Fatalf("unexpected account: %+v", acct)
	}
}

func TestLoadFallsBackToCacheOnNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		lastBoardID string
		snapCurrent string
		want        string
	}{
		{"last viewed board wins", "home", "work", "home"},
		{"snapshot current board", "", "home", "home"},
		{"unknown ids select first board", "gone", "missing", "work"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := remotetest.New(t)
			client := newRemote(t, srv)
			srv.Close()

			cache := testutil.NewTestStore(t)
			ctx := context.Background()
			snap := testutil.SampleHierarchy()
			snap.CurrentBoardID = tt.snapCurrent
			if err := cache.SaveSnapshot(ctx, snap); err != nil {
				t.Fatalf("seed cache: %v", err)
			}
			if err := cache.SavePreferences(ctx, model.Preferences{LastBoardID: tt.lastBoardID}); err != nil {
				t.Fatalf("seed prefs: %v", err)
			}

			res, err := persist.New(cache, persist.WithRemote(client)).Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if res.Source != persist.SourceCache || res.Empty || res.RemoteReachable {
				t.Fatalf("unexpected result: %+v", res)
			}
			if res.Hierarchy.CurrentBoardID != tt.want {
				t.Fatalf("current board = %q, want %q", res.Hierarchy.CurrentBoardID, tt.want)
			}
			if len(res.Hierarchy.Boards) != 2 {
				t.Fatalf("expected both cached boards, got %d", len(res.Hierarchy.Boards))
			}
			if !hasNotice(res.Notices, model.LevelError, persist.MsgRemoteUnreachable) {
				t.Fatalf("missing fallback notice: %+v", res.Notices)
			}
		})
	}
}

func TestLoadFallsBackOnServerError(t *testing.T) {
	srv := remotetest.New(t)
	b, lists := srv.SeedBoard("Remote", "Todo")
	srv.SeedCard(lists[0].ID, "remote card", "low")
	srv.Fail(http.MethodGet, "/api/lists/", http.StatusInternalServerError)

	cache := testutil.NewTestStore(t)
	ctx := context.Background()
	if err := cache.SaveSnapshot(ctx, testutil.SampleHierarchy()); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	res, err := persist.New(cache, persist.WithRemote(newRemote(t, srv))).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Source != persist.SourceCache {
		t.Fatalf("expected cache source, got %s", res.Source)
	}
	if _, ok := res.Hierarchy.Board(remote.FormatID(b.ID)); ok {
		t.Fatal("partial remote data leaked into the result")
	}
}

func TestLoadFromRemoteWritesThrough(t *testing.T) {
	srv := remotetest.New(t)
	b1, _ := srv.SeedBoard("One", "Todo")
	b2, lists := srv.SeedBoard("Two", "Doing", "Done")
	srv.SeedCard(lists[1].ID, "shipped", "medium")

	cache := testutil.NewTestStore(t)
	ctx := context.Background()
	if err := cache.SavePreferences(ctx, model.Preferences{LastBoardID: remote.FormatID(b2.ID)}); err != nil {
		t.Fatalf("seed prefs: %v", err)
	}

	res, err := persist.New(cache, persist.WithRemote(newRemote(t, srv))).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Source != persist.SourceRemote || !res.RemoteReachable || len(res.Notices) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	h := res.Hierarchy
	if len(h.Boards) != 2 || h.Boards[0].ID != remote.FormatID(b1.ID) {
		t.Fatalf("unexpected boards: %+v", h.Boards)
	}
	if h.CurrentBoardID != remote.FormatID(b2.ID) {
		t.Fatalf("last viewed board not selected: %q", h.CurrentBoardID)
	}
	if got := h.Boards[1].Lists[1].Tasks; len(got) != 1 || got[0].Content != "shipped" {
		t.Fatalf("unexpected tasks: %+v", got)
	}

	cached, err := cache.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if !reflect.DeepEqual(cached, h) {
		t.Fatal("remote result not written to cache")
	}
}

func TestLoadLogsInWithStoredAccount(t *testing.T) {
	srv := remotetest.New(t)
	srv.RequireLogin(true)
	srv.AddUser("ada", "secret")
	srv.SeedBoard("Private", "Todo")

	creds := credential.New(keyring.NewArrayKeyring(nil))
	if err := creds.SaveAccount(srv.URL(), credential.Account{Username: "ada", Password: "secret"}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	res, err := persist.New(testutil.NewTestStore(t),
		persist.WithRemote(newRemote(t, srv)),
		persist.WithCredentials(creds),
	).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Source != persist.SourceRemote || len(res.Hierarchy.Boards) != 1 {
		t.Fatalf("expected remote boards after login, got %+v", res)
	}
}

func TestBootstrapSequenceFailureFallsBackToLocal(t *testing.T) {
	srv := remotetest.New(t)
	srv.Fail(http.MethodPost, "/api/boards/", http.StatusInternalServerError)
	ctx := context.Background()

	a := persist.New(testutil.NewTestStore(t),
		persist.WithRemote(newRemote(t, srv)),
		persist.WithIDFunc(seqIDs()),
		persist.WithClock(clock),
	)
	res, err := a.Bootstrap(ctx, true)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if res.Source != persist.SourceStarter || !res.NeedsSave {
		t.Fatalf("expected local starter board, got %+v", res)
	}
	if !hasNotice(res.Notices, model.LevelError, persist.MsgBootstrapFailed) {
		t.Fatalf("missing failure notice: %+v", res.Notices)
	}
	if len(srv.Projects()) != 1 || len(srv.Boards()) != 0 {
		t.Fatal("sequence did not stop at the failing step")
	}
	for _, r := range srv.Requests() {
		if r == "POST /api/lists/" || r == "POST /api/cards/" {
			t.Fatalf("step after failure was attempted: %s", r)
		}
	}

	h := res.Hierarchy
	if len(h.Boards) != 1 || h.Boards[0].Name != persist.StarterBoardName || len(h.Boards[0].Lists) != 3 {
		t.Fatalf("unexpected starter board: %+v", h)
	}
	if _, ok := remote.ParseID(h.Boards[0].ID); ok {
		t.Fatalf("starter board has a server-style id %q", h.Boards[0].ID)
	}
}

func TestBootstrapWithoutRemote(t *testing.T) {
	a := persist.New(testutil.NewTestStore(t), persist.WithIDFunc(seqIDs()), persist.WithClock(clock))
	ctx := context.Background()

	res, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Empty || res.RemoteReachable || len(res.Notices) != 0 {
		t.Fatalf("unexpected load result: %+v", res)
	}

	res, err = a.Bootstrap(ctx, false)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if res.Source != persist.SourceStarter || !res.NeedsSave || len(res.Notices) != 0 {
		t.Fatalf("unexpected bootstrap result: %+v", res)
	}
	if res.Hierarchy.CurrentBoardID != "local-1" {
		t.Fatalf("unexpected current board %q", res.Hierarchy.CurrentBoardID)
	}
}

func TestBootstrapIDFailure(t *testing.T) {
	a := persist.New(testutil.NewTestStore(t), persist.WithIDFunc(func() (string, error) {
		return "", errors.New("no entropy")
	}))

	if _, err := a.Bootstrap(context.Background(), false); err == nil {
		t.Fatal("expected error when ids cannot be generated")
	}
}

func TestLoadClearsCorruptSnapshot(t *testing.T) {
	cache := &stubCache{loadSnapshotFn: func(context.Context) (model.Hierarchy, error) {
		return model.Hierarchy{}, fmt.Errorf("%w: bad json", store.ErrCorruptSnapshot)
	}}

	res, err := persist.New(cache).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Empty || cache.cleared != 1 {
		t.Fatalf("expected cleared empty result, got %+v cleared=%d", res, cache.cleared)
	}
	if !hasNotice(res.Notices, model.LevelError, persist.MsgStartingFresh) {
		t.Fatalf("missing notice: %+v", res.Notices)
	}
}

func TestSaveRecordsLastBoard(t *testing.T) {
	cache := testutil.NewTestStore(t)
	ctx := context.Background()
	h := testutil.SampleHierarchy()
	h.CurrentBoardID = "home"

	err := persist.New(cache).Save(ctx, h, model.Preferences{Theme: model.ThemeDark})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	prefs, err := cache.LoadPreferences(ctx)
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if prefs.LastBoardID != "home" || prefs.Theme != model.ThemeDark {
		t.Fatalf("unexpected prefs: %+v", prefs)
	}
	got, err := cache.LoadSnapshot(ctx)
	if err != nil || !reflect.DeepEqual(got, h) {
		t.Fatalf("snapshot not saved: %+v, %v", got, err)
	}
}
