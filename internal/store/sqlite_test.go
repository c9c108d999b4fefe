package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/store"
	"github.com/nhle/kanban-sync/tests/testutil"
)

func TestSQLiteLoadSnapshotEmpty(t *testing.T) {
	s := testutil.NewTestStore(t)

	h, err := s.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !h.Empty() {
		t.Fatalf("expected empty hierarchy, got %+v", h)
	}
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	want := testutil.SampleHierarchy()

	if err := s.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestSQLiteSaveSnapshotReplacesPrevious(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, testutil.SampleHierarchy()); err != nil {
		t.Fatalf("first save: %v", err)
	}

	next := testutil.SampleHierarchy()
	todo := &next.Boards[0].Lists[0]
	todo.Tasks[0], todo.Tasks[1] = todo.Tasks[1], todo.Tasks[0]
	next.Boards = next.Boards[:1]
	if err := s.SaveSnapshot(ctx, next); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Boards) != 1 {
		t.Fatalf("expected 1 board, got %d", len(got.Boards))
	}
	if ids := got.Boards[0].Lists[0].TaskIDs(); !reflect.DeepEqual(ids, []string{"t2", "t1"}) {
		t.Fatalf("task order not persisted: %v", ids)
	}
}

func TestSQLiteClearSnapshotKeepsPreferences(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	prefs := model.Preferences{LastBoardID: "home", Theme: model.ThemeDark}

	if err := s.SaveSnapshot(ctx, testutil.SampleHierarchy()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SavePreferences(ctx, prefs); err != nil {
		t.Fatalf("save prefs: %v", err)
	}
	if err := s.ClearSnapshot(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	h, err := s.LoadSnapshot(ctx)
	if err != nil || !h.Empty() {
		t.Fatalf("expected empty snapshot after clear, got %+v, %v", h, err)
	}
	got, err := s.LoadPreferences(ctx)
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if got != prefs {
		t.Fatalf("preferences lost: %+v", got)
	}
}

func TestSQLiteCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanban.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.SaveSnapshot(ctx, testutil.SampleHierarchy()); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if _, err := raw.Exec("UPDATE tasks SET priority = 'someday' WHERE id = 't2'"); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	_ = raw.Close()

	if _, err := s.LoadSnapshot(ctx); !errors.Is(err, store.ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestSQLiteReopenRunsNoMigrationsTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanban.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SaveSnapshot(ctx, testutil.SampleHierarchy()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	h, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(h.Boards) != 2 || h.CurrentBoardID != "work" {
		t.Fatalf("unexpected snapshot after reopen: %+v", h)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := store.Open(context.Background(), model.CacheConfig{Driver: "etcd"}); err == nil {
		t.Fatal("expected error")
	}
}
