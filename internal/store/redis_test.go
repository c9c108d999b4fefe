package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nhle/kanban-sync/internal/model"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, "test")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func sampleHierarchy() model.Hierarchy {
	due, _ := model.ParseDate("2026-04-30")
	return model.Hierarchy{
		CurrentBoardID: "b2",
		Boards: []model.Board{
			{ID: "b1", Name: "One", Lists: []model.List{
				{ID: "l1", Title: "Todo", BoardID: "b1", Tasks: []model.Task{
					{ID: "t1", Content: "a", ListID: "l1", DueDate: due, Priority: model.PriorityHigh},
					{ID: "t2", Content: "b", ListID: "l1", Description: "desc", Priority: model.PriorityLow},
				}},
			}},
			{ID: "b2", Name: "Two", Lists: []model.List{}},
		},
	}
}

func TestRedisSnapshotRoundTrip(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	want := sampleHierarchy()

	if err := s.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("test:kanbanApp") {
		t.Fatal("snapshot key not written")
	}
	if ttl := mr.TTL("test:kanbanApp"); ttl != 0 {
		t.Fatalf("snapshot should not expire, ttl=%v", ttl)
	}

	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestRedisLoadSnapshotMissing(t *testing.T) {
	s, _ := newRedisStore(t)

	h, err := s.LoadSnapshot(context.Background())
	if err != nil || !h.Empty() {
		t.Fatalf("expected empty hierarchy, got %+v, %v", h, err)
	}
}

func TestRedisCorruptSnapshot(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{boards"},
		{"bad priority", `{"boards":[{"id":"b","name":"B","lists":[{"id":"l","title":"L","boardId":"b","tasks":[{"id":"t","content":"x","listId":"l","priority":"urgent"}]}]}]}`},
		{"orphan list", `{"boards":[{"id":"b","name":"B","lists":[{"id":"l","title":"L","boardId":"other","tasks":[]}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mr := newRedisStore(t)
			if err := mr.Set("test:kanbanApp", tt.data); err != nil {
				t.Fatalf("seed: %v", err)
			}
			if _, err := s.LoadSnapshot(context.Background()); !errors.Is(err, ErrCorruptSnapshot) {
				t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
			}
		})
	}
}

func TestRedisClearSnapshotKeepsPreferences(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	prefs := model.Preferences{LastBoardID: "b1", Theme: model.ThemeLight}

	if err := s.SaveSnapshot(ctx, sampleHierarchy()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SavePreferences(ctx, prefs); err != nil {
		t.Fatalf("save prefs: %v", err)
	}
	if err := s.ClearSnapshot(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if mr.Exists("test:kanbanApp") {
		t.Fatal("snapshot key survived clear")
	}
	got, err := s.LoadPreferences(ctx)
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if got != prefs {
		t.Fatalf("preferences lost: %+v", got)
	}
}

func TestRedisLoadSnapshotServerDown(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.SetError("LOADING server is starting")

	_, err := s.LoadSnapshot(context.Background())
	if err == nil || errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected a connection error, got %v", err)
	}
}
