package testutil

import (
	"testing"

	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SampleHierarchy returns two boards: "Work" with lists Todo (two tasks)
// and Done (one task), and an empty "Home" board. Work is current.
func SampleHierarchy() model.Hierarchy {
	due, _ := model.ParseDate("2026-02-01")
	return model.Hierarchy{
		CurrentBoardID: "work",
		Boards: []model.Board{
			{ID: "work", Name: "Work", Lists: []model.List{
				{ID: "todo", Title: "Todo", BoardID: "work", Tasks: []model.Task{
					{ID: "t1", Content: "Write report", ListID: "todo", Description: "Q1 numbers", DueDate: due, Priority: model.PriorityHigh},
					{ID: "t2", Content: "Review PR", ListID: "todo", Priority: model.PriorityLow},
				}},
				{ID: "done", Title: "Done", BoardID: "work", Tasks: []model.Task{
					{ID: "t3", Content: "Plan sprint", ListID: "done", Priority: model.PriorityMedium},
				}},
			}},
			{ID: "home", Name: "Home", Lists: []model.List{}},
		},
	}
}
