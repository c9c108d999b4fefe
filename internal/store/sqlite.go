package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/kanban-sync/internal/board"
	"github.com/nhle/kanban-sync/internal/model"
)

// Preference keys in the preferences table.
const (
	prefLastBoardID = "last_board_id"
	prefTheme       = "theme"
)

// SQLiteStore implements Cache on a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Cache = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection: pragmas are per connection and ":memory:" databases
	// are per connection too.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

type snapshotRow struct {
	Name           string    `db:"name"`
	CurrentBoardID string    `db:"current_board_id"`
	SavedAt        time.Time `db:"saved_at"`
}

type boardRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Position int    `db:"position"`
}

type listRow struct {
	ID       string `db:"id"`
	BoardID  string `db:"board_id"`
	Title    string `db:"title"`
	Position int    `db:"position"`
}

type taskRow struct {
	ID          string         `db:"id"`
	ListID      string         `db:"list_id"`
	Content     string         `db:"content"`
	Description string         `db:"description"`
	DueDate     sql.NullString `db:"due_date"`
	Priority    string         `db:"priority"`
	Position    int            `db:"position"`
}

// SaveSnapshot replaces the stored hierarchy with h in one transaction.
// Slice order is written to the position columns.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, h model.Hierarchy) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	var (
		boards []boardRow
		lists  []listRow
		tasks  []taskRow
	)
	for bi, b := range h.Boards {
		boards = append(boards, boardRow{ID: b.ID, Name: b.Name, Position: bi})
		for li, l := range b.Lists {
			lists = append(lists, listRow{ID: l.ID, BoardID: b.ID, Title: l.Title, Position: li})
			for ti, t := range l.Tasks {
				row := taskRow{
					ID:          t.ID,
					ListID:      l.ID,
					Content:     t.Content,
					Description: t.Description,
					Priority:    string(t.Priority),
					Position:    ti,
				}
				if t.DueDate != nil {
					row.DueDate = sql.NullString{String: model.FormatDate(t.DueDate), Valid: true}
				}
				tasks = append(tasks, row)
			}
		}
	}

	if err := insertRows(ctx, tx,
		`INSERT INTO boards (id, name, position) VALUES (:id, :name, :position)`, boards); err != nil {
		return err
	}
	if err := insertRows(ctx, tx,
		`INSERT INTO lists (id, board_id, title, position) VALUES (:id, :board_id, :title, :position)`, lists); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, `
		INSERT INTO tasks (id, list_id, content, description, due_date, priority, position)
		VALUES (:id, :list_id, :content, :description, :due_date, :priority, :position)`, tasks); err != nil {
		return err
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (name, current_board_id, saved_at)
		VALUES (:name, :current_board_id, :saved_at)`,
		snapshotRow{Name: SnapshotKey, CurrentBoardID: h.CurrentBoardID, SavedAt: time.Now().UTC()},
	)
	if err != nil {
		return fmt.Errorf("recording snapshot: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot reads the stored hierarchy back in position order.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (model.Hierarchy, error) {
	var snap snapshotRow
	err := s.db.GetContext(ctx, &snap,
		"SELECT name, current_board_id, saved_at FROM snapshots WHERE name = ?", SnapshotKey)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Hierarchy{}, nil
	}
	if err != nil {
		return model.Hierarchy{}, fmt.Errorf("reading snapshot: %w", err)
	}

	var boards []boardRow
	if err := s.db.SelectContext(ctx, &boards, "SELECT id, name, position FROM boards ORDER BY position"); err != nil {
		return model.Hierarchy{}, fmt.Errorf("reading boards: %w", err)
	}
	var lists []listRow
	if err := s.db.SelectContext(ctx, &lists, "SELECT id, board_id, title, position FROM lists ORDER BY board_id, position"); err != nil {
		return model.Hierarchy{}, fmt.Errorf("reading lists: %w", err)
	}
	var tasks []taskRow
	if err := s.db.SelectContext(ctx, &tasks, `
		SELECT id, list_id, content, description, due_date, priority, position
		FROM tasks ORDER BY list_id, position`); err != nil {
		return model.Hierarchy{}, fmt.Errorf("reading tasks: %w", err)
	}

	tasksByList := make(map[string][]model.Task)
	for _, r := range tasks {
		t, err := r.toModel()
		if err != nil {
			return model.Hierarchy{}, fmt.Errorf("%w: task %s: %v", ErrCorruptSnapshot, r.ID, err)
		}
		tasksByList[r.ListID] = append(tasksByList[r.ListID], t)
	}
	listsByBoard := make(map[string][]model.List)
	for _, r := range lists {
		ts := tasksByList[r.ID]
		if ts == nil {
			ts = []model.Task{}
		}
		listsByBoard[r.BoardID] = append(listsByBoard[r.BoardID], model.List{
			ID: r.ID, Title: r.Title, BoardID: r.BoardID, Tasks: ts,
		})
	}

	h := model.Hierarchy{CurrentBoardID: snap.CurrentBoardID}
	for _, r := range boards {
		ls := listsByBoard[r.ID]
		if ls == nil {
			ls = []model.List{}
		}
		h.Boards = append(h.Boards, model.Board{ID: r.ID, Name: r.Name, Lists: ls})
	}

	if !h.Empty() {
		if err := board.Validate(h); err != nil {
			return model.Hierarchy{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
	}
	return h, nil
}

// ClearSnapshot deletes the stored hierarchy. Preferences are kept.
func (s *SQLiteStore) ClearSnapshot(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE name = ?", SnapshotKey); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return tx.Commit()
}

// LoadPreferences returns the stored preferences; unset keys stay empty.
func (s *SQLiteStore) LoadPreferences(ctx context.Context) (model.Preferences, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT key, value FROM preferences"); err != nil {
		return model.Preferences{}, fmt.Errorf("reading preferences: %w", err)
	}

	var p model.Preferences
	for _, r := range rows {
		switch r.Key {
		case prefLastBoardID:
			p.LastBoardID = r.Value
		case prefTheme:
			p.Theme = r.Value
		}
	}
	return p, nil
}

// SavePreferences writes every preference field.
func (s *SQLiteStore) SavePreferences(ctx context.Context, p model.Preferences) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range map[string]string{
		prefLastBoardID: p.LastBoardID,
		prefTheme:       p.Theme,
	} {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO preferences (key, value) VALUES (?, ?)", key, value,
		); err != nil {
			return fmt.Errorf("saving preference %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// insertRows runs one prepared named insert per row.
func insertRows[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("writing snapshot row: %w", err)
		}
	}
	return nil
}

func clearTables(ctx context.Context, tx *sqlx.Tx) error {
	for _, table := range []string{"tasks", "lists", "boards"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func (r taskRow) toModel() (model.Task, error) {
	prio, err := model.ParsePriority(r.Priority)
	if err != nil {
		return model.Task{}, err
	}
	var due *time.Time
	if r.DueDate.Valid {
		if due, err = model.ParseDate(r.DueDate.String); err != nil {
			return model.Task{}, err
		}
	}
	return model.Task{
		ID:          r.ID,
		Content:     r.Content,
		ListID:      r.ListID,
		Description: r.Description,
		DueDate:     due,
		Priority:    prio,
	}, nil
}
