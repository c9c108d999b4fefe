package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nhle/kanban-sync/internal/model"
)

// SnapshotKey names the board snapshot in every cache backend.
const SnapshotKey = "kanbanApp"

// ErrCorruptSnapshot is returned when a stored snapshot cannot be decoded
// or breaks the hierarchy invariants. Callers are expected to clear it.
var ErrCorruptSnapshot = errors.New("corrupt board snapshot")

// Cache is the local durable copy of the board hierarchy and the user's
// display preferences. Preferences are stored apart from the snapshot and
// survive ClearSnapshot.
type Cache interface {
	// LoadSnapshot returns the saved hierarchy, or an empty one when
	// nothing has been saved yet.
	LoadSnapshot(ctx context.Context) (model.Hierarchy, error)
	SaveSnapshot(ctx context.Context, h model.Hierarchy) error
	ClearSnapshot(ctx context.Context) error

	LoadPreferences(ctx context.Context) (model.Preferences, error)
	SavePreferences(ctx context.Context, p model.Preferences) error

	Close() error
}

// Open creates the cache selected by cfg.Driver.
func Open(ctx context.Context, cfg model.CacheConfig) (Cache, error) {
	switch cfg.Driver {
	case model.CacheDriverSQLite, "":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
			}
		}
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case model.CacheDriverRedis:
		s, err := NewRedisStore(ctx, cfg.RedisURL, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
