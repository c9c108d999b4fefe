package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/nhle/kanban-sync/internal/board"
	"github.com/nhle/kanban-sync/internal/model"
)

// RedisStore implements Cache on Redis. The snapshot is a single JSON
// value and preferences live in a hash, both under a namespace prefix.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

var _ Cache = (*RedisStore)(nil)

// NewRedisStore connects to the Redis server at url (redis://...) and
// checks that it answers.
func NewRedisStore(ctx context.Context, url, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisStoreFromClient(client, namespace), nil
}

// NewRedisStoreFromClient wraps an existing client. The store takes
// ownership and closes it on Close.
func NewRedisStoreFromClient(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "kanban"
	}
	return &RedisStore{client: client, namespace: namespace}
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// LoadSnapshot reads and validates the stored hierarchy.
func (s *RedisStore) LoadSnapshot(ctx context.Context) (model.Hierarchy, error) {
	data, err := s.client.Get(ctx, s.snapshotKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Hierarchy{}, nil
	}
	if err != nil {
		return model.Hierarchy{}, fmt.Errorf("reading snapshot: %w", err)
	}

	var h model.Hierarchy
	if err := sonic.Unmarshal(data, &h); err != nil {
		return model.Hierarchy{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if !h.Empty() {
		if err := board.Validate(h); err != nil {
			return model.Hierarchy{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
	}
	return h, nil
}

// SaveSnapshot overwrites the stored hierarchy. The key has no expiry.
func (s *RedisStore) SaveSnapshot(ctx context.Context, h model.Hierarchy) error {
	data, err := sonic.Marshal(h)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.snapshotKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ClearSnapshot deletes the stored hierarchy. Preferences are kept.
func (s *RedisStore) ClearSnapshot(ctx context.Context) error {
	if err := s.client.Del(ctx, s.snapshotKey()).Err(); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}

// LoadPreferences reads the preferences hash.
func (s *RedisStore) LoadPreferences(ctx context.Context) (model.Preferences, error) {
	fields, err := s.client.HGetAll(ctx, s.prefsKey()).Result()
	if err != nil {
		return model.Preferences{}, fmt.Errorf("reading preferences: %w", err)
	}
	return model.Preferences{
		LastBoardID: fields[prefLastBoardID],
		Theme:       fields[prefTheme],
	}, nil
}

// SavePreferences writes every preference field.
func (s *RedisStore) SavePreferences(ctx context.Context, p model.Preferences) error {
	err := s.client.HSet(ctx, s.prefsKey(),
		prefLastBoardID, p.LastBoardID,
		prefTheme, p.Theme,
	).Err()
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

func (s *RedisStore) snapshotKey() string {
	return s.namespace + ":" + SnapshotKey
}

func (s *RedisStore) prefsKey() string {
	return s.namespace + ":kanbanPrefs"
}
