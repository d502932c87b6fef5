package longterm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	backend "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list key used when none is configured.
const DefaultRedisKey = "synapse:memories"

// RedisStore keeps entries as JSON elements of one Redis list.
type RedisStore struct {
	client *backend.Client
	key    string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKey sets the list key.
func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// NewRedisStore connects to the Redis server at addr.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: DefaultRedisKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the list key.
func (s *RedisStore) Key() string {
	return s.key
}

// Load reads the whole list. A key holding a non-list value is deleted;
// elements that are not valid entries are skipped.
func (s *RedisStore) Load(ctx context.Context) ([]Entry, error) {
	vals, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		if strings.HasPrefix(err.Error(), "WRONGTYPE") {
			slog.Warn("longterm: resetting redis key with wrong type", "key", s.key)
			if rerr := s.Reset(ctx); rerr != nil {
				return nil, rerr
			}
			return nil, nil
		}
		return nil, fmt.Errorf("longterm: redis lrange: %w", err)
	}

	entries := make([]Entry, 0, len(vals))
	for _, v := range vals {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			slog.Debug("longterm: skipping corrupt redis entry", "key", s.key, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Append pushes e onto the tail of the list.
func (s *RedisStore) Append(ctx context.Context, e Entry) error {
	e.Tags = nonNilTags(e.Tags)
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("longterm: marshal entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("longterm: redis rpush: %w", err)
	}
	return nil
}

// Reset deletes the list.
func (s *RedisStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("longterm: redis del: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
