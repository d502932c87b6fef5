// Package longterm provides the durable, append-only memory log consulted by
// the memory stage.
//
// Entries are never edited or removed by the pipeline. Retrieval uses a
// naive keyword ranking shared by every backend (see Rank). Backends heal
// themselves when their durable storage is corrupt: the store is treated as
// empty and reinitialized rather than failing the caller.
package longterm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

// TimestampLayout is the ISO-8601 layout used for Entry.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Entry is one immutable memory record.
type Entry struct {
	Timestamp string   `json:"timestamp"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
}

// HasTag reports whether the entry carries tag exactly.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Backend is the durable storage behind a Store.
//
// Load returns every entry in insertion order. A backend that detects
// corrupt storage must reset it and return an empty slice rather than an
// error; errors are reserved for I/O failures.
type Backend interface {
	Load(ctx context.Context) ([]Entry, error)
	Append(ctx context.Context, e Entry) error
	Reset(ctx context.Context) error
	Close() error
}

// StorageError reports a durable store I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("longterm: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Store is the long-term memory log. It is safe for concurrent use, but
// concurrent processes sharing one backend are not coordinated.
type Store struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source used to stamp new entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps backend in a Store.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddEntry appends a new entry stamped with the current time.
// Write failures are returned as *StorageError.
func (s *Store) AddEntry(ctx context.Context, content string, tags []string) (Entry, error) {
	e := Entry{
		Timestamp: s.now().Format(TimestampLayout),
		Content:   content,
		Tags:      append([]string{}, tags...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Append(ctx, e); err != nil {
		return Entry{}, storageErr("append", err)
	}
	return e, nil
}

// Retrieve returns up to limit entries ranked against query with Rank.
//
// An unreadable backend degrades to an empty result; only context errors
// are returned.
func (s *Store) Retrieve(ctx context.Context, query string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := s.loadOrEmpty(ctx)
	return Rank(entries, query, limit), nil
}

// Entries returns every stored entry in insertion order.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.backend.Load(ctx)
	if err != nil {
		return nil, storageErr("load", err)
	}
	return entries, nil
}

// Filter returns the most recent limit entries carrying at least one tag
// matching the glob pattern, in insertion order. A limit <= 0 returns every
// match.
func (s *Store) Filter(ctx context.Context, tagPattern string, limit int) ([]Entry, error) {
	g, err := glob.Compile(tagPattern)
	if err != nil {
		return nil, fmt.Errorf("longterm: invalid tag pattern %q: %w", tagPattern, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []Entry
	for _, e := range s.loadOrEmpty(ctx) {
		for _, t := range e.Tags {
			if g.Match(t) {
				matched = append(matched, e)
				break
			}
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

// Clear deletes every entry. This is the only deletion path.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Reset(ctx); err != nil {
		return storageErr("reset", err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) loadOrEmpty(ctx context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.backend.Load(ctx)
	if err != nil {
		slog.Warn("longterm: load failed, continuing with empty store", "err", err)
		return nil
	}
	return entries
}

func storageErr(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
