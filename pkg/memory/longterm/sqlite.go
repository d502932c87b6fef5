package longterm

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memory_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	content TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]'
);`

// SQLiteStore keeps entries in a SQLite table, one row per entry.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates the database at path. Use ":memory:" for
// a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, &StorageError{Op: "open", Err: fmt.Errorf("create directory: %w", err)}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "init schema", Err: err}
	}
	return s, nil
}

// Load returns every row ordered by insertion. A table that cannot be read
// is recreated empty.
func (s *SQLiteStore) Load(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, content, tags FROM memory_entries ORDER BY id`)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("longterm: resetting unreadable sqlite store", "path", s.path, "err", err)
		if rerr := s.Reset(ctx); rerr != nil {
			return nil, fmt.Errorf("longterm: query entries: %w", err)
		}
		return nil, nil
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var tags string
		if err := rows.Scan(&e.Timestamp, &e.Content, &tags); err != nil {
			return nil, fmt.Errorf("longterm: scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			slog.Debug("longterm: ignoring corrupt tags", "path", s.path, "err", err)
			e.Tags = nil
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("longterm: iterate entries: %w", err)
	}
	return entries, nil
}

// Append inserts e as a new row.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	tags, err := json.Marshal(nonNilTags(e.Tags))
	if err != nil {
		return fmt.Errorf("longterm: marshal tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_entries (timestamp, content, tags) VALUES (?, ?, ?)`,
		e.Timestamp, e.Content, string(tags))
	if err != nil {
		return fmt.Errorf("longterm: insert entry: %w", err)
	}
	return nil
}

// Reset drops and recreates the table.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS memory_entries`); err != nil {
		return fmt.Errorf("longterm: drop table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("longterm: create table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
