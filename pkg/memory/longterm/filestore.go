package longterm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every entry in one JSON document on disk.
//
// Writes replace the document atomically via a temporary file and rename.
// A document that cannot be parsed is replaced with an empty one.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens (creating if needed) the JSON document at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, &StorageError{Op: "open", Err: errors.New("empty path")}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("create directory: %w", err)}
	}

	s := &FileStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write(nil); err != nil {
			return nil, &StorageError{Op: "open", Err: err}
		}
	}
	return s, nil
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads every entry. A document that parses badly is reset to empty; a
// file that cannot be read at all is reported and left untouched.
func (s *FileStore) Load(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append adds e to the end of the document.
func (s *FileStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	return s.write(append(entries, e))
}

// Reset replaces the document with an empty one.
func (s *FileStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(nil)
}

// Close is a no-op; FileStore holds no open handles.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() ([]Entry, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("longterm: read %s: %w", s.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		slog.Warn("longterm: resetting unparsable memory document", "path", s.path, "err", err)
		if werr := s.write(nil); werr != nil {
			return nil, werr
		}
		return nil, nil
	}
	return entries, nil
}

func (s *FileStore) write(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("longterm: marshal entries: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("longterm: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("longterm: atomic rename %s: %w", s.path, err)
	}
	return nil
}
