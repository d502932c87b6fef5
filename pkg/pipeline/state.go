package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// InputWriter is the writer name recorded for fields loaded from the run input.
const InputWriter = "<input>"

// Outputs is the set of field values a stage produces.
type Outputs map[string]any

// State accumulates the fields written during one run. Every field is
// written at most once; reading a field that was never written yields the
// zero value rather than an error.
//
// State is safe for concurrent use. Fan-out stages write disjoint fields, so
// the lock only protects the map itself.
type State struct {
	mu      sync.RWMutex
	fields  map[string]any
	writers map[string]string
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		fields:  make(map[string]any),
		writers: make(map[string]string),
	}
}

// Set writes field on behalf of writer. It returns a *SingleWriterError if
// the field already holds a value; the existing value is left untouched.
func (s *State) Set(writer, field string, value any) error {
	if field == "" {
		return fmt.Errorf("pipeline: empty field name written by %q", writer)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if first, exists := s.writers[field]; exists {
		return &SingleWriterError{Field: field, Writer: first, Attempt: writer}
	}
	s.fields[field] = value
	s.writers[field] = writer
	return nil
}

// Get returns the value of field, or nil if it was never written.
func (s *State) Get(field string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fields[field]
}

// String returns field as a string, or "" if it is unset or not a string.
func (s *State) String(field string) string {
	v, _ := s.Get(field).(string)
	return v
}

// Has reports whether field has been written.
func (s *State) Has(field string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.writers[field]
	return ok
}

// Writer returns the name of the stage that wrote field.
func (s *State) Writer(field string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.writers[field]
	return w, ok
}

// Fields returns the written field names in sorted order.
func (s *State) Fields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.fields)
}

// Snapshot returns a read-only copy of the fields written so far.
func (s *State) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields := make(map[string]any, len(s.fields))
	for k, v := range s.fields {
		fields[k] = v
	}
	return View{fields: fields}
}

// View is an immutable snapshot of a State handed to executing stages.
// The zero View is empty and ready to use.
type View struct {
	fields map[string]any
}

// NewView builds a View over a copy of fields. It is mostly useful for
// exercising a single stage outside a scheduler.
func NewView(fields Outputs) View {
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return View{fields: cp}
}

// Get returns the value of field, or nil if it is unset.
func (v View) Get(field string) any {
	return v.fields[field]
}

// String returns field as a string, or "" if it is unset or not a string.
func (v View) String(field string) string {
	s, _ := v.fields[field].(string)
	return s
}

// Has reports whether field is present in the snapshot.
func (v View) Has(field string) bool {
	_, ok := v.fields[field]
	return ok
}

// Fields returns the field names in sorted order.
func (v View) Fields() []string {
	return sortedKeys(v.fields)
}

// Map returns a copy of the snapshot's fields.
func (v View) Map() map[string]any {
	cp := make(map[string]any, len(v.fields))
	for k, val := range v.fields {
		cp[k] = val
	}
	return cp
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
