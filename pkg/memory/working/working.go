// Package working holds the short-term conversation buffer: a bounded FIFO
// of recent turns that lives only as long as the process.
package working

import (
	"strings"
	"sync"

	"github.com/entrhq/synapse/pkg/tokens"
)

const (
	// DefaultMaxTurns is the buffer capacity used when none is configured.
	DefaultMaxTurns = 15
	// DefaultContextTurns is how many turns Context callers usually ask for.
	DefaultContextTurns = 10

	userLabel     = "User"
	responseLabel = "Brain"
)

// Turn is one user message and the response it received.
type Turn struct {
	User     string
	Response string
}

// Memory is a bounded FIFO of turns. All operations are thread-safe.
type Memory struct {
	mu       sync.RWMutex
	turns    []Turn
	maxTurns int
}

// New creates a Memory holding at most maxTurns turns. maxTurns <= 0 means
// DefaultMaxTurns.
func New(maxTurns int) *Memory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Memory{
		turns:    make([]Turn, 0, maxTurns),
		maxTurns: maxTurns,
	}
}

// AddTurn appends a turn, evicting the oldest turns once the cap is exceeded.
func (m *Memory) AddTurn(user, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, Turn{User: user, Response: response})
	if over := len(m.turns) - m.maxTurns; over > 0 {
		kept := make([]Turn, m.maxTurns)
		copy(kept, m.turns[over:])
		m.turns = kept
	}
}

// Context returns the last n turns as alternating "User:" and "Brain:" lines,
// oldest first. It returns "" when there are no turns or n <= 0.
func (m *Memory) Context(n int) string {
	return format(m.last(n))
}

// ContextWithin is Context limited to budget tokens as measured by counter.
// Whole turns are dropped from the oldest end until the rest fits; a budget
// <= 0 disables the limit.
func (m *Memory) ContextWithin(n, budget int, counter *tokens.Counter) string {
	turns := m.last(n)
	if budget <= 0 || counter == nil {
		return format(turns)
	}

	for len(turns) > 0 {
		out := format(turns)
		if counter.Count(out) <= budget {
			return out
		}
		turns = turns[1:]
	}
	return ""
}

// Turns returns a copy of the stored turns, oldest first.
func (m *Memory) Turns() []Turn {
	return m.last(m.MaxTurns())
}

// Len returns the number of stored turns.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// MaxTurns returns the buffer capacity.
func (m *Memory) MaxTurns() int {
	return m.maxTurns
}

// Clear removes every turn.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = m.turns[:0]
}

func (m *Memory) last(n int) []Turn {
	if n <= 0 {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	start := len(m.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(m.turns)-start)
	copy(out, m.turns[start:])
	return out
}

func format(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(userLabel)
		b.WriteString(": ")
		b.WriteString(t.User)
		b.WriteByte('\n')
		b.WriteString(responseLabel)
		b.WriteString(": ")
		b.WriteString(t.Response)
	}
	return b.String()
}
