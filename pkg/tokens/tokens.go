// Package tokens counts model tokens for context budgeting.
package tokens

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used by current OpenAI chat models.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens with a tiktoken encoding. The encoding is loaded on
// first use; if it cannot be loaded (unknown name, no network for the BPE
// file) the counter falls back to Estimate.
type Counter struct {
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewCounter creates a Counter for the named encoding. An empty name means
// DefaultEncoding.
func NewCounter(encoding string) *Counter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &Counter{encoding: encoding}
}

// NewEstimator returns a Counter that never loads an encoding.
func NewEstimator() *Counter {
	c := &Counter{}
	c.once.Do(func() {})
	return c
}

func (c *Counter) load() {
	enc, err := tiktoken.GetEncoding(c.encoding)
	if err != nil {
		slog.Debug("tokens: falling back to estimate", "encoding", c.encoding, "error", err)
		return
	}
	c.enc = enc
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(c.load)
	if c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Exact reports whether counts come from a real encoding.
func (c *Counter) Exact() bool {
	c.once.Do(c.load)
	return c.enc != nil
}

// Estimate approximates a token count at four characters per token.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
