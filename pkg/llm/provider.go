// Package llm provides the reasoning-service abstraction every pipeline
// stage calls.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/entrhq/synapse/pkg/llm/openai"
//	)
//
//	func main() {
//	    provider, err := openai.NewProvider(
//	        os.Getenv("OPENAI_API_KEY"),
//	        openai.WithModel("gpt-4o"),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    reply, err := provider.Invoke(context.Background(), "Answer in one word.", "Hello!")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(reply)
//	}
package llm

import (
	"context"

	"github.com/entrhq/synapse/pkg/types"
)

// Provider is a stateless text-in/text-out reasoning service.
//
// Implementations never retry. Failures are reported with one of the
// sentinel errors in this package (ErrRateLimited, ErrAuth, ErrTimeout,
// ErrProviderUnavailable) somewhere in the error chain so callers can use
// errors.Is without knowing which backend produced them.
type Provider interface {
	// Invoke sends system instructions and user text and returns the
	// model's full response text.
	Invoke(ctx context.Context, system, user string) (string, error)

	// Model returns the model name being used.
	Model() string
}

// Completer is implemented by providers that accept a full message list.
type Completer interface {
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)
}

// Streamer is implemented by providers that can stream response chunks.
//
// The returned channel emits StreamChunk instances and is closed when
// streaming completes or fails. Stream-time errors arrive as chunks with
// Error set.
type Streamer interface {
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)
}

// StreamChunk is one piece of a streamed response.
type StreamChunk struct {
	Error    error
	Role     string
	Content  string
	Finished bool
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, system, user string) (string, error)

// Invoke calls f.
func (f ProviderFunc) Invoke(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// Model returns "func".
func (f ProviderFunc) Model() string {
	return "func"
}
