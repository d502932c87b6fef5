// Package types holds the message types shared by reasoning providers.
package types

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem carries instructions for the model.
	RoleUser      MessageRole = "user"      // RoleUser carries the text the model should respond to.
	RoleAssistant MessageRole = "assistant" // RoleAssistant carries a model response.
)

// Message is a single role-tagged chat message.
type Message struct {
	// Metadata holds optional provider-specific information.
	Metadata map[string]interface{}

	Role    MessageRole
	Content string
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// Prompt builds the two-message conversation every stage sends: optional
// system instructions followed by the user text.
func Prompt(system, user string) []*Message {
	msgs := make([]*Message, 0, 2)
	if system != "" {
		msgs = append(msgs, NewSystemMessage(system))
	}
	return append(msgs, NewUserMessage(user))
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Metadata map[string]interface{}

	Provider  string
	Name      string
	MaxTokens int

	SupportsStreaming bool
}
