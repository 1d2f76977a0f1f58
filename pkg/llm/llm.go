// Package llm defines the chat-completion contract the engine depends on.
//
// The engine only ever sends a fixed system prompt plus one user message and
// expects a JSON object back, so the interface is deliberately small.
// Backends are variants satisfying [Chat]; the OpenAI-compatible client lives
// in the openai subpackage.
package llm

import "context"

// Usage holds the token counters reported by a provider for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add accumulates another usage into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Request is a two-message chat call: a fixed system prompt and one user
// message.
type Request struct {
	System string
	User   string

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// JSONResponse requests the provider's JSON-object response format.
	JSONResponse bool
}

// Reply is the provider's completion plus its usage counters.
type Reply struct {
	Content string
	Usage   Usage
}

// Chat is a chat-completion backend.
type Chat interface {
	// Complete performs one chat call.
	Complete(ctx context.Context, req Request) (*Reply, error)

	// Close releases resources held by the client.
	Close() error
}
