// Package llm defines the model backend interface and the chat message types
// used by the Neon session loop.
//
// A session sends one Request per user turn: the system instruction, the
// recent history window and the new user message. Backends return the
// assistant reply as plain text.
package llm

import (
	"context"
	"time"
)

// Role is the role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System, User and Assistant build messages of the matching role.
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Request is the input to a single chat call.
type Request struct {
	Model    string
	Messages []Message
	// Options are backend sampling options (Ollama "options" object). Backends
	// ignore keys they do not understand.
	Options map[string]any
}

// Response is the output of a chat call.
type Response struct {
	// Content is the assistant reply with surrounding whitespace trimmed. It
	// may be empty when the backend produced nothing.
	Content string
	// Model is the model that answered, when the backend reports it.
	Model string
	// Attempts is the number of HTTP attempts the call took.
	Attempts int
	// Latency is the wall time of the whole call including retries.
	Latency time.Duration
}

// Provider is the interface that all model backends implement.
type Provider interface {
	// Chat sends the conversation and returns the next assistant message.
	Chat(ctx context.Context, req Request) (*Response, error)
}

// Pinger is implemented by backends that support a cheap reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultOllamaOptions returns the sampling options Neon's persona model is
// tuned for.
func DefaultOllamaOptions() map[string]any {
	return map[string]any{
		"num_ctx":        2048,
		"mirostat":       2,
		"mirostat_tau":   5.0,
		"mirostat_eta":   0.1,
		"repeat_penalty": 1.15,
		"top_k":          40,
		"top_p":          0.9,
	}
}
