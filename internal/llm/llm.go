// Package llm defines the contract shared by the chat model backends.
package llm

import (
	"context"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat round trip.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int // 0 leaves the backend default
}

// Backend is a chat model endpoint.
type Backend interface {
	// Name identifies the backend in logs and notices.
	Name() string

	// Complete performs one non-streaming round trip and returns the reply.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream performs one streaming round trip, calling onDelta for each
	// content chunk in order, and returns the full reply.
	Stream(ctx context.Context, req Request, onDelta func(delta string)) (string, error)

	// ListModels returns the model identifiers the endpoint serves.
	ListModels(ctx context.Context) ([]string, error)
}

// Message constructors.
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }
