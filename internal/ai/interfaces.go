package ai

import (
	"context"
	"time"
)

// Role of a chat message author
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to the model
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System, User and Assistant build messages of the matching role
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Request is the provider-neutral generation request
type Request struct {
	Messages    []Message
	Temperature float32
	Seed        *int32
}

// Response is the provider-neutral generation result
type Response struct {
	Text  string
	Usage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Provider  string `json:"provider"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Provider is a single chat-completion backend. Implementations perform one
// attempt per call; retries and timeouts belong to Client.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Name() string
	Model() string
	Close() error
}

// Completer is the LLM port consumed by the rest of the application
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error)
}

// Clock abstracts the back-off sleep so tests do not wait
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock sleeps on the wall clock and wakes early on cancellation
func RealClock() Clock { return realClock{} }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
