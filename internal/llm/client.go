package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Message is one turn of a conversation.
type Message struct {
	Role Role
	Text string
}

// System builds a system instruction turn.
func System(text string) Message { return Message{Role: RoleSystem, Text: text} }

// User builds a user turn.
func User(text string) Message { return Message{Role: RoleUser, Text: text} }

// Model builds a model turn, used to replay earlier responses.
func Model(text string) Message { return Message{Role: RoleModel, Text: text} }

// Tools is the optional capability set offered to the provider.
type Tools struct {
	WebSearch bool
}

// Schema declares a structured output contract as a JSON Schema document.
type Schema struct {
	Name     string
	Document string
}

// Request is a single generation call.
type Request struct {
	// Operation labels the call in logs, metrics and errors
	Operation string
	Tier      ModelTier
	Messages  []Message
	// Schema is nil for freeform text requests
	Schema *Schema
	Tools  Tools
}

// Response carries the model output. GenerateStructured decodes structured
// output straight into the caller's value.
type Response struct {
	Text string
}

// Client is an abstraction over LLM providers.
// Implementations must be safe for concurrent use.
type Client interface {
	// Generate sends the conversation and returns the model output
	Generate(ctx context.Context, req Request) (*Response, error)
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string, logger *zap.Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, config, apiKey, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}
