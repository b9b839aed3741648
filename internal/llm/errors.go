package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	// KindTransport covers provider, network and configuration failures
	KindTransport ErrorKind = "transport"
	// KindTimeout means the per-call deadline expired
	KindTimeout ErrorKind = "timeout"
	// KindSchema means the response did not conform to the declared schema
	KindSchema ErrorKind = "schema"
	// KindEmpty means the provider returned no usable text
	KindEmpty ErrorKind = "empty"
)

// GenerationError represents a failed generation call.
type GenerationError struct {
	Operation string
	Kind      ErrorKind
	Message   string
	Cause     error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("generation error [%s/%s]: %s", e.Operation, e.Kind, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a GenerationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == kind
}

// classifyCallError wraps a provider error, distinguishing deadline expiry.
func classifyCallError(ctx context.Context, operation string, err error) error {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &GenerationError{Operation: operation, Kind: KindTimeout, Message: "call deadline exceeded", Cause: err}
	}
	return &GenerationError{Operation: operation, Kind: KindTransport, Message: "provider call failed", Cause: err}
}
