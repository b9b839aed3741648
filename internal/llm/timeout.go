package llm

import (
	"context"
	"errors"
	"time"
)

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout bounds every Generate call by d. Expiry surfaces as a
// GenerationError of kind timeout; cancellation of the caller's context is
// passed through unchanged. A non-positive d disables the bound.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return &timeoutClient{next: c, timeout: d}
}

func (t *timeoutClient) Generate(ctx context.Context, req Request) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.next.Generate(callCtx, req)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !IsKind(err, KindTimeout) {
		return nil, &GenerationError{
			Operation: req.Operation,
			Kind:      KindTimeout,
			Message:   "call exceeded " + t.timeout.String(),
			Cause:     err,
		}
	}
	return nil, err
}

func (t *timeoutClient) Close() error {
	return t.next.Close()
}
