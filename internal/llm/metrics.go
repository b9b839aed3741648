package llm

import (
	"context"
	"errors"
	"time"
)

// Observer receives generation call lifecycle events.
type Observer interface {
	GenerationStarted(operation string)
	GenerationFinished(operation, outcome string, elapsed time.Duration)
}

// Outcome labels reported to an Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

type observedClient struct {
	next     Client
	observer Observer
}

// WithMetrics reports every Generate call to o.
func WithMetrics(c Client, o Observer) Client {
	if o == nil {
		return c
	}
	return &observedClient{next: c, observer: o}
}

func (m *observedClient) Generate(ctx context.Context, req Request) (*Response, error) {
	m.observer.GenerationStarted(req.Operation)
	start := time.Now()

	resp, err := m.next.Generate(ctx, req)

	m.observer.GenerationFinished(req.Operation, outcomeOf(err), time.Since(start))
	return resp, err
}

func (m *observedClient) Close() error {
	return m.next.Close()
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.Canceled) {
		return OutcomeCanceled
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return string(genErr.Kind)
	}
	return OutcomeError
}
