package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockingClient() *stubClient {
	return &stubClient{fn: func(ctx context.Context, _ Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
}

func TestWithTimeout_Expiry(t *testing.T) {
	client := WithTimeout(blockingClient(), 20*time.Millisecond)

	_, err := client.Generate(context.Background(), Request{Operation: "decompose_tasks"})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindTimeout, genErr.Kind)
	assert.Equal(t, "decompose_tasks", genErr.Operation)
}

func TestWithTimeout_ParentCancellationPassesThrough(t *testing.T) {
	client := WithTimeout(blockingClient(), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, Request{Operation: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsKind(err, KindTimeout))
}

func TestWithTimeout_Disabled(t *testing.T) {
	inner := replyWith("ok")
	assert.Same(t, Client(inner), WithTimeout(inner, 0))
}

func TestWithTimeout_CloseDelegates(t *testing.T) {
	inner := replyWith("ok")
	require.NoError(t, WithTimeout(inner, time.Second).Close())
	assert.True(t, inner.closed)
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	outcomes []string
}

func (r *recordingObserver) GenerationStarted(operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, operation)
}

func (r *recordingObserver) GenerationFinished(_ string, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func TestWithMetrics_Outcomes(t *testing.T) {
	obs := &recordingObserver{}

	ok := WithMetrics(replyWith("fine"), obs)
	_, err := ok.Generate(context.Background(), Request{Operation: "narrate"})
	require.NoError(t, err)

	failing := WithMetrics(&stubClient{fn: func(context.Context, Request) (*Response, error) {
		return nil, &GenerationError{Operation: "narrate", Kind: KindEmpty}
	}}, obs)
	_, err = failing.Generate(context.Background(), Request{Operation: "narrate"})
	require.Error(t, err)

	plain := WithMetrics(&stubClient{fn: func(context.Context, Request) (*Response, error) {
		return nil, errors.New("boom")
	}}, obs)
	_, _ = plain.Generate(context.Background(), Request{Operation: "narrate"})

	assert.Equal(t, []string{"narrate", "narrate", "narrate"}, obs.started)
	assert.Equal(t, []string{OutcomeSuccess, string(KindEmpty), OutcomeError}, obs.outcomes)
}

func TestWithMetrics_NilObserver(t *testing.T) {
	inner := replyWith("ok")
	assert.Same(t, Client(inner), WithMetrics(inner, nil))
}
