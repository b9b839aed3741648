// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jonathan/automation-exposure/internal/llm"
)

// Handler produces the response for one request.
type Handler func(ctx context.Context, req llm.Request) (*llm.Response, error)

// FakeClient records every request and tracks how many calls overlap.
type FakeClient struct {
	handler Handler

	mu          sync.Mutex
	calls       []llm.Request
	inFlight    int
	maxInFlight int
	closed      bool
}

// New returns a FakeClient answering with h.
func New(h Handler) *FakeClient {
	return &FakeClient{handler: h}
}

func (f *FakeClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cloneRequest(req))
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.handler == nil {
		return nil, errors.New("llmtest: no handler")
	}
	return f.handler(ctx, req)
}

func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Calls returns a copy of every request received so far.
func (f *FakeClient) Calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the requests issued for one operation.
func (f *FakeClient) CallsFor(operation string) []llm.Request {
	var out []llm.Request
	for _, c := range f.Calls() {
		if c.Operation == operation {
			out = append(out, c)
		}
	}
	return out
}

// MaxInFlight reports the highest number of concurrent Generate calls observed.
func (f *FakeClient) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// InFlight reports the number of Generate calls currently running.
func (f *FakeClient) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Closed reports whether Close was called.
func (f *FakeClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Text wraps a freeform reply.
func Text(s string) *llm.Response {
	return &llm.Response{Text: s}
}

// JSON marshals v into a reply. It panics on values that cannot be marshalled.
func JSON(v any) *llm.Response {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &llm.Response{Text: string(data)}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastUserText returns the final user turn of a request.
func LastUserText(req llm.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Text
		}
	}
	return ""
}

func cloneRequest(req llm.Request) llm.Request {
	msgs := make([]llm.Message, len(req.Messages))
	copy(msgs, req.Messages)
	req.Messages = msgs
	return req
}
