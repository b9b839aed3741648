package llm

import (
	"context"
	"sync"
)

type stubClient struct {
	mu       sync.Mutex
	fn       func(ctx context.Context, req Request) (*Response, error)
	requests []Request
	closed   bool
}

func (s *stubClient) Generate(ctx context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.fn(ctx, req)
}

func (s *stubClient) Close() error {
	s.closed = true
	return nil
}

func replyWith(text string) *stubClient {
	return &stubClient{fn: func(context.Context, Request) (*Response, error) {
		return &Response{Text: text}, nil
	}}
}
