package research

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/llm/llmtest"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results []Snippet
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]Snippet, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.results, f.err
}

// gatedSearcher holds every lookup until gate is closed and records the
// context state each lookup saw on release.
type gatedSearcher struct {
	started   chan struct{}
	gate      chan struct{}
	startOnce sync.Once

	mu      sync.Mutex
	ctxErrs []error
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{started: make(chan struct{}), gate: make(chan struct{})}
}

func (g *gatedSearcher) Search(ctx context.Context, _ string) ([]Snippet, error) {
	g.startOnce.Do(func() { close(g.started) })
	select {
	case <-g.gate:
	case <-ctx.Done():
	}
	err := ctx.Err()
	g.mu.Lock()
	g.ctxErrs = append(g.ctxErrs, err)
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return []Snippet{{Title: "T", Link: "https://t", Snippet: "s"}}, nil
}

func (g *gatedSearcher) seen() []error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]error(nil), g.ctxErrs...)
}

func echoClient() *llmtest.FakeClient {
	return llmtest.New(func(context.Context, llm.Request) (*llm.Response, error) {
		return llmtest.Text("ok"), nil
	})
}

func searchRequest(user string) llm.Request {
	return llm.Request{
		Operation: "decompose_tasks",
		Messages:  []llm.Message{llm.System("sys"), llm.User(user)},
		Tools:     llm.Tools{WebSearch: true},
	}
}

func TestQueryFor(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		expected string
	}{
		{"plain context", "Job profile:\nAge: 25\nJob Title: psychologist\nLocation: Kosice", "psychologist job tasks skills AI automation"},
		{"json encoded", `{"job_context":"Age: 25\nJob Title: nurse\nLocation: x"}`, "nurse job tasks skills AI automation"},
		{"last line", "Job Title:  data analyst ", "data analyst job tasks skills AI automation"},
		{"empty title", "Job Title: \nAge: 3", ""},
		{"no title", "Age: 25", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QueryFor(searchRequest(tt.user)))
		})
	}
}

func TestQueryFor_IgnoresSystemTurns(t *testing.T) {
	req := llm.Request{Messages: []llm.Message{llm.System("Job Title: ignored"), llm.User("nothing")}}
	assert.Empty(t, QueryFor(req))
}

func TestWithGrounding_NilSearcherReturnsClient(t *testing.T) {
	client := echoClient()
	assert.Same(t, client, WithGrounding(client, nil, nil))
}

func TestWithGrounding_AddsResults(t *testing.T) {
	client := echoClient()
	searcher := &fakeSearcher{results: []Snippet{{Title: "T", Link: "https://t", Snippet: "s"}}}
	grounded := WithGrounding(client, searcher, zaptest.NewLogger(t))

	req := searchRequest("Job Title: psychologist")
	resp, err := grounded.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)

	calls := client.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 3)
	assert.Equal(t, llm.RoleSystem, calls[0].Messages[2].Role)
	assert.Contains(t, calls[0].Messages[2].Text, "- T: s (https://t)")
	assert.Len(t, req.Messages, 2, "caller's request must not be modified")
	assert.Equal(t, []string{"psychologist job tasks skills AI automation"}, searcher.queries)
}

func TestWithGrounding_PassThrough(t *testing.T) {
	tests := []struct {
		name     string
		req      llm.Request
		searcher *fakeSearcher
		searched bool
	}{
		{
			name:     "search not requested",
			req:      llm.Request{Messages: []llm.Message{llm.User("Job Title: nurse")}},
			searcher: &fakeSearcher{results: []Snippet{{Title: "x"}}},
		},
		{
			name:     "no job title",
			req:      searchRequest("Age: 25"),
			searcher: &fakeSearcher{results: []Snippet{{Title: "x"}}},
		},
		{
			name:     "search fails",
			req:      searchRequest("Job Title: nurse"),
			searcher: &fakeSearcher{err: errors.New("quota exceeded")},
			searched: true,
		},
		{
			name:     "no results",
			req:      searchRequest("Job Title: nurse"),
			searcher: &fakeSearcher{},
			searched: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := echoClient()
			grounded := WithGrounding(client, tt.searcher, zaptest.NewLogger(t))

			_, err := grounded.Generate(context.Background(), tt.req)
			require.NoError(t, err)

			calls := client.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.req.Messages, calls[0].Messages)
			assert.Equal(t, tt.searched, len(tt.searcher.queries) > 0)
		})
	}
}

func TestWithGrounding_CanceledSearch(t *testing.T) {
	client := echoClient()
	searcher := &fakeSearcher{err: context.Canceled}
	grounded := WithGrounding(client, searcher, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := grounded.Generate(ctx, searchRequest("Job Title: nurse"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.Calls())
}

func TestWithGrounding_SharedSearchOutlivesCanceledCaller(t *testing.T) {
	client := echoClient()
	searcher := newGatedSearcher()
	grounded := WithGrounding(client, searcher, zaptest.NewLogger(t))
	req := searchRequest("Job Title: nurse")

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := grounded.Generate(ctxA, req)
		errA <- err
	}()
	<-searcher.started

	errB := make(chan error, 1)
	go func() {
		_, err := grounded.Generate(context.Background(), req)
		errB <- err
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(searcher.gate)
	require.NoError(t, <-errB)

	calls := client.Calls()
	require.Len(t, calls, 1, "only the live caller reaches the model")
	require.Len(t, calls[0].Messages, 3)
	assert.Contains(t, calls[0].Messages[2].Text, "- T: s (https://t)")
	for _, err := range searcher.seen() {
		assert.NoError(t, err, "lookup must not inherit the canceled caller's context")
	}
}

func TestWithGrounding_Close(t *testing.T) {
	client := echoClient()
	grounded := WithGrounding(client, &fakeSearcher{}, nil)
	require.NoError(t, grounded.Close())
	assert.True(t, client.Closed())
}
