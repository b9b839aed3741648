package research

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/automation-exposure/internal/llm"
)

const (
	jobTitlePrefix = "Job Title: "

	// searchTimeout bounds a shared lookup, which no longer follows any one
	// caller's context.
	searchTimeout = 10 * time.Second
)

type groundedClient struct {
	next     llm.Client
	searcher Searcher
	logger   *zap.Logger
	group    singleflight.Group
}

// WithGrounding serves the web search capability for providers that lack it.
// Requests that ask for web search get the results for their job title added
// as a system turn. A failed search is logged and the request goes out unchanged.
func WithGrounding(c llm.Client, s Searcher, logger *zap.Logger) llm.Client {
	if s == nil {
		return c
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &groundedClient{next: c, searcher: s, logger: logger.Named("research")}
}

func (g *groundedClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if !req.Tools.WebSearch {
		return g.next.Generate(ctx, req)
	}
	query := QueryFor(req)
	if query == "" {
		return g.next.Generate(ctx, req)
	}

	// Concurrent stages of one analysis share a single lookup. The lookup runs
	// detached so that one caller giving up does not fail the others.
	ch := g.group.DoChan(query, func() (any, error) {
		searchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), searchTimeout)
		defer cancel()
		return g.searcher.Search(searchCtx, query)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("web search failed, continuing without results",
			zap.String("operation", req.Operation),
			zap.Error(res.Err))
		return g.next.Generate(ctx, req)
	}

	snippets := res.Val.([]Snippet)
	g.logger.Debug("grounded request",
		zap.String("operation", req.Operation),
		zap.Int("results", len(snippets)),
		zap.Bool("shared", res.Shared))
	if len(snippets) == 0 {
		return g.next.Generate(ctx, req)
	}

	grounded := req
	grounded.Messages = make([]llm.Message, 0, len(req.Messages)+1)
	grounded.Messages = append(grounded.Messages, req.Messages...)
	grounded.Messages = append(grounded.Messages, llm.System(FormatSnippets(snippets)))
	return g.next.Generate(ctx, grounded)
}

func (g *groundedClient) Close() error {
	return g.next.Close()
}

// QueryFor builds the search query from the job title in the request's user
// turns. The title may sit inside a JSON-encoded summary, so both raw and
// escaped line breaks end it. It returns "" when no job title is present.
func QueryFor(req llm.Request) string {
	for _, m := range req.Messages {
		if m.Role != llm.RoleUser {
			continue
		}
		_, rest, ok := strings.Cut(m.Text, jobTitlePrefix)
		if !ok {
			continue
		}
		if i := strings.IndexAny(rest, "\n\"\\"); i >= 0 {
			rest = rest[:i]
		}
		if title := strings.TrimSpace(rest); title != "" {
			return title + " job tasks skills AI automation"
		}
	}
	return ""
}
