package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/pipeline"
	"github.com/jonathan/automation-exposure/internal/server/middleware"
	"github.com/jonathan/automation-exposure/internal/server/ratelimit"
	"github.com/jonathan/automation-exposure/internal/types"
)

// fakeAnalyzer records the last call and answers with result or err.
type fakeAnalyzer struct {
	mu        sync.Mutex
	result    *types.AnalysisResult
	err       error
	profile   types.Profile
	requestID string
	calls     int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, profile types.Profile) (*types.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.profile = profile
	f.requestID = pipeline.RequestID(ctx)
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.RequestID = f.requestID
	return &res, nil
}

func sampleResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		Tasks:     []types.ScoredItem{types.NewScoredItem(types.Task{TaskName: "Client sessions", TimeShare: 1}, 0.62)},
		Skills:    []types.ScoredItem{types.NewScoredItem(types.Skill{SkillName: "Empathy", Importance: 1}, 0.34)},
		Aggregate: types.AggregateScore{TotalTaskAutomation: 0.62, TotalSkillAutomation: 0.34, WeightedFinalScore: 0.452},
		RiskLevel: types.LevelMedium,
	}
}

const profileJSON = `{
	"age": "25",
	"gender": "male",
	"job_title": "psychologist",
	"job_description": "Helps clients",
	"daily_routine": "Meets clients",
	"location": "Kosice",
	"education": "Psychology"
}`

func newTestServer(t *testing.T, analyzer Analyzer, rl *ratelimit.Config) *Server {
	t.Helper()
	s := New(Config{RateLimit: rl, Gatherer: prometheus.NewRegistry()}, analyzer, zaptest.NewLogger(t))
	t.Cleanup(s.Close)
	return s
}

func postAnalyze(s *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestAnalyzeEndpoint_Success(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	s := newTestServer(t, analyzer, nil)

	w := postAnalyze(s, profileJSON, map[string]string{middleware.RequestIDHeader: "abc-123"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "psychologist", analyzer.profile.JobTitle)
	assert.Equal(t, "abc-123", analyzer.requestID)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc-123", resp["request_id"])
	assert.Equal(t, "medium", resp["risk_level"])
	aggregate := resp["aggregate"].(map[string]any)
	assert.InDelta(t, 0.452, aggregate["weighted_final_score"], 1e-9)
	tasks := resp["task_automation_breakdown"].([]any)
	assert.Equal(t, "Client sessions", tasks[0].(map[string]any)["name"])
}

func TestAnalyzeEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantMsg    string
		wantCalls  int
	}{
		{
			name:       "malformed json",
			body:       `{"age":`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation error: body",
		},
		{
			name:       "unknown field",
			body:       `{"salary": "1"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation error: body",
		},
		{
			name:       "too large",
			body:       `{"age": "` + strings.Repeat("x", maxProfileBytes) + `"}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantMsg:    "too large",
		},
		{
			name:       "analyzer rejects profile",
			body:       profileJSON,
			err:        (&types.Profile{}).Validate(),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid profile",
			wantCalls:  1,
		},
		{
			name:       "generation failure",
			body:       profileJSON,
			err:        &llm.GenerationError{Operation: "score_task", Kind: llm.KindTransport, Message: "quota"},
			wantStatus: http.StatusBadGateway,
			wantMsg:    "generation service failed",
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{result: sampleResult(), err: tt.err}
			s := newTestServer(t, analyzer, nil)

			w := postAnalyze(s, tt.body, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp["error"], tt.wantMsg)
			assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), resp["request_id"])
			assert.Equal(t, tt.wantCalls, analyzer.calls)
		})
	}
}

func TestAnalyzeEndpoint_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRateLimit(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	s := newTestServer(t, analyzer, ratelimit.NewConfig(true, 20, 2))

	for i := 0; i < 2; i++ {
		w := postAnalyze(s, profileJSON, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "20", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, []string{"1", "0"}[i], w.Header().Get("X-RateLimit-Remaining"))
	}

	w := postAnalyze(s, profileJSON, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 2, analyzer.calls)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp["error"])

	// health checks are not limited
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	hw := httptest.NewRecorder()
	s.Handler().ServeHTTP(hw, req)
	assert.Equal(t, http.StatusOK, hw.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "exposure_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s := New(Config{Gatherer: reg}, &fakeAnalyzer{}, zaptest.NewLogger(t))
	defer s.Close()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "exposure_test_total 1")
}

func TestStart_GracefulShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := New(Config{Port: 0, RateLimit: ratelimit.NewConfig(true, 20, 3)}, &fakeAnalyzer{}, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAnalyzeEndpoint_BodyIsProfile(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	s := newTestServer(t, analyzer, nil)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(types.Profile{
		Age: "40", Gender: "female", JobTitle: "accountant", JobDescription: "books",
		DailyRoutine: "ledgers", Location: "Vienna", Education: "MBA",
	}))
	w := postAnalyze(s, buf.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "accountant", analyzer.profile.JobTitle)
	assert.Equal(t, "Vienna", analyzer.profile.Location)
}
