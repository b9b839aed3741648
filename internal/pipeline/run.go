// Package pipeline provides the high-level orchestration of one automation
// exposure analysis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/automation-exposure/internal/decomposition"
	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/narrative"
	"github.com/jonathan/automation-exposure/internal/observability"
	"github.com/jonathan/automation-exposure/internal/pipeline/steps"
	"github.com/jonathan/automation-exposure/internal/roadmap"
	"github.com/jonathan/automation-exposure/internal/scoring"
	"github.com/jonathan/automation-exposure/internal/types"
	"github.com/jonathan/automation-exposure/internal/validation"
)

// Pipeline outcomes recorded in metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step      string `json:"step"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Content   any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options configures a Coordinator. Client and Validator are required.
type Options struct {
	Client             llm.Client
	Validator          validation.Validator
	Logger             *zap.Logger
	Metrics            *observability.Metrics
	ScoreConcurrency   int
	RoadmapMaxAttempts int
	WeightTolerance    float64
	WebSearch          bool
	DiagramHeader      string
	// CallTimeout bounds each generation call; zero disables it.
	CallTimeout time.Duration
	OnProgress  ProgressCallback
}

// Coordinator runs the analysis stages in dependency order.
type Coordinator struct {
	logger     *zap.Logger
	metrics    *observability.Metrics
	onProgress ProgressCallback

	decompose *decomposition.Stage
	score     *scoring.Stage
	narrate   *narrative.Stage
	roadmaps  *roadmap.Generator
}

// New wires the stages around one shared client. The client is wrapped with
// the per-call timeout and, when Metrics is set, with call instrumentation.
func New(opts Options) (*Coordinator, error) {
	if opts.Client == nil {
		return nil, errors.New("pipeline: generation client is required")
	}
	if opts.Validator == nil {
		return nil, errors.New("pipeline: diagram validator is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := llm.WithTimeout(opts.Client, opts.CallTimeout)
	var observer roadmap.Observer
	if opts.Metrics != nil {
		client = llm.WithMetrics(client, opts.Metrics)
		observer = opts.Metrics
	}

	return &Coordinator{
		logger:     logger,
		metrics:    opts.Metrics,
		onProgress: opts.OnProgress,
		decompose: &decomposition.Stage{
			Client:          client,
			Logger:          logger,
			WebSearch:       opts.WebSearch,
			WeightTolerance: opts.WeightTolerance,
		},
		score: &scoring.Stage{
			Client:      client,
			Logger:      logger,
			Concurrency: opts.ScoreConcurrency,
		},
		narrate: &narrative.Stage{
			Client:    client,
			Logger:    logger,
			WebSearch: opts.WebSearch,
		},
		roadmaps: &roadmap.Generator{
			Client:      client,
			Validator:   opts.Validator,
			Logger:      logger,
			Observer:    observer,
			MaxAttempts: opts.RoadmapMaxAttempts,
			Header:      opts.DiagramHeader,
		},
	}, nil
}

type requestIDKey struct{}

// WithRequestID attaches a caller-chosen request ID to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID attached by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// run holds the state of one Analyze call.
type run struct {
	requestID string
	logger    *zap.Logger
	tracker   *steps.Tracker
	c         *Coordinator
}

func (r *run) begin(step string) error {
	if err := r.tracker.Begin(step); err != nil {
		return fmt.Errorf("pipeline out of order: %w", err)
	}
	r.logger.Debug("step started", zap.String("step", step))
	return nil
}

func (r *run) complete(step, message string, content any) {
	r.tracker.Complete(step)
	r.logger.Debug("step completed", zap.String("step", step), zap.String("message", message))
	if r.c.onProgress != nil {
		r.c.onProgress(ProgressEvent{
			Step:      step,
			Category:  steps.Category(step),
			Message:   message,
			RequestID: r.requestID,
			Content:   content,
		})
	}
}

// Analyze runs the full pipeline for one profile. Any stage failure fails the
// whole request; no partial result is returned. Every goroutine started for the
// request has exited when Analyze returns.
func (c *Coordinator) Analyze(ctx context.Context, profile types.Profile) (result *types.AnalysisResult, err error) {
	start := time.Now()
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		requestID: requestID,
		logger:    c.logger.With(zap.String("request_id", requestID)),
		tracker:   steps.NewTracker(),
		c:         c,
	}
	r.logger.Info("analysis started", zap.String("job_title", profile.JobTitle))

	defer func() {
		outcome := outcomeOf(ctx, err)
		if c.metrics != nil {
			c.metrics.PipelineFinished(outcome, time.Since(start))
		}
		if err != nil {
			r.logger.Error("analysis failed", zap.String("outcome", outcome), zap.Error(err))
			return
		}
		r.logger.Info("analysis completed",
			zap.Float64("weighted_final_score", result.Aggregate.WeightedFinalScore),
			zap.String("risk_level", string(result.RiskLevel)),
			zap.Duration("duration", time.Since(start)))
	}()

	if err := r.begin(steps.StepValidateProfile); err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	jobContext := profile.JobContext()
	r.complete(steps.StepValidateProfile, "Profile accepted", nil)

	if err := r.begin(steps.StepDecompose); err != nil {
		return nil, err
	}
	decomposed, err := c.decompose.Run(ctx, jobContext)
	if err != nil {
		return nil, fmt.Errorf("decomposition: %w", err)
	}
	r.complete(steps.StepDecompose,
		fmt.Sprintf("Decomposed job into %d tasks and %d skills", len(decomposed.Tasks), len(decomposed.Skills)),
		decomposed)

	if err := r.begin(steps.StepScore); err != nil {
		return nil, err
	}
	scored, err := c.score.Run(ctx, jobContext, decomposed.Tasks, decomposed.Skills)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	r.complete(steps.StepScore,
		fmt.Sprintf("Scored %d items", len(scored.Tasks)+len(scored.Skills)), scored)

	if err := r.begin(steps.StepAggregate); err != nil {
		return nil, err
	}
	aggregate := scoring.Aggregate(scored.Tasks, scored.Skills)
	r.complete(steps.StepAggregate,
		fmt.Sprintf("Weighted final score %.3f", aggregate.WeightedFinalScore), aggregate)

	if err := r.begin(steps.StepNarrate); err != nil {
		return nil, err
	}
	narrated, err := c.narrate.Run(ctx, narrative.Input{
		JobContext: jobContext,
		Tasks:      scored.Tasks,
		Skills:     scored.Skills,
		Aggregate:  aggregate,
	})
	if err != nil {
		return nil, fmt.Errorf("narrative: %w", err)
	}
	r.complete(steps.StepNarrate,
		fmt.Sprintf("Generated %d scenarios and %d career candidates", len(narrated.Scenarios), len(narrated.Careers)),
		narrated)

	if err := r.begin(steps.StepDrawRoadmaps); err != nil {
		return nil, err
	}
	careers := c.roadmaps.GenerateAll(ctx, jobContext, narrated.Careers)
	// Roadmap loops degrade to fallbacks on cancellation; the request still fails.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("roadmaps: %w", err)
	}
	r.complete(steps.StepDrawRoadmaps,
		fmt.Sprintf("Drew %d roadmaps (%d validated)", len(careers), countValidated(careers)), careers)

	if err := r.begin(steps.StepAssemble); err != nil {
		return nil, err
	}
	result = &types.AnalysisResult{
		RequestID:      requestID,
		Tasks:          scored.Tasks,
		Skills:         scored.Skills,
		Aggregate:      aggregate,
		RiskLevel:      types.RiskLevelFor(aggregate.WeightedFinalScore),
		Scenarios:      narrated.Scenarios,
		Careers:        careers,
		DurationMillis: time.Since(start).Milliseconds(),
	}
	r.complete(steps.StepAssemble, "Analysis assembled", result)

	return result, nil
}

func countValidated(careers []types.CareerOption) int {
	n := 0
	for _, c := range careers {
		if c.RoadmapValidated {
			n++
		}
	}
	return n
}

// outcomeOf classifies a finished run. A per-call timeout is an error, not a
// cancellation; only the caller's context decides the latter.
func outcomeOf(ctx context.Context, err error) string {
	var invalid *decomposition.InvalidDecompositionError
	switch {
	case err == nil:
		return OutcomeSuccess
	case ctx.Err() != nil:
		return OutcomeCanceled
	case errors.As(err, &invalid), IsInvalidProfile(err):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
