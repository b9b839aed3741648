package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/automation-exposure/internal/config"
	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/observability"
	"github.com/jonathan/automation-exposure/internal/pipeline"
	"github.com/jonathan/automation-exposure/internal/research"
	"github.com/jonathan/automation-exposure/internal/validation"
)

// Constructors swapped out by tests.
var (
	newLLMClient = llm.NewClient
	newValidator = func(cfg *config.Config) validation.Validator {
		return validation.NewMermaidCLI(cfg.Validator.Command, cfg.Validator.Timeout)
	}
	newSearcher = func(ctx context.Context, cfg *config.Config) (research.Searcher, error) {
		return research.NewResearcher(ctx, cfg.Search.APIKey, cfg.Search.EngineID, cfg.Search.Results)
	}
)

// buildCoordinator creates the generation client and wires the pipeline.
// The caller closes the returned client.
func buildCoordinator(ctx context.Context, cfg *config.Config, apiKey string, logger *zap.Logger,
	metrics *observability.Metrics, onProgress pipeline.ProgressCallback) (*pipeline.Coordinator, llm.Client, error) {
	if apiKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	client, err := newLLMClient(ctx, cfg.LLMClientConfig(), apiKey, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	if cfg.SearchEnabled() {
		searcher, err := newSearcher(ctx, cfg)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to create web search: %w", err)
		}
		client = research.WithGrounding(client, searcher, logger)
		logger.Info("web search grounding enabled", zap.String("engine_id", cfg.Search.EngineID))
	}

	coordinator, err := pipeline.New(pipeline.Options{
		Client:             client,
		Validator:          newValidator(cfg),
		Logger:             logger,
		Metrics:            metrics,
		ScoreConcurrency:   cfg.Pipeline.ScoreConcurrency,
		RoadmapMaxAttempts: cfg.Pipeline.RoadmapMaxAttempts,
		WeightTolerance:    cfg.Pipeline.WeightTolerance,
		WebSearch:          cfg.Pipeline.WebSearch,
		DiagramHeader:      cfg.Validator.Header,
		CallTimeout:        cfg.Pipeline.CallTimeout,
		OnProgress:         onProgress,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return coordinator, client, nil
}
