// Package narrative generates future scenarios and alternative careers from a
// scored job analysis.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/prompts"
	"github.com/jonathan/automation-exposure/internal/schemas"
	"github.com/jonathan/automation-exposure/internal/types"
)

// Operation labels for generation calls.
const (
	OperationScenarios = "generate_scenarios"
	OperationCareers   = "recommend_careers"
)

// Stage issues the scenario and career requests.
type Stage struct {
	Client    llm.Client
	Logger    *zap.Logger
	Tier      llm.ModelTier
	WebSearch bool
}

// Input is the scored analysis the narrative is conditioned on.
type Input struct {
	JobContext string
	Tasks      []types.ScoredItem
	Skills     []types.ScoredItem
	Aggregate  types.AggregateScore
}

// Result holds both narrative lists.
type Result struct {
	Scenarios []types.Scenario
	Careers   []types.CareerCandidate
}

type analysisSummary struct {
	JobContext           string             `json:"job_context"`
	TasksAnalysis        []types.ScoredItem `json:"tasks_analysis"`
	SkillsAnalysis       []types.ScoredItem `json:"skills_analysis"`
	TotalAutomationScore float64            `json:"total_automation_score"`
}

type scenarioEnvelope struct {
	Scenarios []types.Scenario `json:"scenarios"`
}

type careerEnvelope struct {
	Careers []types.CareerCandidate `json:"careers"`
}

// Summary renders the analysis as the indented JSON document both requests receive.
func Summary(in Input) (string, error) {
	data, err := json.MarshalIndent(analysisSummary{
		JobContext:           in.JobContext,
		TasksAnalysis:        in.Tasks,
		SkillsAnalysis:       in.Skills,
		TotalAutomationScore: in.Aggregate.WeightedFinalScore,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render analysis summary: %w", err)
	}
	return string(data), nil
}

// Run issues both requests concurrently. Any failure fails the stage.
func (s *Stage) Run(ctx context.Context, in Input) (*Result, error) {
	logger := s.logger()
	start := time.Now()

	summary, err := Summary(in)
	if err != nil {
		return nil, err
	}
	user := prompts.Render(prompts.NarrativeUser, map[string]string{"Summary": summary})

	g, gCtx := errgroup.WithContext(ctx)

	var scenarios []types.Scenario
	var careers []types.CareerCandidate

	g.Go(func() error {
		var env scenarioEnvelope
		if err := s.request(gCtx, OperationScenarios, prompts.ScenariosSystem, schemas.FutureScenarios, user, &env); err != nil {
			return fmt.Errorf("scenario generation: %w", err)
		}
		scenarios = env.Scenarios
		return nil
	})

	g.Go(func() error {
		var env careerEnvelope
		if err := s.request(gCtx, OperationCareers, prompts.CareersSystem, schemas.CareerRecommendations, user, &env); err != nil {
			return fmt.Errorf("career recommendation: %w", err)
		}
		careers = env.Careers
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("narrative failed", zap.Error(err))
		return nil, err
	}

	logger.Info("narrative completed",
		zap.Int("scenarios", len(scenarios)),
		zap.Int("careers", len(careers)),
		zap.Duration("elapsed", time.Since(start)))
	return &Result{Scenarios: scenarios, Careers: careers}, nil
}

func (s *Stage) request(ctx context.Context, operation, systemKey, schemaName, user string, out any) error {
	req := llm.Request{
		Operation: operation,
		Tier:      s.tier(),
		Messages: []llm.Message{
			llm.System(prompts.Text(systemKey)),
			llm.User(user),
		},
		Schema: llm.SchemaFor(schemaName),
		Tools:  llm.Tools{WebSearch: s.WebSearch},
	}
	return llm.GenerateStructured(ctx, s.Client, req, out)
}

func (s *Stage) tier() llm.ModelTier {
	if s.Tier == "" {
		return llm.TierAdvanced
	}
	return s.Tier
}

func (s *Stage) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger.Named("narrative")
}
