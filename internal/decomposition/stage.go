// Package decomposition splits a job context into weighted tasks and skills.
package decomposition

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/prompts"
	"github.com/jonathan/automation-exposure/internal/schemas"
	"github.com/jonathan/automation-exposure/internal/types"
)

// DefaultWeightTolerance is the allowed distance of a weight sum from 1.0.
const DefaultWeightTolerance = 1e-3

// Operation labels for generation calls.
const (
	OperationTasks  = "decompose_tasks"
	OperationSkills = "decompose_skills"
)

// Stage issues the task and skill decomposition requests.
type Stage struct {
	Client          llm.Client
	Logger          *zap.Logger
	Tier            llm.ModelTier
	WebSearch       bool
	WeightTolerance float64
}

// Result holds both decompositions.
type Result struct {
	Tasks  []types.Task
	Skills []types.Skill
}

type taskEnvelope struct {
	Tasks []types.Task `json:"tasks"`
}

type skillEnvelope struct {
	Skills []types.Skill `json:"skills"`
}

// Run issues both requests concurrently and returns once both succeed.
// The first failure cancels the sibling request.
func (s *Stage) Run(ctx context.Context, jobContext string) (*Result, error) {
	logger := s.logger()
	start := time.Now()
	logger.Debug("decomposition started")

	g, gCtx := errgroup.WithContext(ctx)

	var tasks []types.Task
	var skills []types.Skill

	g.Go(func() error {
		var env taskEnvelope
		if err := s.request(gCtx, OperationTasks, prompts.DecomposeTasksSystem, schemas.TaskDecomposition, jobContext, &env); err != nil {
			return s.classify(KindTasks, err)
		}
		if err := s.checkWeights(KindTasks, types.TasksAsItems(env.Tasks)); err != nil {
			return err
		}
		tasks = env.Tasks
		return nil
	})

	g.Go(func() error {
		var env skillEnvelope
		if err := s.request(gCtx, OperationSkills, prompts.DecomposeSkillsSystem, schemas.SkillDecomposition, jobContext, &env); err != nil {
			return s.classify(KindSkills, err)
		}
		if err := s.checkWeights(KindSkills, types.SkillsAsItems(env.Skills)); err != nil {
			return err
		}
		skills = env.Skills
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("decomposition failed", zap.Error(err))
		return nil, err
	}

	logger.Info("decomposition completed",
		zap.Int("tasks", len(tasks)),
		zap.Int("skills", len(skills)),
		zap.Duration("elapsed", time.Since(start)))
	return &Result{Tasks: tasks, Skills: skills}, nil
}

func (s *Stage) request(ctx context.Context, operation, systemKey, schemaName, jobContext string, out any) error {
	req := llm.Request{
		Operation: operation,
		Tier:      s.tier(),
		Messages: []llm.Message{
			llm.System(prompts.Text(systemKey)),
			llm.User(prompts.Render(prompts.DecomposeUser, map[string]string{"JobContext": jobContext})),
		},
		Schema: llm.SchemaFor(schemaName),
		Tools:  llm.Tools{WebSearch: s.WebSearch},
	}
	return llm.GenerateStructured(ctx, s.Client, req, out)
}

// classify turns schema non-conformance into InvalidDecompositionError and
// leaves transport, timeout and cancellation failures as they are.
func (s *Stage) classify(kind Kind, err error) error {
	if llm.IsKind(err, llm.KindSchema) || llm.IsKind(err, llm.KindEmpty) {
		return &InvalidDecompositionError{Kind: kind, Message: "response rejected", Cause: err}
	}
	return fmt.Errorf("%s decomposition: %w", kind, err)
}

func (s *Stage) checkWeights(kind Kind, items []types.WorkItem) error {
	tolerance := s.WeightTolerance
	if tolerance <= 0 {
		tolerance = DefaultWeightTolerance
	}
	sum := types.WeightSum(items)
	if math.Abs(sum-1.0) > tolerance {
		return &InvalidDecompositionError{
			Kind:    kind,
			Message: fmt.Sprintf("weights sum to %.4f, want 1.0 ± %g", sum, tolerance),
		}
	}
	return nil
}

func (s *Stage) tier() llm.ModelTier {
	if s.Tier == "" {
		return llm.TierStandard
	}
	return s.Tier
}

func (s *Stage) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger.Named("decomposition")
}
