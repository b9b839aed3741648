// Package scoring rates every decomposed item for automation potential under a
// shared concurrency limit and aggregates the weighted results.
package scoring

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/prompts"
	"github.com/jonathan/automation-exposure/internal/schemas"
	"github.com/jonathan/automation-exposure/internal/types"
)

// DefaultConcurrency is the number of score requests allowed in flight.
const DefaultConcurrency = 10

// Operation labels for generation calls.
const (
	OperationScoreTask  = "score_task"
	OperationScoreSkill = "score_skill"
)

// Stage scores tasks and skills. All items of one Run share a single limiter.
type Stage struct {
	Client      llm.Client
	Logger      *zap.Logger
	Tier        llm.ModelTier
	Concurrency int
}

// Result holds the scored items in input order.
type Result struct {
	Tasks  []types.ScoredItem
	Skills []types.ScoredItem
}

type scoreEnvelope struct {
	AutomationScore float64 `json:"automation_score"`
}

// Run scores every task and skill. The first failure cancels outstanding and
// queued requests and is returned.
func (s *Stage) Run(ctx context.Context, jobContext string, tasks []types.Task, skills []types.Skill) (*Result, error) {
	logger := s.logger()
	start := time.Now()

	limit := s.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}
	sem := semaphore.NewWeighted(int64(limit))
	g, gCtx := errgroup.WithContext(ctx)

	taskItems := types.TasksAsItems(tasks)
	skillItems := types.SkillsAsItems(skills)
	scoredTasks := make([]types.ScoredItem, len(taskItems))
	scoredSkills := make([]types.ScoredItem, len(skillItems))

	logger.Debug("scoring started",
		zap.Int("tasks", len(taskItems)),
		zap.Int("skills", len(skillItems)),
		zap.Int("concurrency", limit))

	s.fanOut(gCtx, g, sem, jobContext, taskItems, scoredTasks)
	s.fanOut(gCtx, g, sem, jobContext, skillItems, scoredSkills)

	if err := g.Wait(); err != nil {
		logger.Error("scoring failed", zap.Error(err))
		return nil, err
	}

	logger.Info("scoring completed",
		zap.Int("items", len(taskItems)+len(skillItems)),
		zap.Duration("elapsed", time.Since(start)))
	return &Result{Tasks: scoredTasks, Skills: scoredSkills}, nil
}

// fanOut starts one goroutine per item; each writes only its own slot of out.
func (s *Stage) fanOut(ctx context.Context, g *errgroup.Group, sem *semaphore.Weighted, jobContext string, items []types.WorkItem, out []types.ScoredItem) {
	for i, item := range items {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			if err := ctx.Err(); err != nil {
				return err
			}

			score, err := s.scoreItem(ctx, jobContext, item)
			if err != nil {
				return fmt.Errorf("scoring %s %q: %w", item.Kind(), item.Name(), err)
			}
			out[i] = types.NewScoredItem(item, score)
			return nil
		})
	}
}

func (s *Stage) scoreItem(ctx context.Context, jobContext string, item types.WorkItem) (float64, error) {
	systemKey, operation := prompts.ScoreTaskSystem, OperationScoreTask
	if item.Kind() == types.KindSkill {
		systemKey, operation = prompts.ScoreSkillSystem, OperationScoreSkill
	}

	kindLabel := strings.ToUpper(string(item.Kind())[:1]) + string(item.Kind())[1:]
	req := llm.Request{
		Operation: operation,
		Tier:      s.tier(),
		Messages: []llm.Message{
			llm.System(prompts.Text(systemKey)),
			llm.User(prompts.Render(prompts.ScoreUser, map[string]string{
				"JobContext":  jobContext,
				"Kind":        kindLabel,
				"KindLower":   string(item.Kind()),
				"Name":        item.Name(),
				"WeightLabel": item.WeightLabel(),
				"Weight":      strconv.FormatFloat(item.Weight(), 'f', -1, 64),
			})),
		},
		Schema: llm.SchemaFor(schemas.AutomationScore),
	}

	var env scoreEnvelope
	if err := llm.GenerateStructured(ctx, s.Client, req, &env); err != nil {
		return 0, err
	}
	return env.AutomationScore, nil
}

func (s *Stage) tier() llm.ModelTier {
	if s.Tier == "" {
		return llm.TierLite
	}
	return s.Tier
}

func (s *Stage) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger.Named("scoring")
}
