// Package roadmap drafts a Mermaid career roadmap per candidate career and
// repairs it with compiler feedback until it validates or the attempt budget runs out.
package roadmap

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/prompts"
	"github.com/jonathan/automation-exposure/internal/types"
	"github.com/jonathan/automation-exposure/internal/validation"
)

// DefaultMaxAttempts is the number of drafts per candidate.
const DefaultMaxAttempts = 3

// OperationDraw labels roadmap generation calls.
const OperationDraw = "draw_roadmap"

// FallbackRoadmap is returned when no draft validates.
const FallbackRoadmap = "flowchart TD\n    A[Roadmap unavailable] --> B[Could not generate valid diagram]"

// Stage records where an attempt failed.
type Stage string

const (
	StageGeneration  Stage = "generation"
	StageLocal       Stage = "local"
	StageValidator   Stage = "validator"
	StageUnavailable Stage = "unavailable"
	StageAccepted    Stage = "accepted"
)

// Diagnostic prefixes that distinguish failures which never reached the compiler.
const (
	prefixGenerationFailed     = "generation failed: "
	prefixValidatorUnavailable = "validator unavailable: "
)

// Attempt is the state of one draft.
type Attempt struct {
	Number        int
	RawText       string
	SanitizedText string
	Valid         bool
	Diagnostic    string
	Stage         Stage
}

// Outcome is the result of one candidate's loop.
type Outcome struct {
	Roadmap  string
	Accepted bool
	Attempts []Attempt
}

// Observer receives roadmap loop events.
type Observer interface {
	RoadmapAttempt(stage string)
	RoadmapFinished(accepted bool, attempts int)
}

// Generator runs the draft, sanitize, validate loop.
type Generator struct {
	Client      llm.Client
	Validator   validation.Validator
	Logger      *zap.Logger
	Observer    Observer
	Tier        llm.ModelTier
	MaxAttempts int
	Header      string
}

// GenerateAll runs one loop per candidate concurrently and attaches the
// roadmaps in candidate order. It never fails.
func (g *Generator) GenerateAll(ctx context.Context, jobContext string, candidates []types.CareerCandidate) []types.CareerOption {
	options := make([]types.CareerOption, len(candidates))

	var group errgroup.Group
	for i, candidate := range candidates {
		group.Go(func() error {
			outcome := g.Generate(ctx, jobContext, candidate)
			options[i] = types.CareerOption{
				CareerCandidate:  candidate,
				Roadmap:          outcome.Roadmap,
				RoadmapValidated: outcome.Accepted,
				RoadmapAttempts:  len(outcome.Attempts),
			}
			return nil
		})
	}
	_ = group.Wait()
	return options
}

// Generate drafts a roadmap for one candidate. Attempts are strictly sequential,
// each seeing every earlier draft and its diagnostic. Exhaustion and
// cancellation yield FallbackRoadmap instead of an error.
func (g *Generator) Generate(ctx context.Context, jobContext string, candidate types.CareerCandidate) Outcome {
	logger := g.logger().With(zap.String("career", candidate.JobTitle))
	start := time.Now()
	header := g.header()
	maxAttempts := g.maxAttempts()

	conversation := []llm.Message{
		llm.System(prompts.Render(prompts.RoadmapSystem, map[string]string{"Header": header})),
		llm.User(prompts.Render(prompts.RoadmapUser, map[string]string{
			"JobContext":         jobContext,
			"JobTitle":           candidate.JobTitle,
			"Reason":             candidate.Reason,
			"TransferableSkills": strings.Join(candidate.TransferableSkills, ", "),
			"NewSkillsNeeded":    strings.Join(candidate.NewSkillsNeeded, ", "),
			"Ease":               string(candidate.EaseOfTransition),
		})),
	}

	var attempts []Attempt
	for n := 1; n <= maxAttempts; n++ {
		if ctx.Err() != nil {
			logger.Debug("roadmap loop cancelled", zap.Int("attempt", n))
			break
		}

		attempt := g.attempt(ctx, n, conversation, header)
		attempts = append(attempts, attempt)
		g.observeAttempt(attempt.Stage)

		logger.Debug("roadmap attempt",
			zap.Int("attempt", n),
			zap.String("stage", string(attempt.Stage)),
			zap.String("diagnostic", attempt.Diagnostic))

		if attempt.Valid {
			g.observeFinished(true, len(attempts))
			logger.Info("roadmap accepted",
				zap.Int("attempts", len(attempts)),
				zap.Duration("elapsed", time.Since(start)))
			return Outcome{Roadmap: attempt.SanitizedText, Accepted: true, Attempts: attempts}
		}

		// A failed call produced no draft to correct, so the same conversation is retried.
		if attempt.Stage != StageGeneration {
			conversation = append(conversation,
				llm.Model(attempt.RawText),
				llm.User(prompts.Render(prompts.RoadmapFeedback, map[string]string{
					"Diagnostic": attempt.Diagnostic,
					"Header":     header,
				})),
			)
		}
	}

	g.observeFinished(false, len(attempts))
	logger.Warn("roadmap fell back",
		zap.Int("attempts", len(attempts)),
		zap.Duration("elapsed", time.Since(start)))
	return Outcome{Roadmap: FallbackRoadmap, Accepted: false, Attempts: attempts}
}

func (g *Generator) attempt(ctx context.Context, number int, conversation []llm.Message, header string) Attempt {
	attempt := Attempt{Number: number}

	messages := make([]llm.Message, len(conversation))
	copy(messages, conversation)

	resp, err := g.Client.Generate(ctx, llm.Request{
		Operation: OperationDraw,
		Tier:      g.tier(),
		Messages:  messages,
	})
	if err != nil {
		attempt.Stage = StageGeneration
		attempt.Diagnostic = prefixGenerationFailed + err.Error()
		return attempt
	}

	attempt.RawText = resp.Text
	attempt.SanitizedText = Sanitize(resp.Text)

	if diagnostic, ok := localCheck(attempt.SanitizedText, header); !ok {
		attempt.Stage = StageLocal
		attempt.Diagnostic = diagnostic
		return attempt
	}

	verdict, err := g.Validator.Validate(ctx, attempt.SanitizedText)
	if err != nil {
		attempt.Stage = StageUnavailable
		attempt.Diagnostic = prefixValidatorUnavailable + err.Error()
		return attempt
	}
	if !verdict.OK {
		attempt.Stage = StageValidator
		attempt.Diagnostic = verdict.Diagnostic
		if attempt.Diagnostic == "" {
			attempt.Diagnostic = "diagram rejected by compiler"
		}
		return attempt
	}

	attempt.Stage = StageAccepted
	attempt.Valid = true
	return attempt
}

func (g *Generator) observeAttempt(stage Stage) {
	if g.Observer != nil {
		g.Observer.RoadmapAttempt(string(stage))
	}
}

func (g *Generator) observeFinished(accepted bool, attempts int) {
	if g.Observer != nil {
		g.Observer.RoadmapFinished(accepted, attempts)
	}
}

func (g *Generator) header() string {
	if g.Header == "" {
		return DefaultHeader
	}
	return g.Header
}

func (g *Generator) maxAttempts() int {
	if g.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return g.MaxAttempts
}

func (g *Generator) tier() llm.ModelTier {
	if g.Tier == "" {
		return llm.TierAdvanced
	}
	return g.Tier
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger.Named("roadmap")
}
