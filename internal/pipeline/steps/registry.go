// Package steps provides step definitions and dependency validation for the
// analysis pipeline.
package steps

import (
	"fmt"
	"sort"
	"sync"
)

// Step names, in execution order.
const (
	StepValidateProfile = "validate_profile"
	StepDecompose       = "decompose"
	StepScore           = "score"
	StepAggregate       = "aggregate"
	StepNarrate         = "narrate"
	StepDrawRoadmaps    = "draw_roadmaps"
	StepAssemble        = "assemble"
)

// Step categories.
const (
	CategoryInput     = "input"
	CategoryAnalysis  = "analysis"
	CategoryNarrative = "narrative"
	CategoryOutput    = "output"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	StepValidateProfile: {
		Name:     StepValidateProfile,
		Category: CategoryInput,
	},
	StepDecompose: {
		Name:         StepDecompose,
		Category:     CategoryAnalysis,
		Dependencies: []string{StepValidateProfile},
	},
	StepScore: {
		Name:         StepScore,
		Category:     CategoryAnalysis,
		Dependencies: []string{StepDecompose},
	},
	StepAggregate: {
		Name:         StepAggregate,
		Category:     CategoryAnalysis,
		Dependencies: []string{StepScore},
	},
	StepNarrate: {
		Name:         StepNarrate,
		Category:     CategoryNarrative,
		Dependencies: []string{StepAggregate},
	},
	StepDrawRoadmaps: {
		Name:         StepDrawRoadmaps,
		Category:     CategoryNarrative,
		Dependencies: []string{StepNarrate},
	},
	StepAssemble: {
		Name:         StepAssemble,
		Category:     CategoryOutput,
		Dependencies: []string{StepAggregate, StepDrawRoadmaps},
	},
}

// Order lists every step so that each comes after its dependencies.
var Order = []string{
	StepValidateProfile,
	StepDecompose,
	StepScore,
	StepAggregate,
	StepNarrate,
	StepDrawRoadmaps,
	StepAssemble,
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// Category returns the category of a registered step, or "" if unknown.
func Category(stepName string) string {
	return StepRegistry[stepName].Category
}

// ValidateDependencies checks if all required dependencies for a step are completed
func ValidateDependencies(completed map[string]bool, stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// Tracker records completed steps for one run.
type Tracker struct {
	mu        sync.Mutex
	completed map[string]bool
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{completed: make(map[string]bool)}
}

// Begin reports whether stepName may start.
func (t *Tracker) Begin(stepName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ValidateDependencies(t.completed, stepName)
}

// Complete marks stepName done.
func (t *Tracker) Complete(stepName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed[stepName] = true
}

// Completed returns the completed steps, sorted.
func (t *Tracker) Completed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.completed))
	for name := range t.completed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AvailableSteps returns steps that are not completed and whose dependencies are met.
func (t *Tracker) AvailableSteps() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var available []string
	for _, name := range Order {
		if t.completed[name] {
			continue
		}
		if ValidateDependencies(t.completed, name) == nil {
			available = append(available, name)
		}
	}
	return available
}
