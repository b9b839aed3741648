// Package prompts holds the embedded prompt templates used by every analysis stage.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

//go:embed analysis.json
var analysisFile []byte

// Template names in analysis.json.
const (
	DecomposeTasksSystem  = "decompose-tasks-system"
	DecomposeSkillsSystem = "decompose-skills-system"
	DecomposeUser         = "decompose-user"
	ScoreTaskSystem       = "score-task-system"
	ScoreSkillSystem      = "score-skill-system"
	ScoreUser             = "score-user"
	ScenariosSystem       = "scenarios-system"
	CareersSystem         = "careers-system"
	NarrativeUser         = "narrative-user"
	RoadmapSystem         = "roadmap-system"
	RoadmapUser           = "roadmap-user"
	RoadmapFeedback       = "roadmap-feedback"
)

// Set is a parsed collection of named prompt templates.
type Set struct {
	raw       map[string]string
	templates *template.Template
}

// Parse builds a Set from a JSON object of name to template text.
// Templates use text/template syntax; a placeholder without a value is an error.
func Parse(data []byte) (*Set, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file: %w", err)
	}

	root := template.New("prompts").Option("missingkey=error")
	for name, text := range raw {
		if _, err := root.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}
	}
	return &Set{raw: raw, templates: root}, nil
}

// Text returns the template source for name.
func (s *Set) Text(name string) (string, error) {
	text, ok := s.raw[name]
	if !ok {
		return "", fmt.Errorf("prompt %q not found", name)
	}
	return text, nil
}

// Render executes the template name with data.
func (s *Set) Render(name string, data map[string]string) (string, error) {
	if _, ok := s.raw[name]; !ok {
		return "", fmt.Errorf("prompt %q not found", name)
	}
	var sb strings.Builder
	if err := s.templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", name, err)
	}
	return sb.String(), nil
}

// Names returns the sorted template names.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.raw))
	for name := range s.raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
	defaultErr  error
)

// Default returns the embedded analysis prompts.
func Default() (*Set, error) {
	defaultOnce.Do(func() {
		defaultSet, defaultErr = Parse(analysisFile)
	})
	return defaultSet, defaultErr
}

func mustDefault() *Set {
	set, err := Default()
	if err != nil {
		panic(err)
	}
	return set
}

// Text returns an embedded prompt that takes no values. It panics on an
// unknown name; names are the constants above.
func Text(name string) string {
	text, err := mustDefault().Text(name)
	if err != nil {
		panic(err)
	}
	return text
}

// Render fills an embedded prompt. It panics on an unknown name or a missing value.
func Render(name string, data map[string]string) string {
	out, err := mustDefault().Render(name, data)
	if err != nil {
		panic(err)
	}
	return out
}
