// Package schemas provides JSON Schema definitions for every structured generation
// request and validation of responses against them.
package schemas

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed definitions/*.json
var definitionsFS embed.FS

// Schema names, matching the files under definitions/.
const (
	TaskDecomposition     = "task_decomposition"
	SkillDecomposition    = "skill_decomposition"
	AutomationScore       = "automation_score"
	FutureScenarios       = "future_scenarios"
	CareerRecommendations = "career_recommendations"
)

// Load returns the schema document registered under name.
func Load(name string) (string, error) {
	data, err := definitionsFS.ReadFile("definitions/" + name + ".json")
	if err != nil {
		return "", &SchemaLoadError{Path: name, Message: "schema not found", Cause: err}
	}
	return string(data), nil
}

// MustLoad is like Load but panics on failure. Schema names are compile-time constants.
func MustLoad(name string) string {
	doc, err := Load(name)
	if err != nil {
		panic(err)
	}
	return doc
}

// ValidationError lists every place a document breaks its schema.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is one violation, located by its dotted field path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	return "schema violation: " + ve.Summary()
}

// Summary joins the field errors on one line, for logs and feedback prompts.
func (ve *ValidationError) Summary() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, err := range ve.Errors {
		parts = append(parts, err.Field+": "+err.Message)
	}
	return strings.Join(parts, "; ")
}

// SchemaLoadError reports a schema that is missing or cannot be parsed.
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

var (
	compiledMu sync.Mutex
	compiled   = make(map[string]*gojsonschema.Schema)
)

// compile returns the parsed schema for a document, reusing earlier parses.
// Structured requests validate against a handful of fixed documents.
func compile(schemaContent string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiled[schemaContent]; ok {
		return schema, nil
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaContent))
	if err != nil {
		return nil, &SchemaLoadError{Path: "(string schema)", Message: "invalid schema document", Cause: err}
	}
	compiled[schemaContent] = schema
	return schema, nil
}

// ValidateJSONString checks a JSON document against a schema document.
// Non-conformance is a *ValidationError; an unusable schema is a *SchemaLoadError.
func ValidateJSONString(schemaContent, jsonContent string) error {
	if !json.Valid([]byte(jsonContent)) {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "document is not valid JSON"}}}
	}

	schema, err := compile(schemaContent)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return &SchemaLoadError{Path: "(document)", Message: "document could not be loaded", Cause: err}
	}
	if result.Valid() {
		return nil
	}
	return fromResult(result)
}

func fromResult(result *gojsonschema.Result) *ValidationError {
	out := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		out.Errors = append(out.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return out
}
