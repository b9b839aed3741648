package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/automation-exposure/internal/schemas"
)

// GenerateStructured issues a schema-bound request, checks the response against
// the declared JSON Schema and decodes it into out.
func GenerateStructured(ctx context.Context, c Client, req Request, out any) error {
	if req.Schema == nil {
		return &GenerationError{Operation: req.Operation, Kind: KindSchema, Message: "structured request without schema"}
	}

	resp, err := c.Generate(ctx, req)
	if err != nil {
		return classifyCallError(ctx, req.Operation, err)
	}

	cleaned := CleanJSONBlock(resp.Text)
	if cleaned == "" {
		return &GenerationError{Operation: req.Operation, Kind: KindEmpty, Message: "empty structured response"}
	}

	if err := schemas.ValidateJSONString(req.Schema.Document, cleaned); err != nil {
		return &GenerationError{
			Operation: req.Operation,
			Kind:      KindSchema,
			Message:   fmt.Sprintf("response does not conform to %s", req.Schema.Name),
			Cause:     err,
		}
	}

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &GenerationError{Operation: req.Operation, Kind: KindSchema, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// SchemaFor builds a request schema from an embedded definition.
func SchemaFor(name string) *Schema {
	return &Schema{Name: name, Document: schemas.MustLoad(name)}
}
