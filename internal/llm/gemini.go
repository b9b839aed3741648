package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
	logger *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultGeminiConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
		logger: logger.Named("gemini"),
	}, nil
}

// Generate sends the conversation as a chat session: system turns become the
// system instruction, earlier turns the history, and the final user turn the message.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return nil, &GenerationError{
			Operation: req.Operation,
			Kind:      KindTransport,
			Message:   fmt.Sprintf("no model configured for tier %s", req.Tier),
		}
	}

	system, history, last, err := splitConversation(req.Messages)
	if err != nil {
		return nil, &GenerationError{Operation: req.Operation, Kind: KindTransport, Message: "invalid conversation", Cause: err}
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.config.Temperature)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if req.Schema != nil {
		schema, err := ConvertSchema(req.Schema.Document)
		if err != nil {
			return nil, &GenerationError{Operation: req.Operation, Kind: KindSchema, Message: "cannot convert response schema " + req.Schema.Name, Cause: err}
		}
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = schema
	}
	if req.Tools.WebSearch {
		// The SDK has no search tool; research.WithGrounding supplies results when configured.
		c.logger.Debug("web search requested, relying on grounding decorator",
			zap.String("operation", req.Operation))
	}

	cs := model.StartChat()
	cs.History = history

	c.logger.Debug("sending generation request",
		zap.String("operation", req.Operation),
		zap.String("model", modelName),
		zap.Int("history_turns", len(history)))

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, classifyCallError(ctx, req.Operation, err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, &GenerationError{Operation: req.Operation, Kind: KindEmpty, Message: "no usable text", Cause: err}
	}
	return &Response{Text: text}, nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// splitConversation separates system turns from the dialogue and requires the
// dialogue to end with a user turn.
func splitConversation(messages []Message) (string, []*genai.Content, string, error) {
	var systemParts []string
	var dialogue []Message
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Text)
		case RoleUser, RoleModel:
			dialogue = append(dialogue, m)
		default:
			return "", nil, "", fmt.Errorf("unknown role %q", m.Role)
		}
	}
	if len(dialogue) == 0 || dialogue[len(dialogue)-1].Role != RoleUser {
		return "", nil, "", fmt.Errorf("conversation must end with a user turn")
	}

	history := make([]*genai.Content, 0, len(dialogue)-1)
	for _, m := range dialogue[:len(dialogue)-1] {
		history = append(history, &genai.Content{
			Role:  string(m.Role),
			Parts: []genai.Part{genai.Text(m.Text)},
		})
	}
	return strings.Join(systemParts, "\n\n"), history, dialogue[len(dialogue)-1].Text, nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// jsonSchemaNode is the subset of JSON Schema the provider understands.
type jsonSchemaNode struct {
	Type        string                     `json:"type"`
	Description string                     `json:"description"`
	Enum        []string                   `json:"enum"`
	Items       *jsonSchemaNode            `json:"items"`
	Properties  map[string]*jsonSchemaNode `json:"properties"`
	Required    []string                   `json:"required"`
}

// ConvertSchema translates a JSON Schema document into the provider's schema type.
// Bounds such as minItems or minimum are dropped here and enforced by GenerateStructured.
func ConvertSchema(document string) (*genai.Schema, error) {
	var root jsonSchemaNode
	if err := json.Unmarshal([]byte(document), &root); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return convertNode(&root, "$")
}

func convertNode(n *jsonSchemaNode, path string) (*genai.Schema, error) {
	out := &genai.Schema{
		Description: n.Description,
		Enum:        n.Enum,
		Required:    n.Required,
	}
	switch n.Type {
	case "string":
		out.Type = genai.TypeString
		if len(n.Enum) > 0 {
			out.Format = "enum"
		}
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		if n.Items == nil {
			return nil, fmt.Errorf("%s: array without items", path)
		}
		items, err := convertNode(n.Items, path+"[]")
		if err != nil {
			return nil, err
		}
		out.Items = items
	case "object":
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(n.Properties))
		for name, prop := range n.Properties {
			converted, err := convertNode(prop, path+"."+name)
			if err != nil {
				return nil, err
			}
			out.Properties[name] = converted
		}
	default:
		return nil, fmt.Errorf("%s: unsupported type %q", path, n.Type)
	}
	return out, nil
}
