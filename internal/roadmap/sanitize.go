package roadmap

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// DefaultHeader is the literal every accepted diagram must start with.
const DefaultHeader = "flowchart"

const fenceDelimiter = "```"

// envelopeFields are the keys a model uses when it wraps the diagram in JSON.
var envelopeFields = []string{"mermaid_text", "mermaid", "mermaid_code", "diagram", "roadmap"}

// fencePattern matches a fenced block with an optional language tag line.
var fencePattern = regexp.MustCompile("(?s)```(?:[\\w-]+[ \\t]*\\r?\\n|[ \\t]*\\r?\\n?)(.*?)```")

// Sanitize unwraps a JSON envelope, then strips a code fence, then trims
// whitespace. Each step is applied independently and in that order.
func Sanitize(raw string) string {
	text := unwrapEnvelope(raw)
	text = stripFence(text)
	return strings.TrimSpace(text)
}

func unwrapEnvelope(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		if text, ok := looseEnvelopeField(trimmed); ok {
			return text
		}
		return raw
	}
	for _, key := range envelopeFields {
		value, ok := fields[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err == nil {
			return text
		}
	}
	return raw
}

// envelopeKeyPatterns find `"key": "` in envelopes that are not valid JSON.
var envelopeKeyPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(envelopeFields))
	for i, key := range envelopeFields {
		out[i] = regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"`)
	}
	return out
}()

// rawControls escapes the control characters models leave unescaped in strings.
var rawControls = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)

// looseEnvelopeField pulls a known field's string value out of an envelope
// that failed to parse, usually because the diagram holds raw line breaks.
func looseEnvelopeField(text string) (string, bool) {
	for _, pattern := range envelopeKeyPatterns {
		loc := pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		body, ok := quotedBody(text[loc[1]:])
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal([]byte(`"`+rawControls.Replace(body)+`"`), &value); err != nil {
			continue
		}
		return value, true
	}
	return "", false
}

// quotedBody returns s up to its first unescaped double quote.
func quotedBody(s string) (string, bool) {
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == '"':
			return s[:i], true
		}
	}
	return "", false
}

func stripFence(text string) string {
	match := fencePattern.FindStringSubmatch(text)
	if match == nil {
		return text
	}
	return match[1]
}

// localCheck rejects text that cannot pass the compiler, without invoking it.
func localCheck(text, header string) (string, bool) {
	switch {
	case text == "":
		return "diagram is empty", false
	case !strings.HasPrefix(text, header):
		return fmt.Sprintf("diagram must start with %q", header), false
	case strings.Contains(text, fenceDelimiter):
		return "diagram still contains code fence delimiters", false
	}
	return "", true
}
