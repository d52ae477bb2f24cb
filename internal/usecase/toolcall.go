package usecase

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"hedwig/internal/domain"
)

// ToolCallMarker introduces a tool call in reasoning engine output.
const ToolCallMarker = "TOOL_CALL:"

const toolCallEnvelopeSchema = `{
	"type": "object",
	"properties": {
		"tool_name": {"type": "string", "minLength": 1},
		"arguments": {"type": "object"}
	},
	"required": ["tool_name"]
}`

var (
	envelopeOnce   sync.Once
	envelopeSchema *jsonschema.Schema
)

func toolCallEnvelope() *jsonschema.Schema {
	envelopeOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		schema, err := compiler.Compile([]byte(toolCallEnvelopeSchema))
		if err != nil {
			panic("compile tool call envelope schema: " + err.Error())
		}
		envelopeSchema = schema
	})
	return envelopeSchema
}

// ParseToolCall extracts the first tool call from text. It returns false when
// the marker is absent, the JSON object after it is malformed, or the
// envelope lacks a tool_name; none of these are errors. The function is pure.
func ParseToolCall(text string) (*domain.ToolCall, bool) {
	idx := strings.Index(text, ToolCallMarker)
	if idx < 0 {
		return nil, false
	}
	raw, ok := firstJSONObject(text[idx+len(ToolCallMarker):])
	if !ok {
		return nil, false
	}

	var envelope map[string]any
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, false
	}
	if !toolCallEnvelope().Validate(envelope).IsValid() {
		return nil, false
	}

	name, _ := envelope["tool_name"].(string)
	args, _ := envelope["arguments"].(map[string]any)
	if args == nil {
		args = map[string]any{}
	}
	return &domain.ToolCall{ToolName: name, Arguments: args}, true
}

// firstJSONObject returns the balanced {...} block that starts at the first
// non-space character of s. Braces inside JSON strings are ignored.
func firstJSONObject(s string) (string, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(s, "{") {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
