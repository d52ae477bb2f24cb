package usecase

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"hedwig/internal/domain"
)

const (
	conversationWindow     = 5
	conversationContentMax = 300
)

const systemPreamble = `You are an AI assistant with access to specialized tools to help complete user tasks.

IMPORTANT: When you need to use a tool, format your tool call EXACTLY like this:
TOOL_CALL: {
  "tool_name": "exact_tool_name",
  "arguments": {
    "arg1": "value1",
    "arg2": "value2"
  }
}

After making a tool call, wait for the tool result before proceeding. You can make multiple tool calls if needed.
When you have completed the task, provide a final response without any tool calls.
`

// buildToolsContext describes tools for the reasoning engine.
func buildToolsContext(tools []domain.Tool) string {
	if len(tools) == 0 {
		return "No tools available."
	}

	lines := []string{"Available Tools:", strings.Repeat("=", 50)}
	for _, t := range tools {
		lines = append(lines,
			"\n**"+t.Name()+"**",
			"Description: "+t.Description(),
			"Risk Level: "+t.RiskTier().String(),
			describeParameters(t.Schema().Parameters),
		)
	}
	return strings.Join(lines, "\n")
}

// describeParameters renders a JSON Schema object's properties as a list.
func describeParameters(raw json.RawMessage) string {
	var schema struct {
		Properties map[string]struct {
			Type        any    `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &schema) != nil || len(schema.Properties) == 0 {
		return "No input parameters required."
	}

	required := make(map[string]bool, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = true
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := []string{"Input parameters:"}
	for _, name := range names {
		p := schema.Properties[name]
		typ := "unknown"
		if p.Type != nil {
			typ = fmt.Sprint(p.Type)
		}
		desc := p.Description
		if desc == "" {
			desc = "No description"
		}
		marker := " (optional)"
		if required[name] {
			marker = " (required)"
		}
		lines = append(lines, fmt.Sprintf("  - %s (%s)%s: %s", name, typ, marker, desc))
	}
	return strings.Join(lines, "\n")
}

// formatConversation renders the last few turns as "ROLE: content" lines.
func formatConversation(conv []domain.Message) string {
	if len(conv) == 0 {
		return ""
	}
	recent := domain.LastMessages(conv, conversationWindow)
	lines := make([]string, len(recent))
	for i, m := range recent {
		lines[i] = strings.ToUpper(m.Role) + ": " + truncate(m.Content, conversationContentMax)
	}
	return strings.Join(lines, "\n")
}

func buildSystemPrompt(toolsContext, conversation string) string {
	prompt := systemPreamble
	if conversation != "" {
		prompt += "\n" + conversation + "\n"
	}
	return prompt + "\n" + toolsContext + "\n"
}

func buildFollowupPrompt(initial, response string, call *domain.ToolCall, resultText string) string {
	return initial + fmt.Sprintf(`
Previous response: %s

Tool call executed: %s
Tool result: %s

Continue with the task. You can make another tool call if needed, or provide a final response.
`, response, call.ToolName, resultText)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return domain.Clip(s, n) + "..."
}
