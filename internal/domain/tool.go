package domain

import (
	"context"
	"encoding/json"
)

// ToolSchema describes a tool's argument contract for the reasoning engine.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is a structured invocation extracted from free-form reasoning output.
// It only lives for one iteration of the reasoning loop.
type ToolCall struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the outcome of executing a tool. Tool-level failures are
// reported with Success=false rather than as a returned error.
type ToolResult struct {
	Success   bool           `json:"success"`
	Content   string         `json:"content"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Text renders the result as the text folded back into the reasoning loop.
func (r *ToolResult) Text() string {
	if r == nil {
		return ""
	}
	if r.Success {
		return r.Content
	}
	if r.Error != "" && r.Content != "" {
		return "Error: " + r.Error + "\n" + r.Content
	}
	if r.Error != "" {
		return "Error: " + r.Error
	}
	return "Error: " + r.Content
}

// Tool is the interface every tool must implement. Tools are registered once
// at startup and are read-only afterwards.
type Tool interface {
	Name() string
	Description() string
	// RiskTier is the static tier. The Security Gateway may escalate it per call.
	RiskTier() RiskTier
	Schema() ToolSchema
	Execute(ctx context.Context, args map[string]any) (*ToolResult, error)
}

// ToolLookup abstracts tool resolution by name.
type ToolLookup interface {
	Get(name string) (Tool, error)
	Filter(allow []string) []Tool
}

// ToolRunner executes an already-resolved tool under authorization.
type ToolRunner interface {
	Execute(ctx context.Context, tool Tool, args map[string]any) (*ToolResult, error)
}
