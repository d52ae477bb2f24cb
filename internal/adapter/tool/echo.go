package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"hedwig/internal/domain"
)

// EchoTool returns its arguments as JSON. It is read-only and is the
// simplest end-to-end target for the reasoning loop.
type EchoTool struct {
	logger *slog.Logger
}

// NewEchoTool creates an echo tool.
func NewEchoTool(logger *slog.Logger) *EchoTool {
	return &EchoTool{logger: orDiscard(logger)}
}

func (t *EchoTool) Name() string              { return "echo" }
func (t *EchoTool) RiskTier() domain.RiskTier { return domain.RiskReadOnly }
func (t *EchoTool) Description() string {
	return "Echo the provided arguments back as JSON. Useful for testing tool calls."
}

func (t *EchoTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"message": {"type": "string", "description": "Text to echo back"}
			},
			"additionalProperties": true
		}`),
	}
}

func (t *EchoTool) Execute(ctx context.Context, args map[string]any) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.echo", t.logger, args,
		func(_ context.Context, _ trace.Span, p map[string]any) (any, error) {
			if msg, ok := p["message"].(string); ok && len(p) == 1 {
				return msg, nil
			}
			if p == nil {
				p = map[string]any{}
			}
			return p, nil
		},
	)
}
