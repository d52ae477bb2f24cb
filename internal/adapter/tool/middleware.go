package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"hedwig/internal/domain"
	"hedwig/internal/infra/tracer"
)

// Execute is the standard tool execution pipeline: parse args -> start trace -> run handler -> format result.
//
// The handler receives the parsed args and an active trace span. It should return:
//   - (any Go value, nil): the value is JSON-marshaled into a success ToolResult
//   - (string, nil): wrapped in a plain-text ToolResult
//   - (*domain.ToolResult, nil): returned as-is (for custom formatting or artifacts)
//   - (nil, error): turned into a failed ToolResult with logging
//
// Handler errors never escape as Go errors: the Security Gateway treats a
// returned error as a fault, while a failed ToolResult is folded back into
// the reasoning loop.
func Execute[P any](
	ctx context.Context,
	spanName string,
	logger *slog.Logger,
	args map[string]any,
	handler func(ctx context.Context, span trace.Span, params P) (any, error),
) (*domain.ToolResult, error) {
	ctx, span := tracer.StartSpan(ctx, spanName, tracer.StringAttr("tool.name", spanName))
	defer span.End()

	p, bad := ParseArgs[P](args)
	if bad != nil {
		tracer.RecordError(span, fmt.Errorf("%s", bad.Error))
		return bad, nil
	}

	result, err := handler(ctx, span, p)
	if err != nil {
		tracer.RecordError(span, err)
		orDiscard(logger).Warn(spanName+" failed", "error", err)

		res := &domain.ToolResult{Error: err.Error()}
		if classifyToolError(err) {
			res.Error += " (transient error, may succeed on retry)"
			res.Metadata = map[string]any{"retryable": true}
		}
		return res, nil
	}

	return formatResult(span, result)
}

// formatResult converts the handler's return value into a ToolResult.
func formatResult(span trace.Span, result any) (*domain.ToolResult, error) {
	switch v := result.(type) {
	case *domain.ToolResult:
		if !v.Success {
			tracer.RecordError(span, fmt.Errorf("%s", v.Error))
		} else {
			tracer.SetOK(span)
		}
		return v, nil
	case string:
		tracer.SetOK(span)
		return TextResult(v), nil
	default:
		res, err := JSONResult(result)
		if err != nil {
			tracer.RecordError(span, err)
			return &domain.ToolResult{Error: fmt.Sprintf("failed to format response: %v", err)}, nil
		}
		tracer.SetOK(span)
		return res, nil
	}
}

// ParseArgs decodes the loosely typed argument map into P by round-tripping
// through JSON. On failure it returns a failed ToolResult suitable for
// returning directly.
func ParseArgs[P any](args map[string]any) (P, *domain.ToolResult) {
	var p P
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err == nil {
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return p, &domain.ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}
	}
	return p, nil
}

// ErrResult creates a failed ToolResult. Use this for validation errors inside
// handlers that should be returned to the reasoning loop without a warning log.
func ErrResult(format string, args ...any) *domain.ToolResult {
	return &domain.ToolResult{Error: fmt.Sprintf(format, args...)}
}

// JSONResult marshals v as indented JSON into a success ToolResult.
func JSONResult(v any) (*domain.ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &domain.ToolResult{Success: true, Content: string(data)}, nil
}

// TextResult creates a plain text success ToolResult.
func TextResult(s string) *domain.ToolResult {
	return &domain.ToolResult{Success: true, Content: s}
}
