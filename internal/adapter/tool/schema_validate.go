package tool

import (
	"bytes"
	"context"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"hedwig/internal/domain"
)

// SchemaValidatingTool wraps a Tool with JSON Schema validation.
// On Execute, it validates args against the compiled schema before delegating.
type SchemaValidatingTool struct {
	inner  domain.Tool
	schema *jsonschema.Schema
}

// WithSchemaValidation wraps a tool so that Execute validates args against
// the tool's JSON Schema before forwarding to the inner tool. A tool without
// a schema is returned unchanged.
func WithSchemaValidation(t domain.Tool) (domain.Tool, error) {
	raw := t.Schema().Parameters
	if len(raw) == 0 || string(raw) == "null" {
		return t, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", t.Name(), err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", t.Name(), err)
	}

	return &SchemaValidatingTool{inner: t, schema: compiled}, nil
}

func (s *SchemaValidatingTool) Name() string              { return s.inner.Name() }
func (s *SchemaValidatingTool) Description() string       { return s.inner.Description() }
func (s *SchemaValidatingTool) RiskTier() domain.RiskTier { return s.inner.RiskTier() }
func (s *SchemaValidatingTool) Schema() domain.ToolSchema { return s.inner.Schema() }

// Unwrap returns the validated tool.
func (s *SchemaValidatingTool) Unwrap() domain.Tool { return s.inner }

func (s *SchemaValidatingTool) Execute(ctx context.Context, args map[string]any) (*domain.ToolResult, error) {
	// The validator expects decoded JSON values; normalize Go-typed args
	// (e.g. []string, int) the same way the pipeline will see them.
	var v any = map[string]any{}
	if args != nil {
		normalized, bad := ParseArgs[any](args)
		if bad != nil {
			return bad, nil
		}
		v = normalized
	}

	if err := s.schema.Validate(v); err != nil {
		return &domain.ToolResult{Error: fmt.Sprintf("schema validation failed: %v", err)}, nil
	}

	return s.inner.Execute(ctx, args)
}
