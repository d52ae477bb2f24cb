package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"hedwig/internal/domain"
	"hedwig/internal/security"
)

// ListDirectoryTool lists directory entries inside the sandbox.
type ListDirectoryTool struct {
	backend FilesystemBackend
	sandbox *security.Sandbox
	logger  *slog.Logger
}

// NewListDirectoryTool creates a sandboxed directory lister.
func NewListDirectoryTool(backend FilesystemBackend, sandbox *security.Sandbox, logger *slog.Logger) *ListDirectoryTool {
	return &ListDirectoryTool{backend: backend, sandbox: sandbox, logger: orDiscard(logger)}
}

func (t *ListDirectoryTool) Name() string              { return "list_directory" }
func (t *ListDirectoryTool) RiskTier() domain.RiskTier { return domain.RiskReadOnly }
func (t *ListDirectoryTool) Description() string {
	return "List the files and directories at a path in the workspace"
}

func (t *ListDirectoryTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Directory path (defaults to the workspace root)"}
			}
		}`),
	}
}

type listDirectoryParams struct {
	Path string `json:"path"`
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]any) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.list_directory", t.logger, args,
		func(_ context.Context, _ trace.Span, p listDirectoryParams) (any, error) {
			resolved := t.sandbox.Root()
			if p.Path != "" && p.Path != "." {
				var err error
				if resolved, err = t.sandbox.ValidatePath(p.Path); err != nil {
					return nil, err
				}
			}

			entries, err := t.backend.ReadDir(resolved)
			if err != nil {
				return nil, fmt.Errorf("list dir: %w", err)
			}

			var sb strings.Builder
			for _, entry := range entries {
				if entry.IsDir() {
					fmt.Fprintf(&sb, "%s/\n", entry.Name())
				} else {
					fmt.Fprintf(&sb, "%s\n", entry.Name())
				}
			}
			return &domain.ToolResult{
				Success:  true,
				Content:  sb.String(),
				Metadata: map[string]any{"path": resolved, "entries": len(entries)},
			}, nil
		},
	)
}
