package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"hedwig/internal/domain"
	"hedwig/internal/security"
)

// FileWriterTool writes text files inside the sandbox and reports each
// written file as an artifact.
type FileWriterTool struct {
	backend FilesystemBackend
	sandbox *security.Sandbox
	logger  *slog.Logger
}

// NewFileWriterTool creates a sandboxed file writer.
func NewFileWriterTool(backend FilesystemBackend, sandbox *security.Sandbox, logger *slog.Logger) *FileWriterTool {
	return &FileWriterTool{backend: backend, sandbox: sandbox, logger: orDiscard(logger)}
}

func (t *FileWriterTool) Name() string              { return "file_writer" }
func (t *FileWriterTool) RiskTier() domain.RiskTier { return domain.RiskWrite }
func (t *FileWriterTool) Description() string {
	return "Write text content to a file in the workspace, creating parent directories as needed"
}

func (t *FileWriterTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file_path": {"type": "string", "description": "Destination path"},
				"content": {"type": "string", "description": "Text content to write"}
			},
			"required": ["file_path", "content"]
		}`),
	}
}

type fileWriterParams struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (t *FileWriterTool) Execute(ctx context.Context, args map[string]any) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.file_writer", t.logger, args,
		func(_ context.Context, _ trace.Span, p fileWriterParams) (any, error) {
			resolved, err := t.sandbox.ValidatePath(p.FilePath)
			if err != nil {
				return nil, err
			}

			if err := t.backend.WriteFile(resolved, []byte(p.Content), 0o644); err != nil {
				return nil, fmt.Errorf("write file: %w", err)
			}

			t.logger.Debug("file written", "path", resolved, "size", len(p.Content))
			return &domain.ToolResult{
				Success:   true,
				Content:   fmt.Sprintf("wrote %d bytes to %s", len(p.Content), p.FilePath),
				Artifacts: []domain.Artifact{fileArtifact(resolved, t.Name(), len(p.Content))},
			}, nil
		},
	)
}
