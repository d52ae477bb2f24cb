package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"

	"hedwig/internal/domain"
	"hedwig/internal/security"
)

const defaultMaxReadMB = 10.0

// FileReaderTool reads text files inside the sandbox.
type FileReaderTool struct {
	backend FilesystemBackend
	sandbox *security.Sandbox
	logger  *slog.Logger
}

// NewFileReaderTool creates a sandboxed file reader.
func NewFileReaderTool(backend FilesystemBackend, sandbox *security.Sandbox, logger *slog.Logger) *FileReaderTool {
	return &FileReaderTool{backend: backend, sandbox: sandbox, logger: orDiscard(logger)}
}

func (t *FileReaderTool) Name() string              { return "file_reader" }
func (t *FileReaderTool) RiskTier() domain.RiskTier { return domain.RiskReadOnly }
func (t *FileReaderTool) Description() string {
	return "Read the complete content of a text file, such as a previously generated artifact"
}

func (t *FileReaderTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file_path": {"type": "string", "description": "Path of the file to read"},
				"max_size_mb": {"type": "number", "exclusiveMinimum": 0, "description": "Maximum file size in MB (default 10)"}
			},
			"required": ["file_path"]
		}`),
	}
}

type fileReaderParams struct {
	FilePath  string  `json:"file_path"`
	MaxSizeMB float64 `json:"max_size_mb,omitempty"`
}

func (t *FileReaderTool) Execute(ctx context.Context, args map[string]any) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.file_reader", t.logger, args,
		func(_ context.Context, _ trace.Span, p fileReaderParams) (any, error) {
			resolved, err := t.sandbox.ValidatePath(p.FilePath)
			if err != nil {
				return nil, err
			}

			info, err := t.backend.Stat(resolved)
			if err != nil {
				return ErrResult("file not found: %s", p.FilePath), nil
			}
			if info.IsDir() {
				return ErrResult("path is not a file: %s", p.FilePath), nil
			}

			limit := p.MaxSizeMB
			if limit <= 0 {
				limit = defaultMaxReadMB
			}
			sizeMB := float64(info.Size()) / (1024 * 1024)
			if sizeMB > limit {
				return ErrResult("file too large: %.2fMB > %gMB limit", sizeMB, limit), nil
			}

			data, err := t.backend.ReadFile(resolved)
			if err != nil {
				return nil, fmt.Errorf("read file: %w", err)
			}
			if looksBinary(data) {
				return ErrResult("file appears to be binary and cannot be read as text: %s", p.FilePath), nil
			}

			content := string(data)
			t.logger.Debug("file read", "path", resolved, "size", len(data))
			return &domain.ToolResult{
				Success: true,
				Content: content,
				Metadata: map[string]any{
					"file_path":       resolved,
					"file_size_bytes": info.Size(),
					"line_count":      lineCount(content),
					"character_count": utf8.RuneCount(data),
				},
			}, nil
		},
	)
}

// looksBinary reports whether the first 8KB contain a NUL byte or are not
// valid UTF-8.
func looksBinary(data []byte) bool {
	sample := data
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	if utf8.Valid(sample) {
		return false
	}
	// A multi-byte rune may be cut at the sample boundary.
	if len(sample) < len(data) {
		for i := 1; i < utf8.UTFMax; i++ {
			if utf8.Valid(sample[:len(sample)-i]) {
				return false
			}
		}
	}
	return true
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}
