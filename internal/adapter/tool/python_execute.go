package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"hedwig/internal/domain"
	"hedwig/internal/infra/tracer"
	"hedwig/internal/security"
)

const outputPreviewLen = 200

// PythonExecuteTool runs a Python snippet with the configured interpreter.
// The snippet is written to a temporary file in the sandbox and executed
// through a ShellBackend.
type PythonExecuteTool struct {
	backend ShellBackend
	fs      FilesystemBackend
	binary  string
	sandbox *security.Sandbox
	logger  *slog.Logger
}

// NewPythonExecuteTool creates a Python execution tool.
func NewPythonExecuteTool(backend ShellBackend, fs FilesystemBackend, binary string, sandbox *security.Sandbox, logger *slog.Logger) *PythonExecuteTool {
	if binary == "" {
		binary = "python3"
	}
	return &PythonExecuteTool{backend: backend, fs: fs, binary: binary, sandbox: sandbox, logger: orDiscard(logger)}
}

func (t *PythonExecuteTool) Name() string              { return "python_execute" }
func (t *PythonExecuteTool) RiskTier() domain.RiskTier { return domain.RiskExecute }
func (t *PythonExecuteTool) Description() string {
	return "Execute Python code with timeout and output capture (requires user confirmation)"
}

func (t *PythonExecuteTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"code": {"type": "string", "description": "Python code to execute"},
				"save_output": {"type": "boolean", "description": "Save the output as a text artifact"}
			},
			"required": ["code"]
		}`),
	}
}

type pythonParams struct {
	Code       string `json:"code"`
	SaveOutput bool   `json:"save_output,omitempty"`
}

func (t *PythonExecuteTool) Execute(ctx context.Context, args map[string]any) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.python_execute", t.logger, args,
		func(ctx context.Context, span trace.Span, p pythonParams) (any, error) {
			if strings.TrimSpace(p.Code) == "" {
				return ErrResult("code is required"), nil
			}

			script, err := os.CreateTemp(t.sandbox.Root(), "hedwig-*.py")
			if err != nil {
				return nil, fmt.Errorf("create script: %w", err)
			}
			defer os.Remove(script.Name())
			if _, err := script.WriteString(p.Code); err != nil {
				script.Close()
				return nil, fmt.Errorf("write script: %w", err)
			}
			if err := script.Close(); err != nil {
				return nil, fmt.Errorf("close script: %w", err)
			}

			start := time.Now()
			stdout, stderr, runErr := t.backend.Execute(ctx, t.binary, []string{script.Name()}, t.sandbox.Root())
			elapsed := time.Since(start)
			span.SetAttributes(tracer.BoolAttr("python.success", runErr == nil))

			output := stdout
			if stderr != "" {
				if output != "" {
					output += "\n--- STDERR ---\n"
				}
				output += stderr
			}

			meta := map[string]any{
				"execution_time": elapsed.Seconds(),
				"interpreter":    t.binary,
			}
			if runErr != nil {
				return &domain.ToolResult{
					Error:    fmt.Sprintf("python execution failed: %v", runErr),
					Content:  output,
					Metadata: meta,
				}, nil
			}

			res := &domain.ToolResult{Success: true, Content: summarizeOutput(output), Metadata: meta}
			if p.SaveOutput && output != "" {
				path, err := t.sandbox.ValidatePath(fmt.Sprintf("python_output_%s.txt", start.Format("20060102_150405")))
				if err != nil {
					return nil, err
				}
				if err := t.fs.WriteFile(path, []byte(output), 0o644); err != nil {
					return nil, fmt.Errorf("save output: %w", err)
				}
				res.Artifacts = append(res.Artifacts, fileArtifact(path, t.Name(), len(output)))
			}
			return res, nil
		},
	)
}

func summarizeOutput(output string) string {
	if output == "" {
		return "Python code executed successfully"
	}
	preview := output
	if len(preview) > outputPreviewLen {
		preview = domain.Clip(preview, outputPreviewLen) + "..."
	}
	return "Python code executed successfully. Output: " + preview
}
