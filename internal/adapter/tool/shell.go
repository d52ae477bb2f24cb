package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"hedwig/internal/domain"
	"hedwig/internal/infra/tracer"
	"hedwig/internal/security"
)

// ShellTool executes commands from an allowlist inside the sandbox.
type ShellTool struct {
	backend         ShellBackend
	allowedCommands map[string]bool
	sandbox         *security.Sandbox
	logger          *slog.Logger
}

// NewShellTool creates a shell tool with an allowlist of commands, backed by the given ShellBackend.
func NewShellTool(backend ShellBackend, allowed []string, sandbox *security.Sandbox, logger *slog.Logger) *ShellTool {
	m := make(map[string]bool, len(allowed))
	for _, cmd := range allowed {
		m[cmd] = true
	}
	return &ShellTool{
		backend:         backend,
		allowedCommands: m,
		sandbox:         sandbox,
		logger:          orDiscard(logger),
	}
}

func (t *ShellTool) Name() string              { return "shell" }
func (t *ShellTool) RiskTier() domain.RiskTier { return domain.RiskExecute }
func (t *ShellTool) Description() string {
	return "Execute allowed shell commands within the workspace (requires user confirmation)"
}

func (t *ShellTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"command": {"type": "string", "description": "The command line to execute"},
				"args": {"type": "array", "items": {"type": "string"}, "description": "Extra command arguments"},
				"workdir": {"type": "string", "description": "Working directory (optional, defaults to sandbox root)"}
			},
			"required": ["command"]
		}`),
	}
}

type shellParams struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	WorkDir string   `json:"workdir,omitempty"`
}

func (t *ShellTool) Execute(ctx context.Context, args map[string]any) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.shell", t.logger, args,
		func(ctx context.Context, span trace.Span, p shellParams) (any, error) {
			fields := strings.Fields(p.Command)
			if len(fields) == 0 {
				return ErrResult("command is required"), nil
			}
			command, argv := fields[0], append(fields[1:], p.Args...)
			if err := t.validateCommand(command); err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.StringAttr("shell.command", command))

			workDir := t.sandbox.Root()
			if p.WorkDir != "" {
				resolved, err := t.sandbox.ValidatePath(p.WorkDir)
				if err != nil {
					return nil, err
				}
				workDir = resolved
			}

			stdout, stderr, err := t.backend.Execute(ctx, command, argv, workDir)

			output := stdout
			if stderr != "" {
				output += "\nSTDERR:\n" + stderr
			}

			if err != nil {
				t.logger.Debug("shell command failed", "command", command, "error", err)
				return &domain.ToolResult{
					Error:    fmt.Sprintf("command failed: %v", err),
					Content:  output,
					Metadata: map[string]any{"command": command, "backend": t.backend.Name()},
				}, nil
			}

			t.logger.Debug("shell command completed", "command", command)
			return &domain.ToolResult{
				Success:  true,
				Content:  output,
				Metadata: map[string]any{"command": command, "backend": t.backend.Name()},
			}, nil
		},
	)
}

// validateCommand checks the base command name is in the allowlist.
func (t *ShellTool) validateCommand(command string) error {
	base := filepath.Base(command)
	if !t.allowedCommands[base] {
		return domain.NewDomainError("ShellTool.validateCommand", domain.ErrCommandNotAllowed,
			fmt.Sprintf("command %q (base: %q) not in allowlist", command, base))
	}
	return nil
}
