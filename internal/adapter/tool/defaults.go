package tool

import (
	"fmt"
	"log/slog"

	"hedwig/internal/domain"
	"hedwig/internal/infra/config"
	"hedwig/internal/security"
)

// RegisterDefaults registers the reference tools configured by cfg.
func RegisterDefaults(r *Registry, cfg config.ToolsConfig, sandbox *security.Sandbox, logger *slog.Logger) error {
	shell := NewLocalShellBackend(cfg.ShellTimeout)
	fs := NewLocalFilesystemBackend()

	tools := []domain.Tool{
		NewEchoTool(logger),
		NewFileReaderTool(fs, sandbox, logger),
		NewFileWriterTool(fs, sandbox, logger),
		NewListDirectoryTool(fs, sandbox, logger),
		NewShellTool(shell, cfg.AllowedCommands, sandbox, logger),
		NewPythonExecuteTool(shell, fs, cfg.PythonBinary, sandbox, logger),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return fmt.Errorf("register %s: %w", t.Name(), err)
		}
	}
	return nil
}
