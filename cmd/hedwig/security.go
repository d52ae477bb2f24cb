package main

import (
	"fmt"
	"log/slog"

	"hedwig/internal/domain"
	"hedwig/internal/infra/config"
	"hedwig/internal/security"
	"hedwig/internal/usecase"
)

// initSecurity builds the sandbox and the Security Gateway with the
// confirmation callback selected by security.confirm_mode.
func initSecurity(cfg *config.Config, log *slog.Logger, bus domain.EventBus, streams ioStreams) (*security.Sandbox, *security.Gateway, error) {
	sandbox, err := security.NewSandbox(cfg.Tools.SandboxRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("sandbox: %w", err)
	}
	log.Info("sandbox initialized", "root", sandbox.Root())

	opts := []security.GatewayOption{
		security.WithConfirmationTimeout(cfg.Security.ConfirmationTimeout),
		security.WithDenialCapacity(cfg.Security.MaxDenials),
		security.WithEventBus(bus),
	}
	if confirm := confirmFunc(cfg.Security, streams, log); confirm != nil {
		opts = append(opts, security.WithConfirm(confirm))
	}
	return sandbox, security.NewGateway(log, opts...), nil
}

// confirmFunc returns the callback for mode, or nil to fail closed.
func confirmFunc(cfg config.SecurityConfig, streams ioStreams, log *slog.Logger) domain.ConfirmFunc {
	switch cfg.ConfirmMode {
	case config.ConfirmPrompt:
		if !streams.interactive {
			log.Warn("confirm_mode is prompt but stdin is not a terminal, denying risky tool calls")
			return usecase.DenyAll
		}
		return usecase.NewTerminalConfirmer(streams.in, streams.out).Confirm
	case config.ConfirmPolicy:
		return usecase.NewPolicyConfirmer(cfg.AutoApprove, cfg.AlwaysDeny).Confirm
	default:
		return nil
	}
}
