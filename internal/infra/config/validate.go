package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAgent(cfg, ve)
	validateLLM(cfg, ve)
	validateSecurity(cfg, ve)
	validateTools(cfg, ve)
	validateDispatcher(cfg, ve)
	validatePool(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateMetrics(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAgent(cfg *Config, ve *ValidationError) {
	if cfg.Agent.MaxIterations <= 0 {
		ve.Add("agent.max_iterations must be > 0")
	}
	if cfg.Agent.MaxRetries <= 0 {
		ve.Add("agent.max_retries must be > 0")
	}
}

func validateLLM(cfg *Config, ve *ValidationError) {
	switch cfg.LLM.Provider {
	case "":
		return
	case "openai":
	default:
		ve.Add("llm.provider %q is not supported (want \"openai\" or empty)", cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		ve.Add("llm.model is required when llm.provider is set")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		ve.Add("llm.temperature must be within [0, 2], got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens < 0 {
		ve.Add("llm.max_tokens must be >= 0")
	}
	if cfg.LLM.Timeout <= 0 {
		ve.Add("llm.timeout must be > 0")
	}
	if cfg.LLM.RateLimit.RequestsPerMinute < 0 || cfg.LLM.RateLimit.Burst < 0 {
		ve.Add("llm.rate_limit values must be >= 0")
	}
}

func validateSecurity(cfg *Config, ve *ValidationError) {
	switch cfg.Security.ConfirmMode {
	case ConfirmDeny, ConfirmPrompt, ConfirmPolicy:
	default:
		ve.Add("security.confirm_mode %q is invalid (want %q, %q or %q)",
			cfg.Security.ConfirmMode, ConfirmDeny, ConfirmPrompt, ConfirmPolicy)
	}
	if cfg.Security.ConfirmationTimeout <= 0 {
		ve.Add("security.confirmation_timeout must be > 0")
	}
	if cfg.Security.MaxDenials <= 0 {
		ve.Add("security.max_denials must be > 0")
	}
	deny := make(map[string]bool, len(cfg.Security.AlwaysDeny))
	for _, name := range cfg.Security.AlwaysDeny {
		deny[name] = true
	}
	for _, name := range cfg.Security.AutoApprove {
		if deny[name] {
			ve.Add("security: tool %q is in both auto_approve and always_deny", name)
		}
	}
}

func validateTools(cfg *Config, ve *ValidationError) {
	if cfg.Tools.SandboxRoot == "" {
		ve.Add("tools.sandbox_root is required")
	}
	if cfg.Tools.ShellTimeout <= 0 {
		ve.Add("tools.shell_timeout must be > 0")
	}
}

func validateDispatcher(cfg *Config, ve *ValidationError) {
	if cfg.Dispatcher.HistorySize <= 0 {
		ve.Add("dispatcher.history_size must be > 0")
	}
}

func validatePool(cfg *Config, ve *ValidationError) {
	if cfg.Pool.Workers <= 0 {
		ve.Add("pool.workers must be > 0")
	}
	if cfg.Pool.QueueSize < 0 {
		ve.Add("pool.queue_size must be >= 0")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is invalid (want \"text\" or \"json\")", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
}

func validateMetrics(cfg *Config, ve *ValidationError) {
	if cfg.Metrics.Addr == "" {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
		ve.Add("metrics.addr %q is invalid: %v", cfg.Metrics.Addr, err)
	}
}
