package llm

import (
	"fmt"
	"log/slog"

	"hedwig/internal/domain"
	"hedwig/internal/infra/config"
)

// New builds the configured reasoning engine: the provider adapter, wrapped
// by the circuit breaker (when enabled) and then the rate limiter (when
// requests_per_minute > 0). An empty provider returns (nil, nil); a nil
// engine is legal and selects the executor and dispatcher fallbacks.
func New(cfg config.LLMConfig, logger *slog.Logger, opts ...OpenAIOption) (Engine, error) {
	var engine Engine
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		engine = NewOpenAIEngine(cfg, logger, opts...)
	default:
		return nil, domain.NewDomainError("llm.New", domain.ErrConfiguration,
			fmt.Sprintf("unknown provider %q", cfg.Provider))
	}

	if cfg.CircuitBreaker.Enabled {
		engine = NewCircuitBreakerEngine(engine, cfg.CircuitBreaker, logger)
	}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		engine = NewRateLimitedEngine(engine, cfg.RateLimit)
	}
	return engine, nil
}
