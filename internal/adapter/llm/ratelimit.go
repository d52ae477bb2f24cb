package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"hedwig/internal/domain"
	"hedwig/internal/infra/config"
)

// RateLimitedEngine bounds the request rate to an Engine. Callers block until
// a token is available or their context ends.
type RateLimitedEngine struct {
	inner   Engine
	limiter *rate.Limiter
}

// NewRateLimitedEngine wraps inner with a token bucket of cfg.RequestsPerMinute
// refilled continuously, holding at most cfg.Burst tokens.
func NewRateLimitedEngine(inner Engine, cfg config.RateLimitConfig) *RateLimitedEngine {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	return &RateLimitedEngine{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// Complete implements domain.ReasoningEngine.
func (e *RateLimitedEngine) Complete(ctx context.Context, prompt string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: engine %q: %w", domain.ErrRateLimit, e.inner.Name(), err)
	}
	return e.inner.Complete(ctx, prompt)
}

// Name implements Engine.
func (e *RateLimitedEngine) Name() string { return e.inner.Name() }

var _ Engine = (*RateLimitedEngine)(nil)
