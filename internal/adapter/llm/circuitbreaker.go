package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"hedwig/internal/domain"
	"hedwig/internal/infra/config"
	"hedwig/internal/infra/logger"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerEngine wraps an Engine with circuit breaker protection.
// When the wrapped engine fails repeatedly, the circuit opens and subsequent
// calls fail fast with ErrEngineUnavailable without reaching the engine.
type CircuitBreakerEngine struct {
	inner   Engine
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
}

// NewCircuitBreakerEngine wraps inner with a circuit breaker.
// Zero-valued settings fall back to defaults.
func NewCircuitBreakerEngine(inner Engine, cfg config.CircuitBreakerConfig, log *slog.Logger) *CircuitBreakerEngine {
	log = logger.OrDiscard(log)
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm:" + inner.Name(),
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Caller cancellation says nothing about engine health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerEngine{inner: inner, breaker: cb, logger: log}
}

// Complete implements domain.ReasoningEngine. Calls are routed through the circuit breaker.
func (e *CircuitBreakerEngine) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := e.breaker.Execute(func() (string, error) {
		return e.inner.Complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: engine %q circuit open: %w", domain.ErrEngineUnavailable, e.inner.Name(), err)
		}
		return "", err
	}
	return text, nil
}

// Name implements Engine.
func (e *CircuitBreakerEngine) Name() string { return e.inner.Name() }

// State returns the current circuit breaker state for monitoring.
func (e *CircuitBreakerEngine) State() gobreaker.State {
	return e.breaker.State()
}

// Counts returns the current circuit breaker failure/success counts.
func (e *CircuitBreakerEngine) Counts() gobreaker.Counts {
	return e.breaker.Counts()
}

var _ Engine = (*CircuitBreakerEngine)(nil)
