package domain

import (
	"context"
	"time"
)

// ReasoningEngine is the opaque text-to-text model behind agents and routing.
// A nil engine is a legal configuration; callers fall back to fixed behavior.
type ReasoningEngine interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ReasoningFunc adapts a plain function to ReasoningEngine.
type ReasoningFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements ReasoningEngine.
func (f ReasoningFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ConfirmFunc asks a human to approve a risky tool call. It must honor the
// timeout; returning an error counts as a callback failure.
type ConfirmFunc func(ctx context.Context, message string, timeout time.Duration) (bool, error)
