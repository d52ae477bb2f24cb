package domain

import "context"

type ctxKey string

const (
	threadCtxKey  ctxKey = "thread_id"
	attemptCtxKey ctxKey = "attempt_id"
	toolCtxKey    ctxKey = "tool_name"
)

// ContextWithThreadID returns a new context carrying the conversation thread ID.
func ContextWithThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadCtxKey, threadID)
}

// ThreadIDFromContext extracts the thread ID from the context.
// Returns empty string if not set.
func ThreadIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(threadCtxKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithAttemptID returns a new context carrying the ULID of the current task attempt.
func ContextWithAttemptID(ctx context.Context, attemptID string) context.Context {
	return context.WithValue(ctx, attemptCtxKey, attemptID)
}

// AttemptIDFromContext extracts the attempt ID from the context.
func AttemptIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(attemptCtxKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithToolName returns a new context naming the tool awaiting confirmation.
func ContextWithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolCtxKey, name)
}

// ToolNameFromContext extracts the tool name set by ContextWithToolName.
func ToolNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(toolCtxKey).(string); ok {
		return v
	}
	return ""
}
