package domain

import (
	"maps"
	"slices"
	"strings"
)

// TaskRequest is one attempt's input. It is treated as immutable: retries
// build a new request with WithRetry.
type TaskRequest struct {
	Prompt         string         `json:"prompt"`
	Conversation   []Message      `json:"conversation"`
	ThreadID       string         `json:"thread_id"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	ExcludedAgents []string       `json:"excluded_agents,omitempty"`
}

// NewTaskRequest builds a request with a trimmed prompt and a private copy
// of the conversation.
func NewTaskRequest(prompt string, conversation []Message, threadID string) *TaskRequest {
	return &TaskRequest{
		Prompt:       strings.TrimSpace(prompt),
		Conversation: CloneMessages(conversation),
		ThreadID:     threadID,
		Parameters:   map[string]any{},
	}
}

// WithRetry returns the request for the next attempt: the given exclusion
// set, and the prompt extended with note when note is non-empty.
func (r *TaskRequest) WithRetry(excluded []string, note string) *TaskRequest {
	prompt := r.Prompt
	if note != "" {
		prompt += "\n\n" + note
	}
	return &TaskRequest{
		Prompt:         prompt,
		Conversation:   CloneMessages(r.Conversation),
		ThreadID:       r.ThreadID,
		Parameters:     maps.Clone(r.Parameters),
		ExcludedAgents: slices.Clone(excluded),
	}
}

// TaskResult is the outcome of one task attempt, or of the whole retry loop.
// It is owned by the call that produced it and never mutated after return.
type TaskResult struct {
	Content      string         `json:"content"`
	Success      bool           `json:"success"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Conversation []Message      `json:"conversation"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Artifacts    []Artifact     `json:"artifacts,omitempty"`
}

// Rejected reports whether the result asks the caller to try a different agent.
func (r *TaskResult) Rejected() bool {
	if r == nil || r.ErrorKind != KindTaskRejected {
		return false
	}
	canRetry, _ := r.Metadata["can_retry"].(bool)
	return canRetry
}

// Metadata keys shared by agents and the retry loop.
const (
	MetaCanRetry       = "can_retry"
	MetaRejectedBy     = "rejected_by"
	MetaReason         = "reason"
	MetaAgentName      = "agent_name"
	MetaAgentType      = "agent_type"
	MetaError          = "error"
	MetaFinalFailure   = "final_failure"
	MetaAttempts       = "attempts"
	MetaRejectedAgents = "rejected_agents"
	MetaLastError      = "last_error"
	MetaIterations     = "iterations"
	MetaExecutionLog   = "execution_log"
)
