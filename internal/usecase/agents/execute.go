package agents

import (
	"context"
	"strings"

	"hedwig/internal/domain"
	"hedwig/internal/usecase"
)

// execution describes one executor run on behalf of an agent.
type execution struct {
	prompt   string         // text handed to the executor
	tools    []string       // allow-list, empty = every registered tool
	metadata map[string]any // extra keys merged into the result
}

// runExecutor invokes exec and shapes its outcome into a TaskResult. The
// conversation is extended with the user turn and the final answer.
func runExecutor(ctx context.Context, exec Executor, req *domain.TaskRequest, run execution) *domain.TaskResult {
	out := exec.Invoke(ctx, usecase.TaskContext{
		Prompt:       run.prompt,
		Conversation: req.Conversation,
		AllowedTools: run.tools,
		Parameters:   req.Parameters,
	})

	meta := map[string]any{
		domain.MetaIterations:   out.Iterations,
		domain.MetaExecutionLog: out.ExecutionLog,
		"artifacts_generated":   len(out.Artifacts),
		"tools_used":            toolsUsed(out.ExecutionLog),
	}
	for k, v := range run.metadata {
		meta[k] = v
	}

	if !out.Success {
		meta[domain.MetaError] = errorText(out.Err)
		return &domain.TaskResult{
			Content:      "I encountered an error while processing your request: " + out.Output,
			ErrorKind:    domain.KindAgentExecutionError,
			ErrorMessage: errorText(out.Err),
			Conversation: domain.CloneMessages(req.Conversation),
			Metadata:     meta,
		}
	}

	return &domain.TaskResult{
		Content:      out.Output,
		Success:      true,
		Conversation: extendConversation(req.Conversation, req.Prompt, out.Output),
		Metadata:     meta,
		Artifacts:    out.Artifacts,
	}
}

// extendConversation appends the user prompt, unless it is already the last
// turn, and the assistant reply. The input slice is not modified.
func extendConversation(conv []domain.Message, prompt, reply string) []domain.Message {
	out := domain.CloneMessages(conv)
	if len(out) == 0 || out[len(out)-1].Content != prompt {
		out = append(out, domain.Message{Role: domain.RoleUser, Content: prompt})
	}
	return append(out, domain.Message{Role: domain.RoleAssistant, Content: reply})
}

// toolsUsed lists the distinct tools that ran, in first-use order.
func toolsUsed(log []domain.ExecutionStep) []string {
	var names []string
	seen := make(map[string]bool)
	for _, step := range log {
		if step.StepType != domain.StepToolExecution {
			continue
		}
		name, _ := step.Data["tool_name"].(string)
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func errorText(err error) string {
	if err == nil {
		return "Unknown execution error"
	}
	return err.Error()
}

// noExecutorResult is the canned ConfigurationError answer given when an
// agent has no executor to work with.
func noExecutorResult(req *domain.TaskRequest, role string) *domain.TaskResult {
	response := noExecutorResponse(req.Prompt, role)
	return &domain.TaskResult{
		Content:      response,
		ErrorKind:    domain.KindConfigurationError,
		ErrorMessage: "No AgentExecutor configured",
		Conversation: extendConversation(req.Conversation, req.Prompt, response),
		Metadata:     map[string]any{"error_type": "no_executor"},
	}
}

const configureHint = "Please configure the system with proper tool access."

func noExecutorResponse(prompt, role string) string {
	lower := strings.ToLower(prompt)
	var intent string
	switch {
	case containsAny(lower, "file", "read", "open", "list"):
		intent = "work with files"
	case containsAny(lower, "artifact", "generated", "created"):
		intent = "work with artifacts"
	case containsAny(lower, "research", "search", "find"):
		intent = "research something"
	default:
		return "I'm " + role + " that can help with various tasks. " +
			"However, I need an AgentExecutor with tool access to perform most tasks. " + configureHint
	}
	return "I understand you want to " + intent + ". However, I need an " +
		"AgentExecutor with tool access to do that. " + configureHint
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
