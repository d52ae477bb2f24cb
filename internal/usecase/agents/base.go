// Package agents provides the specialist handlers the dispatcher routes to.
// Every handler is wrapped by Base, which owns input validation, fault
// containment and the rejection result shape.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"hedwig/internal/domain"
	"hedwig/internal/infra/logger"
	"hedwig/internal/usecase"
)

// Executor runs the reasoning loop on behalf of an agent.
type Executor interface {
	Invoke(ctx context.Context, tc usecase.TaskContext) *usecase.ExecutionOutcome
}

// Handler is the agent-specific part of Run. A returned error, like a
// panic, becomes an AgentExecutionError result.
type Handler func(ctx context.Context, req *domain.TaskRequest) (*domain.TaskResult, error)

// Option configures a Base.
type Option func(*Base)

// WithCanHandle sets the self-exclusion check. The default accepts everything.
func WithCanHandle(fn func(prompt string, conversation []domain.Message) bool) Option {
	return func(b *Base) { b.canHandle = fn }
}

// WithLogger sets the agent's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Base) { b.logger = logger.OrDiscard(l).With("agent", b.descriptor.Name) }
}

// Base implements domain.Agent around a Handler.
type Base struct {
	descriptor domain.AgentDescriptor
	agentType  string
	handle     Handler
	canHandle  func(string, []domain.Message) bool
	logger     *slog.Logger
}

var _ domain.Agent = (*Base)(nil)

// New creates an agent. agentType names the concrete variant and is
// reported in failure metadata.
func New(desc domain.AgentDescriptor, agentType string, h Handler, opts ...Option) (*Base, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, domain.NewDomainError("agents.New", domain.ErrConfiguration, desc.Name+": nil handler")
	}
	b := &Base{
		descriptor: desc,
		agentType:  agentType,
		handle:     h,
		logger:     logger.OrDiscard(nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name returns the unique agent name.
func (b *Base) Name() string { return b.descriptor.Name }

// Descriptor returns the routing descriptor.
func (b *Base) Descriptor() domain.AgentDescriptor { return b.descriptor }

// CanHandle reports whether the agent is willing to take the prompt.
func (b *Base) CanHandle(prompt string, conversation []domain.Message) bool {
	if b.canHandle == nil {
		return true
	}
	return b.canHandle(prompt, conversation)
}

// Run validates the request, runs the handler and converts every internal
// fault into a failed result. It never panics and never returns nil.
func (b *Base) Run(ctx context.Context, req *domain.TaskRequest) (result *domain.TaskResult) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		var conv []domain.Message
		if req != nil {
			conv = req.Conversation
		}
		return &domain.TaskResult{
			Content:      "No task prompt provided",
			ErrorKind:    domain.KindInvalidInput,
			ErrorMessage: "Empty or missing task prompt",
			Conversation: domain.CloneMessages(conv),
			Metadata:     b.metadata(nil),
		}
	}

	b.logger.Info("agent starting task", "thread_id", req.ThreadID)

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("agent panicked", "panic", r, "stack", string(debug.Stack()))
			result = b.failure(req, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := b.handle(ctx, req)
	if err != nil {
		b.logger.Error("agent failed", "error", err)
		return b.failure(req, err)
	}
	if res == nil {
		return b.failure(req, fmt.Errorf("handler returned no result"))
	}
	if res.Conversation == nil {
		res.Conversation = domain.CloneMessages(req.Conversation)
	}
	res.Metadata = b.metadata(res.Metadata)

	b.logger.Info("agent finished task", "success", res.Success, "error_kind", string(res.ErrorKind))
	return res
}

// RejectTask builds the rejection result the retry loop re-routes on.
func (b *Base) RejectTask(reason string, req *domain.TaskRequest) *domain.TaskResult {
	b.logger.Info("agent rejecting task", "reason", reason)
	var conv []domain.Message
	if req != nil {
		conv = req.Conversation
	}
	return &domain.TaskResult{
		Content:      "I cannot handle this task: " + reason,
		ErrorKind:    domain.KindTaskRejected,
		ErrorMessage: fmt.Sprintf("Task rejected by %s: %s", b.Name(), reason),
		Conversation: domain.CloneMessages(conv),
		Metadata: b.metadata(map[string]any{
			domain.MetaCanRetry:   true,
			domain.MetaRejectedBy: b.Name(),
			domain.MetaReason:     reason,
		}),
	}
}

func (b *Base) failure(req *domain.TaskRequest, err error) *domain.TaskResult {
	return &domain.TaskResult{
		Content:      "I encountered an error while processing your request: " + err.Error(),
		ErrorKind:    domain.KindAgentExecutionError,
		ErrorMessage: fmt.Sprintf("Error running agent '%s': %v", b.Name(), err),
		Conversation: domain.CloneMessages(req.Conversation),
		Metadata:     b.metadata(map[string]any{domain.MetaError: err.Error()}),
	}
}

// metadata stamps the agent identity onto m without overwriting handler keys.
func (b *Base) metadata(m map[string]any) map[string]any {
	if m == nil {
		m = make(map[string]any, 2)
	}
	if _, ok := m[domain.MetaAgentName]; !ok {
		m[domain.MetaAgentName] = b.Name()
	}
	if _, ok := m[domain.MetaAgentType]; !ok {
		m[domain.MetaAgentType] = b.agentType
	}
	return m
}
