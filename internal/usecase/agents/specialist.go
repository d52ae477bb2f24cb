package agents

import (
	"context"
	"log/slog"

	"hedwig/internal/domain"
)

type specialistConfig struct {
	descriptor domain.AgentDescriptor
	agentType  string
	role       string // used in the no-executor answer
	preamble   string
	tools      []string
	indicators keywordMatcher
	rejection  string
	analyze    func(prompt string) map[string]any
}

// Specialist is a domain agent that only takes prompts matching its
// indicator keywords and runs the executor with a fixed tool allow-list.
type Specialist struct {
	*Base
	cfg  specialistConfig
	exec Executor
}

func newSpecialist(cfg specialistConfig, exec Executor, log *slog.Logger) *Specialist {
	s := &Specialist{cfg: cfg, exec: exec}
	base, err := New(cfg.descriptor, cfg.agentType, s.handle, WithCanHandle(s.canHandle), WithLogger(log))
	if err != nil {
		panic(err) // static descriptor
	}
	s.Base = base
	return s
}

// Tools returns the specialist's tool allow-list.
func (s *Specialist) Tools() []string { return append([]string(nil), s.cfg.tools...) }

func (s *Specialist) canHandle(prompt string, _ []domain.Message) bool {
	return s.cfg.indicators.Match(prompt)
}

func (s *Specialist) handle(ctx context.Context, req *domain.TaskRequest) (*domain.TaskResult, error) {
	if !s.canHandle(req.Prompt, req.Conversation) {
		return s.RejectTask(s.cfg.rejection, req), nil
	}
	if s.exec == nil {
		return noExecutorResult(req, s.cfg.role), nil
	}

	analysis := s.cfg.analyze(req.Prompt)
	s.logger.Debug("task analysis", "analysis", analysis)

	return runExecutor(ctx, s.exec, req, execution{
		prompt: s.cfg.preamble + req.Prompt,
		tools:  s.cfg.tools,
		metadata: map[string]any{
			"task_analysis":   analysis,
			"preferred_tools": s.cfg.tools,
		},
	}), nil
}
