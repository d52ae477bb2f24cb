package agents

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"hedwig/internal/domain"
)

// GeneralAgentName is the routing name of the general-purpose agent.
const GeneralAgentName = "GeneralAgent"

// specialistPatterns mark prompts that belong with a domain specialist.
var specialistPatterns = []struct {
	category string
	patterns []string
}{
	{"complex code", []string{"refactor entire", "design pattern", "architecture", "microservice"}},
	{"advanced research", []string{"systematic review", "meta-analysis", "academic paper"}},
	{"technical analysis", []string{"performance profiling", "security audit", "penetration test"}},
}

// GeneralStats counts the work a GeneralAgent has done.
type GeneralStats struct {
	TasksCompleted int            `json:"tasks_completed"`
	ToolsUsed      []string       `json:"tools_used"`
	Categories     map[string]int `json:"task_categories"`
	HasExecutor    bool           `json:"has_executor"`
}

// GeneralAgent handles everyday tasks with whatever tools are allowed and
// turns away work that needs a specialist.
type GeneralAgent struct {
	*Base
	exec  Executor
	tools []string

	mu         sync.Mutex
	completed  int
	toolsSeen  map[string]bool
	toolsOrder []string
	categories map[string]int
}

// NewGeneralAgent creates the general-purpose agent. exec may be nil, in
// which case every task gets a ConfigurationError answer. tools is the
// executor allow-list; empty means every registered tool.
func NewGeneralAgent(exec Executor, tools []string, log *slog.Logger) *GeneralAgent {
	g := &GeneralAgent{
		exec:       exec,
		tools:      tools,
		toolsSeen:  make(map[string]bool),
		categories: newCategories(),
	}
	desc := domain.AgentDescriptor{
		Name:    GeneralAgentName,
		Purpose: "Handles diverse general-purpose tasks including file operations, basic research, and task automation.",
		Capabilities: []string{
			"file_operations",
			"document_management",
			"basic_research",
			"artifact_management",
			"task_automation",
			"information_organization",
			"general_problem_solving",
		},
		Examples: []string{
			"List all the PDF files in the current project and summarize their contents",
			"Read the configuration file and explain what each setting does",
			"Create a summary of all the artifacts generated in this conversation",
		},
	}
	base, err := New(desc, "GeneralAgent", g.handle, WithCanHandle(g.canHandle), WithLogger(log))
	if err != nil {
		panic(err) // static descriptor
	}
	g.Base = base
	return g
}

func (g *GeneralAgent) canHandle(prompt string, _ []domain.Message) bool {
	_, specialized := specialistCategory(prompt)
	return !specialized
}

func specialistCategory(prompt string) (string, bool) {
	lower := strings.ToLower(prompt)
	for _, sp := range specialistPatterns {
		if containsAny(lower, sp.patterns...) {
			return sp.category, true
		}
	}
	return "", false
}

func (g *GeneralAgent) handle(ctx context.Context, req *domain.TaskRequest) (*domain.TaskResult, error) {
	if category, ok := specialistCategory(req.Prompt); ok {
		return g.RejectTask("task requires "+category+" better suited for a specialist agent", req), nil
	}
	if g.exec == nil {
		g.logger.Warn("no executor available, providing basic response")
		return noExecutorResult(req, "a general-purpose assistant"), nil
	}

	category := categorize(req.Prompt)
	res := runExecutor(ctx, g.exec, req, execution{
		prompt:   req.Prompt,
		tools:    g.tools,
		metadata: map[string]any{"task_category": category},
	})
	g.record(category, res)
	return res, nil
}

func categorize(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case containsAny(lower, "file", "read", "write", "open", "save"):
		return "file_operations"
	case containsAny(lower, "research", "search", "find", "investigate"):
		return "research"
	case containsAny(lower, "artifact", "generated", "list", "show"):
		return "artifacts"
	default:
		return "general"
	}
}

func newCategories() map[string]int {
	return map[string]int{"file_operations": 0, "research": 0, "artifacts": 0, "general": 0}
}

func (g *GeneralAgent) record(category string, res *domain.TaskResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.categories[category]++
	if !res.Success {
		return
	}
	g.completed++
	used, _ := res.Metadata["tools_used"].([]string)
	for _, name := range used {
		if !g.toolsSeen[name] {
			g.toolsSeen[name] = true
			g.toolsOrder = append(g.toolsOrder, name)
		}
	}
}

// Stats returns a snapshot of the agent's usage counters.
func (g *GeneralAgent) Stats() GeneralStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GeneralStats{
		TasksCompleted: g.completed,
		ToolsUsed:      append([]string(nil), g.toolsOrder...),
		Categories:     maps.Clone(g.categories),
		HasExecutor:    g.exec != nil,
	}
}

// ResetStats clears the usage counters.
func (g *GeneralAgent) ResetStats() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = 0
	g.toolsSeen = make(map[string]bool)
	g.toolsOrder = nil
	g.categories = newCategories()
}
