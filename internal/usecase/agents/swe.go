package agents

import (
	"log/slog"
	"strings"

	"hedwig/internal/domain"
)

// SWEAgentName is the routing name of the software engineering agent.
const SWEAgentName = "SWEAgent"

// SWETools are the tools the software engineering agent works with.
var SWETools = []string{"file_reader", "file_writer", "list_directory", "python_execute", "shell"}

var sweIndicators = newKeywordMatcher(
	"code", "program", "script", "function", "class", "method",
	"python", "javascript", "java", "cpp", "rust", "go", "golang",
	"write", "create", "generate", "implement", "build",
	"debug", "fix", "refactor", "optimize", "test",
	"algorithm", "api", "database", "frontend", "backend",
	"framework", "library", "package", "module",
	".py", ".js", ".ts", ".java", ".cpp", ".c", ".go", ".rs",
	".html", ".css", ".sql", ".sh", ".json", ".xml", ".yaml",
	"software development", "programming task", "coding problem",
	"software engineering",
)

const swePreamble = `You are SWEAgent, a specialist software engineering assistant.
Write clean, readable code that follows the conventions of its language, include
error handling, and test your work with the execution tools when you can. When
working with existing code, read the files first.

## Current Task:
`

// NewSWEAgent creates the software engineering specialist. It rejects
// prompts that carry no software development indicator.
func NewSWEAgent(exec Executor, log *slog.Logger) *Specialist {
	return newSpecialist(specialistConfig{
		descriptor: domain.AgentDescriptor{
			Name:    SWEAgentName,
			Purpose: "Designs, writes, modifies, and debugs source code in multiple programming languages.",
			Capabilities: []string{
				"code_generation", "code_review", "debugging", "refactoring",
				"documentation", "script_execution", "file_operations",
				"project_setup", "testing", "software_architecture",
			},
			Examples: []string{
				"Write a Python script to parse CSV and output JSON",
				"Debug this JavaScript function that's not working properly",
				"Refactor this code to be more modular and maintainable",
				"Write unit tests for this Python class",
			},
		},
		agentType:  "SWEAgent",
		role:       "a software engineering assistant",
		preamble:   swePreamble,
		tools:      SWETools,
		indicators: sweIndicators,
		rejection:  "task does not involve software development",
		analyze:    analyzeComplexity,
	}, exec, log)
}

// analyzeComplexity estimates how involved a development task is.
func analyzeComplexity(prompt string) map[string]any {
	lower := strings.ToLower(prompt)
	score := 0
	if containsAny(lower, "simple", "basic", "quick", "small", "hello world") {
		score++
	}
	if containsAny(lower, "api", "database", "class", "module", "package") {
		score += 2
	}
	if containsAny(lower, "system", "architecture", "framework", "full application", "microservice") {
		score += 3
	}

	level := "complex"
	switch {
	case score <= 1:
		level = "simple"
	case score <= 3:
		level = "medium"
	}
	return map[string]any{"complexity_level": level, "complexity_score": score}
}
