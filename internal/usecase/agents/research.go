package agents

import (
	"log/slog"
	"strings"

	"hedwig/internal/domain"
)

// ResearchAgentName is the routing name of the research agent.
const ResearchAgentName = "ResearchAgent"

// ResearchTools are the tools the research agent works with.
var ResearchTools = []string{"file_reader", "list_directory", "file_writer", "shell"}

var researchIndicators = newKeywordMatcher(
	"research", "find", "gather", "collect", "investigate",
	"study", "analyze", "analyse", "examine", "explore", "discover",
	"information", "data", "facts", "details", "statistics",
	"trends", "patterns", "insights", "findings",
	"what", "how", "why", "when", "where", "which",
	"report", "summary", "summarize", "analysis", "overview", "brief",
	"document", "conclusions",
	"compare", "versus", "vs", "difference", "similar",
	"best", "top", "ranking", "options",
	"market", "industry", "business", "competitor", "pricing", "strategy",
	"tell me about",
)

const researchPreamble = `You are ResearchAgent, a specialist research assistant.
Define the scope of the question, gather information with the available tools,
distinguish facts from speculation, and present findings in a clear structure
with the key insights first.

## Research Request:
`

// NewResearchAgent creates the research specialist. It rejects prompts that
// carry no research indicator.
func NewResearchAgent(exec Executor, log *slog.Logger) *Specialist {
	return newSpecialist(specialistConfig{
		descriptor: domain.AgentDescriptor{
			Name:    ResearchAgentName,
			Purpose: "Conducts comprehensive research, gathers information, and creates detailed reports and summaries.",
			Capabilities: []string{
				"web_research", "information_gathering", "data_analysis",
				"content_summarization", "fact_checking", "trend_analysis",
				"competitive_analysis", "market_research", "report_generation",
			},
			Examples: []string{
				"Research the latest developments in artificial intelligence and create a summary report",
				"Find information about market trends in renewable energy",
				"Gather information about Python web frameworks and compare their features",
			},
		},
		agentType:  "ResearchAgent",
		role:       "a research assistant",
		preamble:   researchPreamble,
		tools:      ResearchTools,
		indicators: researchIndicators,
		rejection:  "task does not involve research or information gathering",
		analyze:    classifyResearch,
	}, exec, log)
}

// classifyResearch picks the research types and output format a prompt asks for.
func classifyResearch(prompt string) map[string]any {
	lower := strings.ToLower(prompt)
	var types []string
	for _, rt := range []struct {
		name  string
		words []string
	}{
		{"market_research", []string{"market", "industry", "business", "competitor"}},
		{"trend_analysis", []string{"trend", "pattern", "change", "evolution"}},
		{"comparative_analysis", []string{"compare", "versus", "difference"}},
		{"academic_research", []string{"academic", "study", "paper", "scientific"}},
		{"technology_research", []string{"technology", "tech", "software", "innovation"}},
		{"current_events", []string{"news", "current", "recent", "latest"}},
	} {
		if containsAny(lower, rt.words...) {
			types = append(types, rt.name)
		}
	}
	if len(types) == 0 {
		types = []string{"general_research"}
	}

	format := "report"
	switch {
	case containsAny(lower, "summary", "brief", "overview"):
		format = "summary"
	case containsAny(lower, "report", "analysis", "detailed"):
		format = "detailed_report"
	case containsAny(lower, "table", "comparison", "compare"):
		format = "comparative_table"
	}
	return map[string]any{"research_types": types, "output_format": format}
}
