package domain

import "time"

// Routing methods recorded on a RoutingDecision.
const (
	RouteMethodLLM       = "llm"
	RouteMethodHeuristic = "heuristic"
	RouteMethodSingle    = "single"
)

// RoutingDecision records which agent was chosen for one attempt.
type RoutingDecision struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	PromptExcerpt string    `json:"prompt_excerpt"`
	ChosenAgent   string    `json:"chosen_agent"`
	Available     []string  `json:"available"`
	Excluded      []string  `json:"excluded"`
	Attempt       int       `json:"attempt"`
	Method        string    `json:"method"`
}

// Denial reasons recorded by the Security Gateway.
const (
	DenyNoCallback    = "no confirmation callback"
	DenyUserDenied    = "user denied"
	DenyCallbackError = "callback error"
)

// Denial records a tool call refused by the Security Gateway.
type Denial struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	ToolName  string         `json:"tool_name"`
	RiskTier  RiskTier       `json:"risk_tier"`
	Reason    string         `json:"reason"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Execution log step types.
const (
	StepLLMResponse        = "llm_response"
	StepToolExecution      = "tool_execution"
	StepToolExecutionError = "tool_execution_error"
)

// ExecutionStep is one entry of the Agent Executor's execution log.
type ExecutionStep struct {
	Iteration int            `json:"iteration"`
	StepType  string         `json:"step_type"`
	Data      map[string]any `json:"data"`
}
