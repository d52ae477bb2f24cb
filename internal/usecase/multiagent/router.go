package multiagent

import (
	"fmt"
	"strings"

	"hedwig/internal/domain"
)

// Agent names the keyword heuristic prefers.
const (
	codeSpecialist     = "SWEAgent"
	researchSpecialist = "ResearchAgent"
	generalAgent       = "GeneralAgent"
)

const (
	routingTurns      = 3
	routingContentMax = 150
)

var (
	codeWords     = []string{"code", "script", "program", "function", "class", "bug", "debug"}
	researchWords = []string{"research", "search", "find", "investigate", "analyze", "study"}

	// replyPrefixes are stripped from a routing engine reply, in order.
	replyPrefixes = []string{"Selected Agent:", "Agent:", "I choose:", "The best agent is:"}
)

// buildRoutingContext describes the candidate agents, recent conversation
// and already-tried agents for the routing engine.
func buildRoutingContext(available []domain.Agent, conversation []domain.Message, excluded []string) string {
	rule := strings.Repeat("=", 50)
	lines := []string{"Available Specialist Agents:", rule}
	for _, a := range available {
		d := a.Descriptor()
		lines = append(lines, "\n**"+d.Name+"**", "Purpose: "+d.Purpose)
		if len(d.Capabilities) > 0 {
			lines = append(lines, "Capabilities: "+strings.Join(d.Capabilities, ", "))
		}
		if len(d.Examples) > 0 {
			lines = append(lines, "Example tasks:")
			for i, ex := range d.Examples {
				lines = append(lines, fmt.Sprintf("  %d. %s", i+1, ex))
			}
		}
	}

	if len(conversation) > 0 {
		lines = append(lines, "\n"+rule, "Recent Conversation Context:")
		for _, m := range domain.LastMessages(conversation, routingTurns) {
			content := m.Content
			if len(content) > routingContentMax {
				content = domain.Clip(content, routingContentMax) + "..."
			}
			lines = append(lines, strings.ToUpper(m.Role)+": "+content)
		}
	}

	if len(excluded) > 0 {
		lines = append(lines, "\n"+rule, "Note: The following agents have already been tried and failed:")
		for _, name := range excluded {
			lines = append(lines, "- "+name)
		}
		lines = append(lines, "Please choose a different agent.")
	}
	return strings.Join(lines, "\n")
}

// buildRoutingPrompt is the fixed template sent to the routing engine.
func buildRoutingPrompt(routingContext, prompt string) string {
	return fmt.Sprintf(`You are a task dispatcher that routes user requests to the most appropriate specialist agent.

%s

User Request: "%s"

IMPORTANT: Respond with ONLY the agent name that is best suited for this task. Choose from the available agents listed above.

Selected Agent:`, routingContext, prompt)
}

// cleanAgentReply reduces a routing engine reply to a bare agent name: the
// first line, with known boilerplate prefixes removed.
func cleanAgentReply(reply string) string {
	name := strings.TrimSpace(reply)
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	for _, prefix := range replyPrefixes {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			name = strings.TrimSpace(rest)
		}
	}
	return strings.Trim(name, "*`\"'. ")
}

// heuristicRoute picks an agent from keywords in the prompt. Specialists
// are only chosen when they are still available.
func heuristicRoute(prompt string, available []domain.Agent) string {
	lower := strings.ToLower(prompt)
	has := func(name string) bool {
		for _, a := range available {
			if a.Name() == name {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny(lower, codeWords) && has(codeSpecialist):
		return codeSpecialist
	case containsAny(lower, researchWords) && has(researchSpecialist):
		return researchSpecialist
	case has(generalAgent):
		return generalAgent
	}
	return available[0].Name()
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
