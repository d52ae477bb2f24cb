package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"hedwig/internal/domain"
	"hedwig/internal/usecase"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// printResult renders a task result for humans.
func printResult(w io.Writer, res *domain.TaskResult) {
	status := successStyle.Render("✓ success")
	if !res.Success {
		status = failureStyle.Render(fmt.Sprintf("✗ %s", res.ErrorKind))
	}
	agent, _ := res.Metadata["routed_agent"].(string)
	if agent == "" {
		agent, _ = res.Metadata[domain.MetaAgentName].(string)
	}
	meta := []string{status}
	if agent != "" {
		meta = append(meta, "agent "+agent)
	}
	if n, ok := res.Metadata[domain.MetaAttempts].(int); ok {
		meta = append(meta, fmt.Sprintf("attempts %d", n))
	}
	fmt.Fprintln(w, strings.Join(meta, dimStyle.Render(" · ")))
	fmt.Fprintln(w, res.Content)
	if !res.Success && res.ErrorMessage != "" {
		fmt.Fprintln(w, dimStyle.Render(res.ErrorMessage))
	}

	if len(res.Artifacts) > 0 {
		fmt.Fprintln(w, headerStyle.Render("Artifacts"))
		for _, art := range res.Artifacts {
			fmt.Fprintf(w, "  %s  %s %s\n", art.Name, dimStyle.Render(string(art.Type)), art.Path)
		}
		if open, ok := usecase.SelectAutoOpen(res.Artifacts); ok {
			fmt.Fprintf(w, "Open: %s\n", artifactLocation(open))
		}
	}
	fmt.Fprintln(w)
}

func artifactLocation(a domain.Artifact) string {
	if a.Path != "" {
		return a.Path
	}
	return a.Name
}

func printEvents(w io.Writer, events []domain.Event) {
	t := newTable("Time", "Event", "Payload")
	for _, e := range events {
		t.Row(e.Timestamp.Format("15:04:05.000"), string(e.Type), truncate(string(e.Payload), 80))
	}
	fmt.Fprintln(w, t.Render())
}

// printStats renders routing statistics and the denial summary.
func printStats(w io.Writer, a *app) {
	rs := a.dispatcher.Stats()
	fmt.Fprintln(w, headerStyle.Render("Routing"))
	fmt.Fprintf(w, "  decisions %d · retry rate %.2f · average attempt %.2f\n", rs.Total, rs.RetryRate, rs.AverageAttempt)
	if len(rs.AgentsUsed) > 0 {
		t := newTable("Agent", "Routed")
		for _, name := range slices.Sorted(maps.Keys(rs.AgentsUsed)) {
			t.Row(name, fmt.Sprint(rs.AgentsUsed[name]))
		}
		fmt.Fprintln(w, t.Render())
	}

	gs := a.gateway.Stats()
	fmt.Fprintln(w, headerStyle.Render("Denials"))
	fmt.Fprintf(w, "  total %d\n", gs.TotalDenials)
	if gs.TotalDenials > 0 {
		t := newTable("Time", "Tool", "Risk", "Reason")
		for _, d := range a.gateway.Denials() {
			t.Row(d.Timestamp.Format("15:04:05"), d.ToolName, d.RiskTier.String(), d.Reason)
		}
		fmt.Fprintln(w, t.Render())
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return domain.Clip(s, n) + "..."
}
