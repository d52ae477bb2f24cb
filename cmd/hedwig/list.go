package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools and their static risk tiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfgPath, stdStreams())
		if err != nil {
			return err
		}
		defer a.Close()

		t := newTable("Tool", "Risk", "Description")
		for _, tl := range a.tools.List() {
			t.Row(tl.Name(), tl.RiskTier().String(), truncate(tl.Description(), 70))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered agents and what they are for",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfgPath, stdStreams())
		if err != nil {
			return err
		}
		defer a.Close()

		t := newTable("Agent", "Purpose", "Capabilities")
		for _, name := range a.dispatcher.Agents() {
			agent, ok := a.dispatcher.Agent(name)
			if !ok {
				continue
			}
			d := agent.Descriptor()
			t.Row(d.Name, truncate(d.Purpose, 60), strings.Join(d.Capabilities, ", "))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		fmt.Fprintf(out, "reasoning engine: %s\n", a.engineName())
		return nil
	},
}
