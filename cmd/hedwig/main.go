// Command hedwig routes tasks to specialist agents that reason with tools
// behind a security gateway.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "hedwig",
	Short: "Task orchestration core",
	Long: `hedwig routes each task to the best suited agent, lets the agent reason
with tools behind a risk-tiered security gateway, and re-routes the task when
an agent rejects it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to the YAML config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
}

func defaultConfigPath() string {
	if p := os.Getenv("HEDWIG_CONFIG"); p != "" {
		return p
	}
	return "hedwig.yaml"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
