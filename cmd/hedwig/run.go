package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hedwig/internal/domain"
)

var (
	runThread  string
	runExclude []string
	runJSON    bool
	runStats   bool
	runEvents  bool
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run one task through the orchestrator",
	Long: `Run routes the prompt to an agent, lets it work with the tools the
security gateway allows, and prints the result. A rejected task is re-routed
to another agent up to agent.max_retries times.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringVar(&runThread, "thread", "", "thread ID for correlation (default: random UUID)")
	runCmd.Flags().StringSliceVar(&runExclude, "exclude", nil, "agents never to route this task to")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full result as JSON")
	runCmd.Flags().BoolVar(&runStats, "stats", false, "print routing and denial statistics afterwards")
	runCmd.Flags().BoolVar(&runEvents, "events", false, "print the lifecycle events of the task afterwards")
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	streams := stdStreams()
	streams.out = cmd.OutOrStdout()
	a, err := newApp(ctx, cfgPath, streams)
	if err != nil {
		return err
	}
	defer a.Close()

	thread := runThread
	if thread == "" {
		thread = uuid.NewString()
	}
	req := domain.NewTaskRequest(strings.Join(args, " "), nil, thread)
	req.ExcludedAgents = runExclude

	res := a.orchestrator.Handle(ctx, req)

	out := cmd.OutOrStdout()
	if runJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		printResult(out, res)
	}
	if runEvents {
		printEvents(out, a.bus.Recent(thread))
	}
	if runStats {
		printStats(out, a)
	}

	if !res.Success {
		return fmt.Errorf("task failed (%s)", res.ErrorKind)
	}
	return nil
}
