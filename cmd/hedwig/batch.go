package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hedwig/internal/domain"
)

var (
	batchOrdered bool
	batchStats   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run one task per line of a file concurrently",
	Long: `Batch reads one prompt per line (blank lines and lines starting with #
are skipped) and runs the tasks on the worker pool. Use - to read stdin.
Results are printed as they finish, or in input order with --ordered.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchOrdered, "ordered", false, "print results in input order once all tasks finish")
	batchCmd.Flags().BoolVar(&batchStats, "stats", false, "print routing and denial statistics afterwards")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	streams := stdStreams()
	streams.out = cmd.OutOrStdout()

	var src io.Reader
	if args[0] == "-" {
		src = cmd.InOrStdin()
		streams.interactive = false // stdin carries prompts, not answers
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open batch file: %w", err)
		}
		defer f.Close()
		src = f
	}
	prompts, err := readPrompts(src)
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		return fmt.Errorf("no prompts in %s", args[0])
	}

	a, err := newApp(ctx, cfgPath, streams)
	if err != nil {
		return err
	}
	defer a.Close()

	reqs := make([]*domain.TaskRequest, len(prompts))
	for i, p := range prompts {
		reqs[i] = domain.NewTaskRequest(p, nil, uuid.NewString())
	}

	out := cmd.OutOrStdout()
	pool := a.newPool()
	failed := 0
	if batchOrdered {
		results, err := pool.RunAll(ctx, reqs)
		pool.Close()
		for i, res := range results {
			if res == nil {
				continue
			}
			fmt.Fprintf(out, "%s %s\n", headerStyle.Render(fmt.Sprintf("[%d]", i+1)), prompts[i])
			printResult(out, res)
			if !res.Success {
				failed++
			}
		}
		if err != nil {
			return err
		}
	} else {
		byJob := make(map[string]string, len(reqs))
		for _, req := range reqs {
			id, err := pool.Submit(ctx, req)
			if err != nil {
				return err
			}
			byJob[id] = req.Prompt
		}
		go pool.Close()
		for c := range pool.Results() {
			fmt.Fprintf(out, "%s %s\n", headerStyle.Render("["+c.JobID+"]"), byJob[c.JobID])
			printResult(out, c.Result)
			if !c.Result.Success {
				failed++
			}
		}
	}

	fmt.Fprintf(out, "%d tasks: %d succeeded, %d failed\n", len(reqs), len(reqs)-failed, failed)
	if batchStats {
		printStats(out, a)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(reqs))
	}
	return nil
}

// readPrompts returns the non-blank, non-comment lines of r.
func readPrompts(r io.Reader) ([]string, error) {
	var prompts []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return prompts, nil
}
