package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hedwig/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, reasoning engine, sandbox and tool dependencies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDoctor(cmd.OutOrStdout(), cfgPath)
	},
}

// runDoctor executes all health checks and reports results.
func runDoctor(w io.Writer, cfgPath string) error {
	// Some checks work without a config.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Reasoning engine", Fn: checkEngineKey},
		{Name: "Engine connectivity", Fn: checkEngineConnectivity},
		{Name: "Sandbox", Fn: checkSandbox},
		{Name: "Tool dependencies", Fn: checkToolDependencies},
		{Name: "Confirmation", Fn: checkConfirmation},
	}

	fmt.Fprintln(w, "hedwig doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile returns a check that verifies the config file loads. A
// missing file is only a warning: the defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Fix " + cfgPath + " or point --config at a valid file",
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, using defaults", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkEngineKey verifies the reasoning engine is configured with credentials.
func checkEngineKey(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	if cfg.LLM.Provider == "" {
		return CheckResult{
			Status:  StatusWarn,
			Message: "no reasoning engine configured, agents return placeholder responses",
			Fix:     "Set llm.provider and llm.api_key (or HEDWIG_LLM_PROVIDER / HEDWIG_LLM_API_KEY)",
		}
	}
	if cfg.LLM.APIKey == "" && !isLocalURL(cfg.LLM.BaseURL) {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("provider %q has no API key", cfg.LLM.Provider),
			Fix:     "Set HEDWIG_LLM_API_KEY or llm.api_key (encrypt it with 'hedwig config encrypt')",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("provider %s, model %s", cfg.LLM.Provider, cfg.LLM.Model),
	}
}

func isLocalURL(u string) bool {
	return strings.Contains(u, "localhost") || strings.Contains(u, "127.0.0.1")
}

// checkEngineConnectivity tests if the reasoning engine endpoint is reachable.
func checkEngineConnectivity(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	if cfg.LLM.Provider == "" {
		return CheckResult{Status: StatusPass, Message: "skipped, no reasoning engine configured"}
	}

	endpoint := engineEndpoint(cfg.LLM)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot reach %s: %v", endpoint, err),
			Fix:     "Check llm.base_url, your network connection and firewall settings",
		}
	}
	resp.Body.Close()

	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s reachable (latency: %dms)", endpoint, latency.Milliseconds()),
	}
}

// engineEndpoint returns a URL that answers without a completion request.
func engineEndpoint(cfg config.LLMConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/") + "/models"
	}
	return "https://api.openai.com/v1/models"
}

// checkSandbox verifies the sandbox root exists and is writable.
func checkSandbox(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}

	absDir, err := filepath.Abs(cfg.Tools.SandboxRoot)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("cannot resolve sandbox root: %v", err)}
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("sandbox root %s: %v", absDir, err),
			Fix:     fmt.Sprintf("Create the directory: mkdir -p %s", absDir),
		}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("%s exists but is not a directory", absDir)}
	}

	testFile := filepath.Join(absDir, ".hedwig-doctor")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("sandbox root %s is read-only, file_writer will fail: %v", absDir, err),
		}
	}
	os.Remove(testFile)

	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("sandbox root %s writable", absDir)}
}

// checkToolDependencies looks up the binaries the reference tools run.
func checkToolDependencies(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}

	var missing []string
	if _, err := exec.LookPath(cfg.Tools.PythonBinary); err != nil {
		missing = append(missing, cfg.Tools.PythonBinary+" (needed for python_execute)")
	}
	for _, name := range cfg.Tools.AllowedCommands {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("missing binaries: %s", strings.Join(missing, ", ")),
			Fix:     "Install them or drop them from tools.allowed_commands",
		}
	}
	return CheckResult{Status: StatusPass, Message: "all tool binaries found"}
}

// checkConfirmation explains what happens to EXECUTE and DESTRUCTIVE calls.
func checkConfirmation(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}
	switch cfg.Security.ConfirmMode {
	case config.ConfirmPrompt:
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("risky tool calls are confirmed on the terminal (timeout %s)", cfg.Security.ConfirmationTimeout),
		}
	case config.ConfirmPolicy:
		return CheckResult{
			Status: StatusPass,
			Message: fmt.Sprintf("risky tool calls follow policy: %d auto-approved, %d always denied",
				len(cfg.Security.AutoApprove), len(cfg.Security.AlwaysDeny)),
		}
	default:
		return CheckResult{
			Status:  StatusWarn,
			Message: "no confirmation configured, shell and python_execute calls that need approval are denied",
			Fix:     "Set security.confirm_mode to prompt or policy",
		}
	}
}
