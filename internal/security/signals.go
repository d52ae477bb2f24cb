package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"hedwig/internal/domain"
)

// signal is one escalation rule: when pattern matches the inspected text,
// the call's effective tier is raised to at least tier.
type signal struct {
	name    string
	pattern *regexp.Regexp
	tier    domain.RiskTier
}

// signalGroup applies a set of signals to the arguments of matching tools.
type signalGroup struct {
	name string
	// appliesTo reports whether the group inspects calls to the named tool
	// (already lower-cased).
	appliesTo func(tool string) bool
	// inputs extracts the texts to scan. A group with nil inputs escalates
	// on the tool name alone.
	inputs  func(args map[string]any) []string
	signals []signal
	// floor is the tier applied when inputs is nil.
	floor domain.RiskTier
}

func ci(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

// destructiveCommandSignals flag shell command lines that can cause
// irreversible damage.
var destructiveCommandSignals = []signal{
	{"recursive or forced rm", ci(`\brm\b.*-[a-z]*[rf]`), domain.RiskDestructive},
	{"mv into path", ci(`\bmv\b.*/`), domain.RiskDestructive},
	{"dd", ci(`\bdd\b`), domain.RiskDestructive},
	{"mkfs", ci(`\bmkfs\b`), domain.RiskDestructive},
	{"fdisk", ci(`\bfdisk\b`), domain.RiskDestructive},
	{"chmod 777", ci(`\bchmod\b.*777`), domain.RiskDestructive},
	{"chown root", ci(`\bchown\b.*root`), domain.RiskDestructive},
	{"redirect into system dir", ci(`>.*/(etc|bin|usr|sys)/`), domain.RiskDestructive},
	{"append into system dir", ci(`>>.*/(etc|bin|usr|sys)/`), domain.RiskDestructive},
	{"curl delete or put", ci(`\bcurl\b.*-X\s+(DELETE|PUT)`), domain.RiskDestructive},
	{"wget post", ci(`\bwget\b.*--post-data`), domain.RiskDestructive},
	{"killall", ci(`\bkillall\b`), domain.RiskDestructive},
	{"kill -9", ci(`\bkill\b.*-9`), domain.RiskDestructive},
	{"tar extract to root", ci(`\btar\b.*-C\s*/`), domain.RiskDestructive},
	{"unzip into path", ci(`\bunzip\b.*/`), domain.RiskDestructive},
}

// systemPathSignal flags paths that point into operating system directories.
var systemPathSignal = signal{
	name:    "system path",
	pattern: regexp.MustCompile(`^\s*/(etc|bin|usr|sys|proc|dev|root)(/|$)`),
	tier:    domain.RiskExecute,
}

var signalGroups = []signalGroup{
	{
		name: "shell",
		appliesTo: func(tool string) bool {
			return containsAny(tool, "shell", "bash", "command", "terminal")
		},
		inputs:  commandLines,
		signals: destructiveCommandSignals,
	},
	{
		name: "file",
		appliesTo: func(tool string) bool {
			return strings.Contains(tool, "file")
		},
		inputs:  pathArguments,
		signals: []signal{systemPathSignal},
	},
	{
		name: "code execution",
		appliesTo: func(tool string) bool {
			return strings.Contains(tool, "python") && strings.Contains(tool, "execute")
		},
		floor: domain.RiskExecute,
	},
}

// assess returns the effective tier and the names of the signals that fired.
// The result never falls below the tool's static tier.
func assess(toolName string, static domain.RiskTier, args map[string]any) (domain.RiskTier, []string) {
	tier := static
	var fired []string
	name := strings.ToLower(toolName)

	for _, group := range signalGroups {
		if !group.appliesTo(name) {
			continue
		}
		if group.inputs == nil {
			fired = append(fired, group.name)
			tier = domain.MaxTier(tier, group.floor)
			continue
		}
		for _, text := range group.inputs(args) {
			for _, sig := range group.signals {
				if sig.pattern.MatchString(text) {
					fired = append(fired, group.name+": "+sig.name)
					tier = domain.MaxTier(tier, sig.tier)
				}
			}
		}
	}
	return tier, fired
}

// commandLines returns the command text of a shell-like call: the "command"
// (or "cmd") argument, joined with any "args" list.
func commandLines(args map[string]any) []string {
	var out []string
	for _, key := range []string{"command", "cmd"} {
		v, ok := args[key]
		if !ok {
			continue
		}
		line := strings.TrimSpace(stringify(v))
		if extra, ok := args["args"].([]any); ok && len(extra) > 0 {
			parts := make([]string, len(extra))
			for i, a := range extra {
				parts[i] = stringify(a)
			}
			line += " " + strings.Join(parts, " ")
		}
		out = append(out, line)
	}
	return out
}

// pathArguments returns the values of arguments whose name contains "path".
// Absolute values are cleaned so "..", "." and repeated separators cannot
// hide a system directory.
func pathArguments(args map[string]any) []string {
	var out []string
	for k, v := range args {
		if !strings.Contains(strings.ToLower(k), "path") {
			continue
		}
		p := strings.TrimSpace(stringify(v))
		if filepath.IsAbs(p) {
			p = filepath.Clean(p)
		}
		out = append(out, p)
	}
	return out
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
