package security

import (
	"fmt"
	"sort"
	"strings"

	"hedwig/internal/domain"
)

const maxArgPreview = 100

// FormatConfirmation builds the text shown to a human before an EXECUTE or
// DESTRUCTIVE tool call runs.
func FormatConfirmation(toolName string, tier domain.RiskTier, args map[string]any) string {
	header := "EXECUTION CONFIRMATION REQUIRED"
	warning := "This operation will execute code or system commands."
	if tier == domain.RiskDestructive {
		header = "DESTRUCTIVE OPERATION WARNING"
		warning = "This operation could cause permanent damage to your system."
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Tool: %s\n", toolName)
	fmt.Fprintf(&b, "Risk Level: %s\n", strings.ToUpper(tier.String()))
	fmt.Fprintf(&b, "Arguments: %s\n", ArgumentPreview(args))
	b.WriteString("\n")
	b.WriteString(warning)
	b.WriteString("\n\nDo you want to proceed with this operation?")
	return b.String()
}

// ArgumentPreview renders args as "k=v" pairs in key order, truncated to
// 100 characters.
func ArgumentPreview(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, args[k])
	}
	preview := strings.Join(pairs, ", ")
	if len(preview) > maxArgPreview {
		preview = domain.Clip(preview, maxArgPreview-3) + "..."
	}
	return preview
}
