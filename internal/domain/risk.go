package domain

import (
	"fmt"
	"strings"
)

// RiskTier is the ordered severity of a tool call's potential impact.
// The zero value is RiskReadOnly.
type RiskTier int

const (
	RiskReadOnly RiskTier = iota
	RiskWrite
	RiskExecute
	RiskDestructive
)

var riskTierNames = [...]string{
	RiskReadOnly:    "read_only",
	RiskWrite:       "write",
	RiskExecute:     "execute",
	RiskDestructive: "destructive",
}

func (r RiskTier) String() string {
	if r < RiskReadOnly || r > RiskDestructive {
		return fmt.Sprintf("risk_tier(%d)", int(r))
	}
	return riskTierNames[r]
}

// RequiresConfirmation reports whether calls at this tier need a human decision.
func (r RiskTier) RequiresConfirmation() bool {
	return r >= RiskExecute
}

// MarshalText implements encoding.TextMarshaler so tiers render by name in
// JSON, YAML and log output.
func (r RiskTier) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RiskTier) UnmarshalText(text []byte) error {
	tier, err := ParseRiskTier(string(text))
	if err != nil {
		return err
	}
	*r = tier
	return nil
}

// ParseRiskTier parses a tier name. Upper-case names and dashes are accepted.
func ParseRiskTier(s string) (RiskTier, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range riskTierNames {
		if name == norm {
			return RiskTier(i), nil
		}
	}
	return RiskReadOnly, NewDomainError("ParseRiskTier", ErrInvalidInput, fmt.Sprintf("unknown risk tier %q", s))
}

// MaxTier returns the highest of the given tiers.
func MaxTier(first RiskTier, rest ...RiskTier) RiskTier {
	max := first
	for _, t := range rest {
		if t > max {
			max = t
		}
	}
	return max
}
