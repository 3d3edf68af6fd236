package lint

import (
	"sort"

	"github.com/leapstack-labs/rulehost/pkg/core"
)

// Config holds driver-side rule overrides.
type Config struct {
	// DisabledRules contains rule IDs to drop from results
	DisabledRules map[string]bool

	// SeverityOverrides changes the reported severity of rules
	SeverityOverrides map[string]core.Severity
}

// NewConfig creates a default configuration with all rules enabled.
func NewConfig() *Config {
	return &Config{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]core.Severity),
	}
}

// IsDisabled returns true if the rule's violations should be dropped.
func (c *Config) IsDisabled(ruleID string) bool {
	if c == nil {
		return false
	}
	return c.DisabledRules[ruleID]
}

// GetSeverity returns the severity for a rule, applying any override.
func (c *Config) GetSeverity(ruleID string, defaultSeverity core.Severity) core.Severity {
	if c != nil {
		if sev, ok := c.SeverityOverrides[ruleID]; ok {
			return sev
		}
	}
	return defaultSeverity
}

// Disable disables a rule by ID.
func (c *Config) Disable(ruleID string) *Config {
	c.DisabledRules[ruleID] = true
	return c
}

// SetSeverity overrides the severity for a rule.
func (c *Config) SetSeverity(ruleID string, severity core.Severity) *Config {
	c.SeverityOverrides[ruleID] = severity
	return c
}

// Apply returns a copy of vs without disabled rules and with severity
// overrides applied. Order is preserved.
func (c *Config) Apply(vs []core.Violation) []core.Violation {
	out := make([]core.Violation, 0, len(vs))
	for _, v := range vs {
		if c.IsDisabled(v.RuleID) {
			continue
		}
		v.Severity = c.GetSeverity(v.RuleID, v.Severity)
		out = append(out, v)
	}
	return out
}

// Selection converts the disabled set into a request-side rule selection so
// the host can skip sources whose ids are all disabled.
func (c *Config) Selection() core.RuleSelection {
	var sel core.RuleSelection
	if c == nil {
		return sel
	}
	for id, off := range c.DisabledRules {
		if off {
			sel.Disabled = append(sel.Disabled, id)
		}
	}
	sort.Strings(sel.Disabled)
	return sel
}
