package core

import "github.com/leapstack-labs/rulehost/pkg/linemap"

// =============================================================================
// Violation
// =============================================================================

// Violation is one issue reported by a rule. Violations are values: once a
// rule returns them they are only copied, never edited, until a driver
// applies its own overrides.
type Violation struct {
	RuleID   string           `json:"rule_id" mapstructure:"rule_id"`
	Severity Severity         `json:"severity" mapstructure:"severity"`
	Message  string           `json:"message" mapstructure:"message"`
	Location linemap.Location `json:"location" mapstructure:"location"`
}

// =============================================================================
// RuleSelection
// =============================================================================

// RuleSelection is the per-request enabled/disabled rule-id filter.
// An empty Enabled list means every rule id is enabled.
type RuleSelection struct {
	Enabled  []string `json:"enabled,omitempty"`
	Disabled []string `json:"disabled,omitempty"`
}

// IsEnabled reports whether id passes the selection.
func (s RuleSelection) IsEnabled(id string) bool {
	if contains(s.Disabled, id) {
		return false
	}
	return len(s.Enabled) == 0 || contains(s.Enabled, id)
}

// AnyEnabled reports whether at least one of ids is in the Enabled list.
// It is true when Enabled is empty.
func (s RuleSelection) AnyEnabled(ids []string) bool {
	if len(s.Enabled) == 0 {
		return true
	}
	for _, id := range ids {
		if contains(s.Enabled, id) {
			return true
		}
	}
	return false
}

// AllDisabled reports whether every id in ids is in the Disabled list.
// An empty ids list is never all-disabled.
func (s RuleSelection) AllDisabled(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !contains(s.Disabled, id) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
