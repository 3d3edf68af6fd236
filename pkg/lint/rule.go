package lint

import (
	"context"

	"github.com/leapstack-labs/rulehost/pkg/core"
)

// Rule is the interface every rule source implements, whether compiled in or
// loaded from a script.
type Rule interface {
	// Check analyzes one request and returns its violations in report order.
	Check(ctx context.Context, req *Request) ([]core.Violation, error)
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc func(ctx context.Context, req *Request) ([]core.Violation, error)

// Check calls f(ctx, req).
func (f RuleFunc) Check(ctx context.Context, req *Request) ([]core.Violation, error) {
	return f(ctx, req)
}

// Builtin describes a compiled-in rule source.
type Builtin struct {
	// Name is the source name; the host addresses it as "builtin:<Name>".
	Name string

	// Description is a one-line summary for listings.
	Description string

	// Stages are the default stages the source runs under; empty means all.
	Stages []core.Stage

	// StageRules are the default rule ids the source may emit per stage.
	StageRules map[core.Stage][]string

	// New constructs the rule. It is called once per host session.
	New func() Rule
}

// RuleIDs returns every rule id the builtin declares, deduplicated, in
// stage order.
func (b Builtin) RuleIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, st := range core.AllStages() {
		for _, id := range b.StageRules[st] {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
