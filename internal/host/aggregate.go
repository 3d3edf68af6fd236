package host

import "github.com/leapstack-labs/rulehost/pkg/core"

// Aggregator concatenates rule outputs in invocation order. It never sorts,
// merges or drops violations.
type Aggregator struct {
	violations []core.Violation
}

// Add appends one rule's output.
func (a *Aggregator) Add(vs []core.Violation) {
	a.violations = append(a.violations, vs...)
}

// Len returns the number of collected violations.
func (a *Aggregator) Len() int {
	return len(a.violations)
}

// Violations returns the collected list; never nil, so it encodes as [].
func (a *Aggregator) Violations() []core.Violation {
	if a.violations == nil {
		return []core.Violation{}
	}
	return a.violations
}
