// Package registry loads rule sources and selects the ones eligible for a
// request.
//
// A Registry is built once from the init message and is read-only
// afterwards. Selection keeps registration order.
package registry

import (
	"slices"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// Definition is one loaded rule source.
type Definition struct {
	// Source is the ScriptSpec path: "builtin:<name>" or a script path.
	Source string

	// Stages the source runs under; empty means every stage.
	Stages []core.Stage

	// StageRules are the rule ids the source may emit, per stage.
	StageRules map[core.Stage][]string

	Rule lint.Rule
}

// Eligible reports whether the definition runs for a request of the given
// stage and rule selection.
func (d *Definition) Eligible(stage core.Stage, sel core.RuleSelection) bool {
	if len(d.Stages) > 0 && !slices.Contains(d.Stages, stage) {
		return false
	}
	ids, declared := d.StageRules[stage]
	if !declared {
		return true
	}
	return sel.AnyEnabled(ids) && !sel.AllDisabled(ids)
}

// Registry is the ordered, immutable set of loaded definitions.
type Registry struct {
	defs []*Definition
}

// New creates a registry from definitions in registration order.
func New(defs ...*Definition) *Registry {
	return &Registry{defs: slices.Clone(defs)}
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []*Definition {
	return slices.Clone(r.defs)
}

// Select returns the definitions eligible for a request, in registration order.
func (r *Registry) Select(stage core.Stage, sel core.RuleSelection) []*Definition {
	var out []*Definition
	for _, d := range r.defs {
		if d.Eligible(stage, sel) {
			out = append(out, d)
		}
	}
	return out
}
