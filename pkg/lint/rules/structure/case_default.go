package structure

import (
	"context"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// CaseHasDefaultID is the rule id reported for case statements without a default.
const CaseHasDefaultID = "case_has_default_branch"

func init() {
	lint.Register(lint.Builtin{
		Name:        CaseHasDefaultID,
		Description: "Case statements must have a default item unless marked unique or priority.",
		Stages:      []core.Stage{core.StageCST},
		StageRules:  map[core.Stage][]string{core.StageCST: {CaseHasDefaultID}},
		New:         func() lint.Rule { return lint.RuleFunc(checkCaseHasDefault) },
	})
}

func checkCaseHasDefault(_ context.Context, req *lint.Request) ([]core.Violation, error) {
	idx, err := req.CST()
	if err != nil || idx == nil {
		return nil, err
	}

	var out []core.Violation
	for _, node := range idx.OfKind("CaseStatement") {
		if node.FieldBool("has_default") || node.FieldBool("is_unique") || node.FieldBool("is_priority") {
			continue
		}
		// The first token anchors the report; nodes without one are skipped.
		if node.FirstToken == nil {
			continue
		}
		first := *node.FirstToken
		if first < 0 || first >= len(idx.Tokens()) {
			continue
		}
		out = append(out, core.Violation{
			RuleID:   CaseHasDefaultID,
			Severity: core.SeverityWarning,
			Message:  "case statement must include a default item",
			Location: idx.TokenLoc(idx.Tokens()[first]),
		})
	}
	return out, nil
}
