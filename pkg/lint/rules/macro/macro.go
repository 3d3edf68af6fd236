// Package macro provides raw_text rules about preprocessor macros.
package macro

import (
	"context"
	"fmt"
	"regexp"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/linemap"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// NamesUppercaseID is the rule id reported for lower-case macro names.
const NamesUppercaseID = "macro_names_uppercase"

var (
	defineRe  = regexp.MustCompile("(?m)^[ \\t]*`define[ \\t]+([A-Za-z_][A-Za-z0-9_]*)")
	allCapsRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

func init() {
	lint.Register(lint.Builtin{
		Name:        NamesUppercaseID,
		Description: "`define names must use ALL_CAPS.",
		Stages:      []core.Stage{core.StageRawText},
		StageRules:  map[core.Stage][]string{core.StageRawText: {NamesUppercaseID}},
		New:         func() lint.Rule { return lint.RuleFunc(checkNamesUppercase) },
	})
}

func checkNamesUppercase(_ context.Context, req *lint.Request) ([]core.Violation, error) {
	text, err := req.Text()
	if err != nil || text == "" {
		return nil, err
	}

	var lm *linemap.LineMap
	var out []core.Violation
	for _, m := range defineRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		name := text[start:end]
		if allCapsRe.MatchString(name) {
			continue
		}
		if lm == nil {
			lm = linemap.New(text)
		}
		out = append(out, core.Violation{
			RuleID:   NamesUppercaseID,
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("`define %s should use ALL_CAPS", name),
			Location: lm.Loc(start, end),
		})
	}
	return out, nil
}
