// Package decl provides ast rules about declarations and their use.
package decl

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/linemap"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// UnusedNetID is the rule id reported for nets that are never read or written.
const UnusedNetID = "decl.unused.net"

func init() {
	lint.Register(lint.Builtin{
		Name:        UnusedNetID,
		Description: "Declared nets must be read or written.",
		Stages:      []core.Stage{core.StageAST},
		StageRules:  map[core.Stage][]string{core.StageAST: {UnusedNetID}},
		New:         func() lint.Rule { return lint.RuleFunc(checkUnusedNet) },
	})
}

func checkUnusedNet(_ context.Context, req *lint.Request) ([]core.Violation, error) {
	ast, err := req.AST()
	if err != nil {
		return nil, err
	}

	var out []core.Violation
	for _, sym := range ast.Symbols {
		if sym.Class != "net" || sym.ReadCount != 0 || sym.WriteCount != 0 {
			continue
		}
		loc := linemap.Location{Line: 1, Col: 1, EndLine: 1, EndCol: 1}
		if sym.Loc != nil {
			loc = *sym.Loc
		}
		out = append(out, core.Violation{
			RuleID:   UnusedNetID,
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("unused net %s.%s", sym.Module, sym.Name),
			Location: loc,
		})
	}
	return out, nil
}
