// Package naming provides ast rules about identifier naming.
package naming

import (
	"context"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// ModuleNamesLowerSnakeID is the rule id reported for badly named modules.
const ModuleNamesLowerSnakeID = "module_names_lower_snake"

func init() {
	lint.Register(lint.Builtin{
		Name:        ModuleNamesLowerSnakeID,
		Description: "Module names must use lower_snake_case.",
		Stages:      []core.Stage{core.StageAST},
		StageRules:  map[core.Stage][]string{core.StageAST: {ModuleNamesLowerSnakeID}},
		New:         func() lint.Rule { return lint.RuleFunc(checkModuleNames) },
	})
}

func checkModuleNames(_ context.Context, req *lint.Request) ([]core.Violation, error) {
	ast, err := req.AST()
	if err != nil {
		return nil, err
	}

	var out []core.Violation
	for _, decl := range ast.Decls {
		if decl.Kind != "module" || decl.Loc == nil {
			continue
		}
		if isLowerSnake(decl.Name) {
			continue
		}
		out = append(out, core.Violation{
			RuleID:   ModuleNamesLowerSnakeID,
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("%s must use lower_snake_case", decl.Name),
			Location: *decl.Loc,
		})
	}
	return out, nil
}

// isLowerSnake reports whether name starts with a lower-case letter and
// contains only letters, digits and underscores.
func isLowerSnake(name string) bool {
	first, _ := utf8.DecodeRuneInString(name)
	if name == "" || !unicode.IsLower(first) {
		return false
	}
	for _, r := range name {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
