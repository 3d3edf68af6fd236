// Package rules bundles the compiled-in rule sources.
//
// Rules are organized by category:
//   - format: text layout (line length, ASCII, tabs, trailing whitespace, final newline)
//   - macro: preprocessor macro naming
//   - structure: CST statement structure
//   - naming: AST identifier naming
//   - decl: AST declaration usage
//
// To register all rules with the global lint registry, import this package
// with a blank identifier:
//
//	import _ "github.com/leapstack-labs/rulehost/pkg/lint/rules"
//
// Individual rule categories can also be imported:
//
//	import _ "github.com/leapstack-labs/rulehost/pkg/lint/rules/format"
package rules
