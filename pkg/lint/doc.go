// Package lint defines the contract between the rule host and the rules it
// runs.
//
// # Rules
//
// A Rule inspects one Request and returns zero or more violations:
//
//	type Rule interface {
//		Check(ctx context.Context, req *Request) ([]core.Violation, error)
//	}
//
// A returned error (or a panic) is a rule failure. The host decides what a
// failure does to the session; rules never see other rules' results.
//
// # Requests
//
// A Request carries the stage, the file path, the raw stage payload and the
// caller's rule selection. Typed views decode the payload lazily:
//
//	text, err := req.Text()     // raw_text, pp_text
//	defs, err := req.Defines()  // pp_text
//	idx, err := req.CST()       // cst; nil when the payload carries no tree
//	ast, err := req.AST()       // ast
//
// Each view is decoded at most once per request. Rules that derive their own
// tables share them through the request's Scratch:
//
//	table, err := lint.Memo(req.Scratch(), "format.text", buildTable)
//
// Scratch entries live exactly as long as the Request. Nothing is carried
// from one request to the next.
//
// # Builtin Rule Sources
//
// Compiled-in rules are registered from init() functions and addressed by
// the host as "builtin:<name>":
//
//	func init() {
//		lint.Register(lint.Builtin{
//			Name:   "format.no_tabs",
//			Stages: []core.Stage{core.StageRawText},
//			New:    func() lint.Rule { return lint.RuleFunc(checkNoTabs) },
//		})
//	}
//
// Import the rules package to register the bundled set:
//
//	import _ "github.com/leapstack-labs/rulehost/pkg/lint/rules"
//
// # Overrides
//
// Config holds driver-side overrides (disabled ids, severity changes). The
// host never applies them; drivers call Config.Apply on the aggregated list.
package lint
