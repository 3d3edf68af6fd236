package rules

// Import all rule subpackages to register them with the global registry.
// This file triggers all init() functions in the rule packages.
import (
	_ "github.com/leapstack-labs/rulehost/pkg/lint/rules/decl"
	_ "github.com/leapstack-labs/rulehost/pkg/lint/rules/format"
	_ "github.com/leapstack-labs/rulehost/pkg/lint/rules/macro"
	_ "github.com/leapstack-labs/rulehost/pkg/lint/rules/naming"
	_ "github.com/leapstack-labs/rulehost/pkg/lint/rules/structure"
)
