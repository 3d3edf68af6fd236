// Package core defines the types shared by the rule host, its rules and its
// drivers: analysis stages, severities, violations and rule selections.
//
// The Golden Rule: pkg/core imports ONLY pkg/linemap and stdlib.
// All other packages depend on core, not the reverse.
package core
