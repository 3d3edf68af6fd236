// Package structure provides cst rules about statement structure.
//
// Rules in this package:
//   - case_has_default_branch: case statements without a default item
package structure
