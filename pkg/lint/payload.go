package lint

import "github.com/leapstack-labs/rulehost/pkg/linemap"

// =============================================================================
// Stage payloads
// =============================================================================

// TextPayload is the payload of raw_text and pp_text requests.
type TextPayload struct {
	Text    string   `json:"text"`
	Defines []Define `json:"defines,omitempty"`
}

// Define is one macro definition seen by the preprocessor.
type Define struct {
	Name  string  `json:"name"`
	Value *string `json:"value,omitempty"`
}

// CSTMode values of a cst payload.
const (
	CSTModeInline = "inline"
	CSTModeNone   = "none"
)

// ASTPayload is the payload of ast requests. Every collection may be empty.
type ASTPayload struct {
	SchemaVersion int    `json:"schema_version,omitempty"`
	Decls         []Item `json:"decls"`
	Refs          []Item `json:"refs"`
	Symbols       []Item `json:"symbols"`
	Assigns       []Item `json:"assigns"`
	Ports         []Item `json:"ports"`
	Scopes        []Item `json:"scopes"`
	PPText        string `json:"pp_text,omitempty"`
}

// Item is one declaration, reference, symbol, assignment, port or scope.
// Fields that do not apply to a collection are left empty.
type Item struct {
	Kind       string            `json:"kind,omitempty"`
	Class      string            `json:"class,omitempty"`
	Name       string            `json:"name,omitempty"`
	Module     string            `json:"module,omitempty"`
	Direction  string            `json:"direction,omitempty"`
	ReadCount  int               `json:"read_count,omitempty"`
	WriteCount int               `json:"write_count,omitempty"`
	RefCount   int               `json:"ref_count,omitempty"`
	Used       bool              `json:"used,omitempty"`
	Loc        *linemap.Location `json:"loc,omitempty"`
}
