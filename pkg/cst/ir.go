// Package cst indexes the concrete-syntax-tree payload shipped with cst-stage
// requests.
//
// The payload is a flat array of nodes and tokens plus name tables. An Index
// is built once per payload and answers id lookups, child adjacency, kind
// queries and token-span queries without re-scanning the arrays.
package cst

// IR is the CST intermediate representation carried by a cst-stage request.
// Every field is optional on the wire; absent fields decode to empty values.
type IR struct {
	Schema       int            `json:"schema,omitempty"`
	File         string         `json:"file,omitempty"`
	Nodes        []Node         `json:"nodes"`
	Tokens       []Token        `json:"tokens"`
	KindTable    []string       `json:"kind_table"`
	TokKindTable []string       `json:"tok_kind_table"`
	TokKindMap   map[string]int `json:"tok_kind_map,omitempty"`
	LineStarts   []int          `json:"line_starts"`
	PPText       string         `json:"pp_text,omitempty"`
	SourceText   string         `json:"source_text,omitempty"`
}

// Text returns the text token offsets refer to: the source text when
// present, otherwise the preprocessed text.
func (ir *IR) Text() string {
	if ir.SourceText != "" {
		return ir.SourceText
	}
	return ir.PPText
}

// Node is one CST node. Token bounds are inclusive token indices.
type Node struct {
	ID         int            `json:"id"`
	Kind       int            `json:"kind"`
	Start      int            `json:"start,omitempty"`
	End        int            `json:"end,omitempty"`
	Parent     *int           `json:"parent,omitempty"`
	FirstToken *int           `json:"first_token,omitempty"`
	LastToken  *int           `json:"last_token,omitempty"`
	Children   []int          `json:"children,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// TokenBounds returns the inclusive token range of the node.
// ok is false when either bound is missing or the range is inverted.
func (n *Node) TokenBounds() (first, last int, ok bool) {
	if n.FirstToken == nil || n.LastToken == nil {
		return 0, 0, false
	}
	first, last = *n.FirstToken, *n.LastToken
	if first > last {
		return 0, 0, false
	}
	return first, last, true
}

// Field returns a structured field value, or nil.
func (n *Node) Field(name string) any {
	if n.Fields == nil {
		return nil
	}
	return n.Fields[name]
}

// FieldBool reports whether a structured field is exactly true.
func (n *Node) FieldBool(name string) bool {
	b, ok := n.Field(name).(bool)
	return ok && b
}

// Token is one lexical token; Start and End are byte offsets.
type Token struct {
	ID    int `json:"id,omitempty"`
	Kind  int `json:"kind"`
	Start int `json:"start"`
	End   int `json:"end"`
}
