package cst

import "github.com/leapstack-labs/rulehost/pkg/linemap"

// Index provides lookups over an IR. It is read-only after NewIndex and safe
// to share between rules handling the same request.
type Index struct {
	ir         *IR
	kindMap    map[string]int
	tokKindMap map[string]int
	byID       map[int]*Node
	children   map[int][]int
	lines      *linemap.LineMap
}

// NewIndex builds the lookup tables for ir in a single pass over its nodes.
// A nil ir yields an empty index.
func NewIndex(ir *IR) *Index {
	if ir == nil {
		ir = &IR{}
	}

	idx := &Index{
		ir:         ir,
		kindMap:    make(map[string]int, len(ir.KindTable)),
		tokKindMap: make(map[string]int, len(ir.TokKindTable)+len(ir.TokKindMap)),
		byID:       make(map[int]*Node, len(ir.Nodes)),
		children:   make(map[int][]int, len(ir.Nodes)),
	}

	// First occurrence wins for duplicated names.
	for i, name := range ir.KindTable {
		if _, ok := idx.kindMap[name]; !ok {
			idx.kindMap[name] = i
		}
	}
	for i, name := range ir.TokKindTable {
		if _, ok := idx.tokKindMap[name]; !ok {
			idx.tokKindMap[name] = i
		}
	}
	for name, id := range ir.TokKindMap {
		idx.tokKindMap[name] = id
	}

	for i := range ir.Nodes {
		n := &ir.Nodes[i]
		idx.byID[n.ID] = n
	}

	// A node's explicit children list wins; nodes without one get the
	// children whose parent field names them.
	for i := range ir.Nodes {
		n := &ir.Nodes[i]
		if n.Parent == nil {
			continue
		}
		if p, ok := idx.byID[*n.Parent]; ok && p.Children != nil {
			continue
		}
		idx.children[*n.Parent] = append(idx.children[*n.Parent], n.ID)
	}
	for i := range ir.Nodes {
		n := &ir.Nodes[i]
		if n.Children != nil {
			idx.children[n.ID] = n.Children
		}
	}

	size := -1
	if text := ir.Text(); text != "" {
		size = len(text)
	}
	if len(ir.LineStarts) > 0 {
		idx.lines = linemap.FromStarts(ir.LineStarts, size)
	} else {
		idx.lines = linemap.New(ir.Text())
	}

	return idx
}

// IR returns the underlying payload.
func (x *Index) IR() *IR {
	return x.ir
}

// Text returns the text token offsets refer to.
func (x *Index) Text() string {
	return x.ir.Text()
}

// Nodes returns all nodes in payload order.
func (x *Index) Nodes() []Node {
	return x.ir.Nodes
}

// Tokens returns all tokens in payload order.
func (x *Index) Tokens() []Token {
	return x.ir.Tokens
}

// KindID resolves a node kind name to its index, or -1 if unknown.
func (x *Index) KindID(name string) int {
	if id, ok := x.kindMap[name]; ok {
		return id
	}
	return -1
}

// TokID resolves a token kind name to its index, or -1 if unknown.
func (x *Index) TokID(name string) int {
	if id, ok := x.tokKindMap[name]; ok {
		return id
	}
	return -1
}

// KindName returns the name of a node kind index, or "" when out of range.
func (x *Index) KindName(kind int) string {
	if kind < 0 || kind >= len(x.ir.KindTable) {
		return ""
	}
	return x.ir.KindTable[kind]
}

// TokKindName returns the name of a token kind index, or "" when out of range.
func (x *Index) TokKindName(kind int) string {
	if kind < 0 || kind >= len(x.ir.TokKindTable) {
		return ""
	}
	return x.ir.TokKindTable[kind]
}

// Node looks a node up by id.
func (x *Index) Node(id int) (*Node, bool) {
	n, ok := x.byID[id]
	return n, ok
}

// ChildIDs returns the child ids of a node in payload order.
func (x *Index) ChildIDs(id int) []int {
	return x.children[id]
}

// Children returns the child nodes of a node. Ids that do not resolve are skipped.
func (x *Index) Children(id int) []*Node {
	ids := x.children[id]
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(ids))
	for _, cid := range ids {
		if n, ok := x.byID[cid]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Parent returns the parent of n, if any.
func (x *Index) Parent(n *Node) (*Node, bool) {
	if n == nil || n.Parent == nil {
		return nil, false
	}
	return x.Node(*n.Parent)
}

// OfKind returns all nodes of the named kind in payload order.
// An unknown kind yields an empty result.
func (x *Index) OfKind(name string) []*Node {
	k := x.KindID(name)
	if k < 0 {
		return nil
	}
	return x.OfKindID(k)
}

// OfKindID returns all nodes whose kind index equals kind, in payload order.
func (x *Index) OfKindID(kind int) []*Node {
	if kind < 0 {
		return nil
	}
	var out []*Node
	for i := range x.ir.Nodes {
		if x.ir.Nodes[i].Kind == kind {
			out = append(out, &x.ir.Nodes[i])
		}
	}
	return out
}

// TokensIn returns the tokens spanned by n, inclusive of both bounds.
// It returns nil when a bound is missing, inverted, or outside the token array.
func (x *Index) TokensIn(n *Node) []Token {
	if n == nil {
		return nil
	}
	first, last, ok := n.TokenBounds()
	if !ok || first < 0 || last >= len(x.ir.Tokens) {
		return nil
	}
	return x.ir.Tokens[first : last+1]
}

// NodeSpan returns the byte span covered by the node's tokens.
func (x *Index) NodeSpan(n *Node) (start, end int, ok bool) {
	toks := x.TokensIn(n)
	if len(toks) == 0 {
		return 0, 0, false
	}
	return toks[0].Start, toks[len(toks)-1].End, true
}

// TokenText returns the source text of a token, or "" if its span is not
// inside the payload text.
func (x *Index) TokenText(t Token) string {
	text := x.ir.Text()
	if t.Start < 0 || t.End > len(text) || t.Start > t.End {
		return ""
	}
	return text[t.Start:t.End]
}

// Loc converts a byte span to a location using the payload's line starts.
func (x *Index) Loc(start, end int) linemap.Location {
	return x.lines.Loc(start, end)
}

// TokenLoc returns the location of a single token.
func (x *Index) TokenLoc(t Token) linemap.Location {
	return x.lines.Loc(t.Start, t.End)
}

// Walk visits id and its descendants depth-first in child order.
// Returning false from fn skips the node's children.
func (x *Index) Walk(id int, fn func(n *Node) bool) {
	n, ok := x.byID[id]
	if !ok {
		return
	}
	seen := make(map[int]bool)
	x.walk(n, fn, seen)
}

func (x *Index) walk(n *Node, fn func(n *Node) bool, seen map[int]bool) {
	if seen[n.ID] {
		return
	}
	seen[n.ID] = true
	if !fn(n) {
		return
	}
	for _, child := range x.Children(n.ID) {
		x.walk(child, fn, seen)
	}
}
