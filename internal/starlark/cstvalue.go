package starlark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/rulehost/pkg/cst"
)

// indexValue exposes a *cst.Index to scripts. Node and token dicts handed
// out are frozen and cached, so repeated queries return the same values.
type indexValue struct {
	idx    *cst.Index
	nodes  map[int]*starlark.Dict
	tokens map[int]*starlark.Dict
}

var _ starlark.HasAttrs = (*indexValue)(nil)

func newIndexValue(idx *cst.Index) *indexValue {
	return &indexValue{
		idx:    idx,
		nodes:  make(map[int]*starlark.Dict),
		tokens: make(map[int]*starlark.Dict),
	}
}

func (v *indexValue) String() string        { return fmt.Sprintf("<cst_index %d nodes>", len(v.idx.Nodes())) }
func (v *indexValue) Type() string          { return "cst_index" }
func (v *indexValue) Freeze()               {}
func (v *indexValue) Truth() starlark.Bool  { return starlark.True }
func (v *indexValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: cst_index") }

var indexMethods = map[string]func(v *indexValue, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error){
	"kind_id":       (*indexValue).kindID,
	"tok_id":        (*indexValue).tokID,
	"kind_name":     (*indexValue).kindName,
	"tok_kind_name": (*indexValue).tokKindName,
	"node":          (*indexValue).node,
	"children":      (*indexValue).children,
	"of_kind":       (*indexValue).ofKind,
	"tokens_in":     (*indexValue).tokensIn,
	"token_text":    (*indexValue).tokenText,
	"loc":           (*indexValue).loc,
}

// Attr implements starlark.HasAttrs.
func (v *indexValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "text":
		return starlark.String(v.idx.Text()), nil
	case "line_starts":
		return GoToStarlark(v.idx.IR().LineStarts)
	}
	m, ok := indexMethods[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return m(v, b, args, kwargs)
	}), nil
}

// AttrNames implements starlark.HasAttrs.
func (v *indexValue) AttrNames() []string {
	names := []string{"text", "line_starts"}
	for name := range indexMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (v *indexValue) kindID(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	return starlark.MakeInt(v.idx.KindID(name)), nil
}

func (v *indexValue) tokID(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	return starlark.MakeInt(v.idx.TokID(name)), nil
}

func (v *indexValue) kindName(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var kind int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &kind); err != nil {
		return nil, err
	}
	return starlark.String(v.idx.KindName(kind)), nil
}

func (v *indexValue) tokKindName(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var kind int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &kind); err != nil {
		return nil, err
	}
	return starlark.String(v.idx.TokKindName(kind)), nil
}

func (v *indexValue) node(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &id); err != nil {
		return nil, err
	}
	n, ok := v.idx.Node(id)
	if !ok {
		return starlark.None, nil
	}
	return v.nodeDict(n)
}

func (v *indexValue) children(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ref starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &ref); err != nil {
		return nil, err
	}
	id, err := nodeID(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return v.nodeList(v.idx.Children(id))
}

func (v *indexValue) ofKind(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var kind starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &kind); err != nil {
		return nil, err
	}
	if name, ok := starlark.AsString(kind); ok {
		return v.nodeList(v.idx.OfKind(name))
	}
	k, err := ToInt(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return v.nodeList(v.idx.OfKindID(k))
}

func (v *indexValue) tokensIn(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ref starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &ref); err != nil {
		return nil, err
	}
	id, err := nodeID(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	n, ok := v.idx.Node(id)
	if !ok {
		return starlark.NewList(nil), nil
	}
	toks := v.idx.TokensIn(n)
	first, _, _ := n.TokenBounds()
	list := make([]starlark.Value, len(toks))
	for i, t := range toks {
		list[i] = v.tokenDict(first+i, t)
	}
	return starlark.NewList(list), nil
}

func (v *indexValue) tokenText(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var i int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &i); err != nil {
		return nil, err
	}
	toks := v.idx.Tokens()
	if i < 0 || i >= len(toks) {
		return starlark.String(""), nil
	}
	return starlark.String(v.idx.TokenText(toks[i])), nil
}

func (v *indexValue) loc(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var start, end int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &start, &end); err != nil {
		return nil, err
	}
	return locationValue(v.idx.Loc(start, end)), nil
}

func (v *indexValue) nodeList(nodes []*cst.Node) (starlark.Value, error) {
	list := make([]starlark.Value, 0, len(nodes))
	for _, n := range nodes {
		d, err := v.nodeDict(n)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return starlark.NewList(list), nil
}

func (v *indexValue) nodeDict(n *cst.Node) (*starlark.Dict, error) {
	if d, ok := v.nodes[n.ID]; ok {
		return d, nil
	}

	fields, err := GoToStarlark(n.Fields)
	if err != nil {
		return nil, fmt.Errorf("node %d fields: %w", n.ID, err)
	}
	if n.Fields == nil {
		fields = starlark.NewDict(0)
	}

	d := starlark.NewDict(10)
	_ = d.SetKey(starlark.String("id"), starlark.MakeInt(n.ID))
	_ = d.SetKey(starlark.String("kind"), starlark.MakeInt(n.Kind))
	_ = d.SetKey(starlark.String("kind_name"), starlark.String(v.idx.KindName(n.Kind)))
	_ = d.SetKey(starlark.String("start"), starlark.MakeInt(n.Start))
	_ = d.SetKey(starlark.String("end"), starlark.MakeInt(n.End))
	_ = d.SetKey(starlark.String("parent"), optionalInt(n.Parent))
	_ = d.SetKey(starlark.String("first_token"), optionalInt(n.FirstToken))
	_ = d.SetKey(starlark.String("last_token"), optionalInt(n.LastToken))
	_ = d.SetKey(starlark.String("fields"), fields)
	d.Freeze()

	v.nodes[n.ID] = d
	return d, nil
}

func (v *indexValue) tokenDict(i int, t cst.Token) *starlark.Dict {
	if d, ok := v.tokens[i]; ok {
		return d
	}
	d := starlark.NewDict(5)
	_ = d.SetKey(starlark.String("index"), starlark.MakeInt(i))
	_ = d.SetKey(starlark.String("kind"), starlark.MakeInt(t.Kind))
	_ = d.SetKey(starlark.String("kind_name"), starlark.String(v.idx.TokKindName(t.Kind)))
	_ = d.SetKey(starlark.String("start"), starlark.MakeInt(t.Start))
	_ = d.SetKey(starlark.String("end"), starlark.MakeInt(t.End))
	d.Freeze()
	v.tokens[i] = d
	return d
}

func optionalInt(p *int) starlark.Value {
	if p == nil {
		return starlark.None
	}
	return starlark.MakeInt(*p)
}

// nodeID accepts either a node id or a node dict.
func nodeID(ref starlark.Value) (int, error) {
	if d, ok := ref.(*starlark.Dict); ok {
		idVal, found, err := d.Get(starlark.String("id"))
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, fmt.Errorf("node dict has no id")
		}
		ref = idVal
	}
	return ToInt(ref)
}

// decodeIR converts a Starlark CST payload dict into an IR.
func decodeIR(v starlark.Value) (*cst.IR, error) {
	goVal, err := ToGo(v)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(goVal)
	if err != nil {
		return nil, err
	}
	var ir cst.IR
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&ir); err != nil {
		return nil, fmt.Errorf("decode cst ir: %w", err)
	}
	return &ir, nil
}
