package starlark

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// evalExpr evaluates expr with the predeclared helpers in scope.
func evalExpr(t *testing.T, expr string) starlark.Value {
	t.Helper()
	thread := &starlark.Thread{Name: "test"}
	v, err := starlark.Eval(thread, "test.star", expr, Predeclared()) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	require.NoError(t, err, expr)
	return v
}

func TestLocModule(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"line starts", `loc.line_starts("a\nbc\n")`, "[0, 2, 5]"},
		{"byte offset", `loc.byte_offset("aé😀b", 3)`, "7"},
		{"byte offset kwargs", `loc.byte_offset(text="aé", index=9)`, "3"},
		{
			"byte span",
			`loc.byte_span_to_loc(4, 7, [0, 4, 9])`,
			`{"line": 2, "col": 1, "end_line": 2, "end_col": 4}`,
		},
		{
			"span from characters",
			`loc.span_to_loc("// é\nwire x;", 10, 11)`,
			`{"line": 2, "col": 6, "end_line": 2, "end_col": 7}`,
		},
		{
			"point with starts",
			`loc.point_to_loc("// é\nwire x;", 10, 1, [0, 6])`,
			`{"line": 2, "col": 6, "end_line": 2, "end_col": 7}`,
		},
		{
			"point default length",
			`loc.point_to_loc("abc", 1)`,
			`{"line": 1, "col": 2, "end_line": 1, "end_col": 3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalExpr(t, tt.expr).String())
		})
	}
}

func TestLocModule_BadLineStarts(t *testing.T) {
	thread := &starlark.Thread{Name: "test"}
	_, err := starlark.Eval(thread, "test.star", `loc.byte_span_to_loc(0, 1, ["x"])`, Predeclared()) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	assert.Error(t, err)
}

const indexIR = `{
	"kind_table": ["Root", "CaseStatement", "CaseItem"],
	"tok_kind_table": ["Keyword", "Ident"],
	"line_starts": [0, 5],
	"source_text": "case\nx",
	"tokens": [
		{"kind": 0, "start": 0, "end": 4},
		{"kind": 1, "start": 5, "end": 6}
	],
	"nodes": [
		{"id": 0, "kind": 0},
		{"id": 1, "kind": 1, "parent": 0, "first_token": 0, "last_token": 1, "fields": {"has_default": False}},
		{"id": 2, "kind": 2, "parent": 1, "first_token": 1, "last_token": 1},
		{"id": 3, "kind": 1, "parent": 0}
	]
}`

func TestCSTIndexValue(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"type", `type(cst_index(IR))`, `"cst_index"`},
		{"kind id", `cst_index(IR).kind_id("CaseItem")`, "2"},
		{"unknown kind id", `cst_index(IR).kind_id("Nope")`, "-1"},
		{"tok id", `cst_index(IR).tok_id("Ident")`, "1"},
		{"kind name out of range", `cst_index(IR).kind_name(7)`, `""`},
		{"of kind by name", `[n["id"] for n in cst_index(IR).of_kind("CaseStatement")]`, "[1, 3]"},
		{"of kind by id", `[n["id"] for n in cst_index(IR).of_kind(2)]`, "[2]"},
		{"of unknown kind", `cst_index(IR).of_kind("Nope")`, "[]"},
		{"children", `[n["id"] for n in cst_index(IR).children(0)]`, "[1, 3]"},
		{"node fields", `cst_index(IR).node(1)["fields"]["has_default"]`, "False"},
		{"missing node", `cst_index(IR).node(99)`, "None"},
		{"tokens in", `[t["kind_name"] for t in cst_index(IR).tokens_in(1)]`, `["Keyword", "Ident"]`},
		{"tokens in dict", `[t["index"] for t in cst_index(IR).tokens_in(cst_index(IR).node(2))]`, "[1]"},
		{"tokens in missing bounds", `cst_index(IR).tokens_in(3)`, "[]"},
		{"token text", `cst_index(IR).token_text(0)`, `"case"`},
		{"loc", `cst_index(IR).loc(5, 6)`, `{"line": 2, "col": 1, "end_line": 2, "end_col": 2}`},
		{"text attr", `cst_index(IR).text`, `"case\nx"`},
		{"no request", `cst_index()`, "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thread := &starlark.Thread{Name: "test"}
			predeclared := Predeclared()
			ir, err := starlark.Eval(thread, "ir.star", indexIR, nil) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
			require.NoError(t, err)
			predeclared["IR"] = ir

			v, err := starlark.Eval(thread, "test.star", tt.expr, predeclared) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
			require.NoError(t, err, tt.expr)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestCSTIndexValue_NodeDictsAreFrozen(t *testing.T) {
	thread := &starlark.Thread{Name: "test"}
	predeclared := Predeclared()
	ir, err := starlark.Eval(thread, "ir.star", indexIR, nil) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	require.NoError(t, err)
	predeclared["IR"] = ir

	_, err = starlark.ExecFile(thread, "mutate.star", "n = cst_index(IR).node(1)\nn[\"id\"] = 5\n", predeclared) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	assert.Error(t, err)
}

func TestCSTIndexValue_IntegerFields(t *testing.T) {
	s, err := CompileScript("width.star", []byte(`def check(req):
    ir = req["payload"]["cst_ir"]
    views = [
        cst_index().node(0)["fields"],
        cst_index(ir).node(0)["fields"],
        ir["nodes"][0]["fields"],
    ]
    out = []
    for fields in views:
        for i in range(fields["width"]):
            out.append({"rule_id": "demo.width", "message": "%s %d" % (type(fields["scale"]), i)})
    return out
`), nil)
	require.NoError(t, err)

	payload := `{"cst_ir": {"kind_table": ["Vector"], "nodes": [{"id": 0, "kind": 0, "fields": {"width": 2, "scale": 1.5}}]}}`
	req := lint.NewRequest(core.StageCST, "v.sv", json.RawMessage(payload), core.RuleSelection{})

	vs, err := s.Check(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, vs, 6)
	for _, v := range vs {
		assert.Contains(t, v.Message, "float ")
	}
	assert.Equal(t, "float 1", vs[5].Message)
}

func TestLocModule_ByteSpanRequiresLineStarts(t *testing.T) {
	thread := &starlark.Thread{Name: "test"}
	_, err := starlark.Eval(thread, "test.star", `loc.byte_span_to_loc(4, 7)`, Predeclared()) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line_starts")

	_, err = starlark.Eval(thread, "test.star", `loc.byte_span_to_loc(4, 7, None)`, Predeclared()) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line_starts")
}
