package starlark

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rulehost/internal/testutil"
	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/linemap"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

func writeScript(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func rawRequest(t *testing.T, text string) *lint.Request {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"text": text})
	require.NoError(t, err)
	return lint.NewRequest(core.StageRawText, "a.sv", payload, core.RuleSelection{Enabled: []string{"demo.a"}})
}

func TestLoadScript_Declarations(t *testing.T) {
	path := writeScript(t, "decl.star", `
STAGES = ["raw_text", "ast"]
STAGE_RULES = {"ast": ["x.unused"], "raw_text": ["x.tabs", "x.len"]}

def check(req):
    return []
`)

	s, err := LoadScript(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	assert.Equal(t, []core.Stage{core.StageRawText, core.StageAST}, s.Stages())
	assert.Equal(t, map[core.Stage][]string{
		core.StageAST:     {"x.unused"},
		core.StageRawText: {"x.tabs", "x.len"},
	}, s.StageRules())
}

func TestLoadScript_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"no check", "X = 1\n", "must define a check(req) function"},
		{"check not callable", "check = 3\n", "must define a check(req) function"},
		{"syntax error", "def check(req)\n    return []\n", "Starlark execution error"},
		{"runtime error at load", "fail(\"nope\")\ndef check(req):\n    return []\n", "nope"},
		{"bad stage", "STAGES = [\"tokens\"]\ndef check(req):\n    return []\n", "STAGES"},
		{"bad stage rules", "STAGE_RULES = [\"ast\"]\ndef check(req):\n    return []\n", "STAGE_RULES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScript(writeScript(t, "bad.star", tt.src), nil)
			require.Error(t, err)

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Contains(t, loadErr.Message, tt.wantMsg)
		})
	}

	_, err := LoadScript(filepath.Join(t.TempDir(), "missing.star"), nil)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "failed to read file")
}

func TestScript_Check(t *testing.T) {
	path := writeScript(t, "demo.star", `
def check(req):
    if req["stage"] != "raw_text":
        return []
    text = req["payload"].get("text", "")
    i = text.find("x")
    if i < 0:
        return None
    return [{
        "rule_id": "demo.a",
        "severity": "error",
        "message": "found x in " + req["path"] + " enabled=" + ",".join(req["rules"]["enabled"]),
        "location": loc.byte_span_to_loc(i, i + 1, loc.line_starts(text)),
    }]
`)
	s, err := LoadScript(path, nil)
	require.NoError(t, err)

	vs, err := s.Check(context.Background(), rawRequest(t, "é\nx"))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, core.Violation{
		RuleID:   "demo.a",
		Severity: core.SeverityError,
		Message:  "found x in a.sv enabled=demo.a",
		Location: linemap.Location{Line: 2, Col: 1, EndLine: 2, EndCol: 2},
	}, vs[0])

	vs, err = s.Check(context.Background(), rawRequest(t, "none here"))
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestScript_CheckErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"fail", `fail("rule exploded")`, "rule exploded"},
		{"not a list", `return {"rule_id": "x"}`, "want list"},
		{"item not dict", `return ["x"]`, "want dict"},
		{"missing rule id", `return [{"message": "m"}]`, "missing rule_id"},
		{"bad severity", `return [{"rule_id": "x", "severity": "fatal"}]`, "fatal"},
		{"bad location", `return [{"rule_id": "x", "location": {"line": "one"}}]`, "violation 0"},
		{"zero column", `return [{"rule_id": "x", "location": {"line": 3, "col": 0}}]`, "not 1-based"},
		{"negative end", `return [{"rule_id": "x", "location": {"line": 1, "col": 1, "end_line": -1, "end_col": 2}}]`, "not 1-based"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := CompileScript("err.star", []byte("def check(req):\n    "+tt.body+"\n"), nil)
			require.NoError(t, err)

			_, err = s.Check(context.Background(), rawRequest(t, ""))
			require.Error(t, err)

			var evalErr *EvalError
			require.ErrorAs(t, err, &evalErr)
			assert.Equal(t, "err.star", evalErr.File)
			assert.Contains(t, evalErr.Message, tt.wantMsg)
		})
	}
}

func TestScript_DefaultSeverityIsWarning(t *testing.T) {
	s, err := CompileScript("sev.star", []byte(`def check(req):
    return [{"rule_id": "x", "message": "m"}]
`), nil)
	require.NoError(t, err)

	vs, err := s.Check(context.Background(), rawRequest(t, ""))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, core.SeverityWarning, vs[0].Severity)
}

func TestScript_LocationDefaults(t *testing.T) {
	tests := []struct {
		name string
		item string
		want linemap.Location
	}{
		{"missing location", `{"rule_id": "x"}`, linemap.Location{Line: 1, Col: 1, EndLine: 1, EndCol: 1}},
		{"empty location", `{"rule_id": "x", "location": {}}`, linemap.Location{Line: 1, Col: 1, EndLine: 1, EndCol: 1}},
		{"start only", `{"rule_id": "x", "location": {"line": 4, "col": 2}}`, linemap.Location{Line: 4, Col: 2, EndLine: 4, EndCol: 2}},
		{"full span", `{"rule_id": "x", "location": {"line": 4, "col": 2, "end_line": 5, "end_col": 1}}`, linemap.Location{Line: 4, Col: 2, EndLine: 5, EndCol: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := CompileScript("loc.star", []byte("def check(req):\n    return ["+tt.item+"]\n"), nil)
			require.NoError(t, err)

			vs, err := s.Check(context.Background(), rawRequest(t, ""))
			require.NoError(t, err)
			require.Len(t, vs, 1)
			assert.Equal(t, tt.want, vs[0].Location)
		})
	}
}

func TestScript_RequestDictSharedWithinRequest(t *testing.T) {
	writer, err := CompileScript("writer.star", []byte(`def check(req):
    req["__memo"] = req.get("__memo", 0) + 1
    return []
`), nil)
	require.NoError(t, err)

	reader, err := CompileScript("reader.star", []byte(`def check(req):
    return [{"rule_id": "memo", "message": str(req.get("__memo", 0))}]
`), nil)
	require.NoError(t, err)

	ctx := context.Background()
	first := rawRequest(t, "")
	_, err = writer.Check(ctx, first)
	require.NoError(t, err)
	vs, err := reader.Check(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "1", vs[0].Message)

	// A new request starts with a fresh dict.
	vs, err = reader.Check(ctx, rawRequest(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "0", vs[0].Message)
}

func TestScript_CSTIndexFromRequest(t *testing.T) {
	s, err := CompileScript("case.star", []byte(`def check(req):
    idx = cst_index()
    if idx == None:
        return []
    out = []
    for n in idx.of_kind("CaseStatement"):
        tok = idx.tokens_in(n)[0]
        out.append({"rule_id": "case", "message": "m", "location": idx.loc(tok["start"], tok["end"])})
    return out
`), nil)
	require.NoError(t, err)

	payload := `{"mode":"inline","cst_ir":{
		"kind_table":["CaseStatement"],
		"line_starts":[0,3],
		"source_text":"ab\ncase",
		"tokens":[{"kind":0,"start":3,"end":7}],
		"nodes":[{"id":0,"kind":0,"first_token":0,"last_token":0}]
	}}`
	req := lint.NewRequest(core.StageCST, "", json.RawMessage(payload), core.RuleSelection{})

	vs, err := s.Check(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, linemap.Location{Line: 2, Col: 1, EndLine: 2, EndCol: 5}, vs[0].Location)

	none := lint.NewRequest(core.StageCST, "", json.RawMessage(`{"mode":"none"}`), core.RuleSelection{})
	vs, err = s.Check(context.Background(), none)
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestScript_PrintGoesToLogger(t *testing.T) {
	logger, buf := testutil.NewBufferLogger()
	pool := NewThreadPool(1, logger)

	s, err := CompileScript("print.star", []byte("def check(req):\n    print(\"hello from script\")\n    return []\n"), pool)
	require.NoError(t, err)

	_, err = s.Check(context.Background(), rawRequest(t, ""))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello from script")
}

func TestScript_CanceledContext(t *testing.T) {
	s, err := CompileScript("ok.star", []byte("def check(req):\n    return []\n"), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Check(ctx, rawRequest(t, ""))
	assert.ErrorIs(t, err, context.Canceled)
}
