package format_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/linemap"
	"github.com/leapstack-labs/rulehost/pkg/lint"
	"github.com/leapstack-labs/rulehost/pkg/lint/rules/format"
)

func rawText(t *testing.T, text string) *lint.Request {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"text": text})
	require.NoError(t, err)
	return lint.NewRequest(core.StageRawText, "a.sv", payload, core.RuleSelection{})
}

// Helper to run one builtin against a request
func runRule(t *testing.T, name string, req *lint.Request) []core.Violation {
	t.Helper()
	b, ok := lint.LookupBuiltin(name)
	require.True(t, ok, "builtin %s not registered", name)
	vs, err := b.New().Check(context.Background(), req)
	require.NoError(t, err)
	return vs
}

func TestLineLength(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []linemap.Location
		message string
	}{
		{
			name: "short lines",
			text: "module a;\nendmodule\n",
		},
		{
			name: "exactly max",
			text: strings.Repeat("a", format.MaxColumns) + "\n",
		},
		{
			name:    "one over",
			text:    strings.Repeat("a", format.MaxColumns+1) + "\n",
			want:    []linemap.Location{{Line: 1, Col: 101, EndLine: 1, EndCol: 102}},
			message: "line exceeds 100 columns (101)",
		},
		{
			name:    "second line, crlf",
			text:    "x\r\n" + strings.Repeat("b", 105) + "\r\n",
			want:    []linemap.Location{{Line: 2, Col: 101, EndLine: 2, EndCol: 106}},
			message: "line exceeds 100 columns (105)",
		},
		{
			name:    "wide runes count double",
			text:    strings.Repeat("界", 51),
			want:    []linemap.Location{{Line: 1, Col: 151, EndLine: 1, EndCol: 154}},
			message: "line exceeds 100 columns (102)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := runRule(t, "format.line_length", rawText(t, tt.text))
			require.Len(t, vs, len(tt.want))
			for i, v := range vs {
				assert.Equal(t, "format.line_length", v.RuleID)
				assert.Equal(t, core.SeverityWarning, v.Severity)
				assert.Equal(t, tt.message, v.Message)
				assert.Equal(t, tt.want[i], v.Location)
			}
		})
	}
}

func TestTextRules(t *testing.T) {
	text := "module a;\n\tx = 1; \nend"

	t.Run("no tabs", func(t *testing.T) {
		vs := runRule(t, format.NoTabsID, rawText(t, text))
		require.Len(t, vs, 1)
		assert.Equal(t, linemap.Location{Line: 2, Col: 1, EndLine: 2, EndCol: 2}, vs[0].Location)
	})

	t.Run("trailing whitespace", func(t *testing.T) {
		vs := runRule(t, format.NoTrailingSpaceID, rawText(t, text))
		require.Len(t, vs, 1)
		assert.Equal(t, linemap.Location{Line: 2, Col: 8, EndLine: 2, EndCol: 9}, vs[0].Location)
	})

	t.Run("final newline", func(t *testing.T) {
		vs := runRule(t, format.FinalNewlineID, rawText(t, text))
		require.Len(t, vs, 1)
		assert.Equal(t, "file must end with newline", vs[0].Message)
		assert.Equal(t, linemap.Location{Line: 3, Col: 3, EndLine: 3, EndCol: 4}, vs[0].Location)

		assert.Empty(t, runRule(t, format.FinalNewlineID, rawText(t, text+"\n")))
		assert.Empty(t, runRule(t, format.FinalNewlineID, rawText(t, "")))
	})

	t.Run("ascii only uses byte columns", func(t *testing.T) {
		vs := runRule(t, format.ASCIIOnlyID, rawText(t, "// é x\n"))
		require.Len(t, vs, 1)
		assert.Equal(t, linemap.Location{Line: 1, Col: 4, EndLine: 1, EndCol: 6}, vs[0].Location)
	})
}

func TestTextRules_ShareOneScan(t *testing.T) {
	req := rawText(t, "\tx \n")

	var total int
	for _, id := range []string{format.ASCIIOnlyID, format.NoTabsID, format.NoTrailingSpaceID, format.FinalNewlineID} {
		total += len(runRule(t, id, req))
	}

	assert.Equal(t, 2, total)
	// payload text + scan table
	assert.Equal(t, 2, req.Scratch().Len())
}

func TestTextRules_IgnoreOtherStages(t *testing.T) {
	req := lint.NewRequest(core.StageAST, "", json.RawMessage(`{"text":"\t"}`), core.RuleSelection{})
	assert.Empty(t, runRule(t, format.NoTabsID, req))
	assert.Empty(t, runRule(t, "format.line_length", req))
}
