// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/rulehost/internal/cli/output"
)

// Workspace file names created by SetupTestWorkspace.
const (
	WorkspaceConfig = "rulehost.yaml"
	WorkspaceScript = "todo.star"
	WorkspaceSource = "top.sv"
)

// workspaceScript reports every line containing TODO as a raw_text violation.
const workspaceScript = `STAGES = ["raw_text"]
STAGE_RULES = {"raw_text": ["demo.todo"]}

def check(req):
    out = []
    for i, line in enumerate(req["payload"]["text"].split("\n")):
        col = line.find("TODO")
        if col >= 0:
            out.append({
                "rule_id": "demo.todo",
                "message": "unresolved TODO",
                "location": {"line": i + 1, "col": col + 1, "end_line": i + 1, "end_col": col + 5},
            })
    return out
`

const workspaceConfig = `log:
  level: error
host:
  on_rule_error: isolate
check:
  scripts:
    - todo.star
    - builtin:format.no_tabs
`

const workspaceSource = "module top;\n  // TODO wire up\nendmodule\n"

// SetupTestWorkspace creates a temporary directory holding a config file,
// one Starlark rule script and one source file with a single TODO line.
// The config's script path is relative to the workspace.
func SetupTestWorkspace(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		WorkspaceConfig: workspaceConfig,
		WorkspaceScript: workspaceScript,
		WorkspaceSource: workspaceSource,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	// A nested directory exercises upward config discovery.
	if err := os.MkdirAll(filepath.Join(dir, "rtl", "core"), 0o755); err != nil {
		t.Fatalf("failed to create nested directory: %v", err)
	}

	return dir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode.
// Buffers are never terminals, so ModeAuto renders plain text.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
