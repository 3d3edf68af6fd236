package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rulehost/internal/cli/config"
	"github.com/leapstack-labs/rulehost/internal/cli/testutil"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		config.ResetConfig()
	})

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"version", "serve", "check", "rules", "completion"}, names)

	for _, flag := range []string{"config", "log-level", "on-rule-error", "max-message-size", "metrics-file"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCmd_ServeWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fail.star"), []byte("def check(req):\n    fail(\"boom\")\n"), 0o600))
	cfgPath := filepath.Join(dir, "rulehost.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[host]\non_rule_error = \"isolate\"\n"), 0o600))

	stdin := `{"scripts": ["fail.star"]}` + "\n" + `{"kind": "check", "stage": "ast", "payload": {}}` + "\n"
	out, _, err := runRoot(t, stdin, "--config", cfgPath, "--log-level", "error", "serve")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"rule_errors"`)
}

func TestRootCmd_FlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fail.star"), []byte("def check(req):\n    fail(\"boom\")\n"), 0o600))
	cfgPath := filepath.Join(dir, "rulehost.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("host:\n  on_rule_error: isolate\n"), 0o600))

	stdin := `{"scripts": ["fail.star"]}` + "\n" + `{"kind": "check", "stage": "ast", "payload": {}}` + "\n"
	out, _, err := runRoot(t, stdin, "--config", cfgPath, "--on-rule-error", "abort", "--log-level", "error", "serve")
	require.Error(t, err)
	assert.Contains(t, out, `"type":"error"`)
	assert.Contains(t, out, `"script":"fail.star"`)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	_, _, err := runRoot(t, "", "--on-rule-error", "retry", "rules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host.on_rule_error")
}

func TestRootCmd_CheckDiscoversWorkspaceConfig(t *testing.T) {
	ws := testutil.SetupTestWorkspace(t)
	t.Chdir(filepath.Join(ws, "rtl", "core"))

	out, errOut, err := runRoot(t, "", "check", filepath.Join(ws, testutil.WorkspaceSource))
	require.EqualError(t, err, "1 violations found")
	testutil.AssertNoANSI(t, out)
	assert.Contains(t, out, "demo.todo")
	assert.Contains(t, out, "2:6")
	assert.Empty(t, errOut)
	assert.Equal(t, filepath.Join(ws, testutil.WorkspaceConfig), config.GetConfigFileUsed())
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := runRoot(t, "", "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "rulehost")
}
