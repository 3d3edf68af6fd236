package lint

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopRule() Rule {
	return RuleFunc(func(context.Context, *Request) ([]core.Violation, error) { return nil, nil })
}

func TestRuleFunc(t *testing.T) {
	want := []core.Violation{{RuleID: "demo.a", Severity: core.SeverityWarning}}
	rule := RuleFunc(func(_ context.Context, req *Request) ([]core.Violation, error) {
		if req.Stage != core.StageRawText {
			return nil, errors.New("wrong stage")
		}
		return want, nil
	})

	got, err := rule.Check(context.Background(), NewRequest(core.StageRawText, "", nil, core.RuleSelection{}))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = rule.Check(context.Background(), NewRequest(core.StageAST, "", nil, core.RuleSelection{}))
	assert.EqualError(t, err, "wrong stage")
}

func TestBuiltinRegistry(t *testing.T) {
	saved := Builtins()
	t.Cleanup(func() {
		ClearBuiltins()
		for _, b := range saved {
			Register(b)
		}
	})
	ClearBuiltins()

	Register(Builtin{Name: "zeta", New: noopRule})
	Register(Builtin{Name: "alpha", Description: "first", New: noopRule})
	Register(Builtin{Name: "alpha", Description: "replaced", New: noopRule})

	assert.Equal(t, 2, Count())

	b, ok := LookupBuiltin("alpha")
	require.True(t, ok)
	assert.Equal(t, "replaced", b.Description)

	_, ok = LookupBuiltin("missing")
	assert.False(t, ok)

	all := Builtins()
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "zeta", all[1].Name)

	assert.Panics(t, func() { Register(Builtin{Name: "no-ctor"}) })
}

func TestBuiltin_RuleIDs(t *testing.T) {
	b := Builtin{
		StageRules: map[core.Stage][]string{
			core.StageAST:     {"x.unused", "x.shadow"},
			core.StageRawText: {"x.unused", "x.tabs"},
		},
	}
	assert.Equal(t, []string{"x.unused", "x.tabs", "x.shadow"}, b.RuleIDs())
	assert.Empty(t, Builtin{}.RuleIDs())
}

func TestConfig_Apply(t *testing.T) {
	vs := []core.Violation{
		{RuleID: "a", Severity: core.SeverityWarning},
		{RuleID: "b", Severity: core.SeverityWarning},
		{RuleID: "c", Severity: core.SeverityInfo},
	}

	cfg := NewConfig().Disable("b").SetSeverity("c", core.SeverityError)
	got := cfg.Apply(vs)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].RuleID)
	assert.Equal(t, core.SeverityWarning, got[0].Severity)
	assert.Equal(t, "c", got[1].RuleID)
	assert.Equal(t, core.SeverityError, got[1].Severity)
	assert.Equal(t, core.SeverityInfo, vs[2].Severity, "input is not modified")

	var nilCfg *Config
	assert.Equal(t, vs, nilCfg.Apply(vs))
}

func TestConfig_Selection(t *testing.T) {
	cfg := NewConfig().Disable("z").Disable("a")
	cfg.DisabledRules["off"] = false

	assert.Equal(t, core.RuleSelection{Disabled: []string{"a", "z"}}, cfg.Selection())
}
