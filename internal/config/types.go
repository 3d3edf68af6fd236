// Package config provides the rule host's configuration types, defaults and
// config file discovery. It is decoupled from CLI concerns; the layered
// loading (file, env, flags) lives in internal/cli/config.
package config

import (
	"fmt"

	"github.com/leapstack-labs/rulehost/internal/registry"
	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// Config holds all rule host configuration.
type Config struct {
	Log   LogConfig   `koanf:"log"`
	Host  HostConfig  `koanf:"host"`
	Check CheckConfig `koanf:"check"`
	Rules RulesConfig `koanf:"rules"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// LogConfig configures the stderr logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// HostConfig configures a host session.
type HostConfig struct {
	OnRuleError     string `koanf:"on_rule_error" validate:"oneof=abort isolate"`
	MaxMessageBytes int    `koanf:"max_message_bytes" validate:"gt=0"`
	LoadParallelism int    `koanf:"load_parallelism" validate:"gte=1"`
	BaseDir         string `koanf:"base_dir"`
	MetricsFile     string `koanf:"metrics_file"`
}

// CheckConfig configures the in-process check driver.
type CheckConfig struct {
	Scripts []registry.ScriptSpec `koanf:"scripts"`
	Format  string                `koanf:"format" validate:"oneof=text json"`
}

// RulesConfig holds driver-side overrides. Rule ids contain dots, so they are
// listed rather than used as keys.
type RulesConfig struct {
	Disabled  []string       `koanf:"disabled" validate:"dive,required"`
	Overrides []RuleOverride `koanf:"overrides" validate:"dive"`
}

// RuleOverride changes how one rule's violations are reported.
type RuleOverride struct {
	ID       string `koanf:"id" validate:"required"`
	Enabled  *bool  `koanf:"enabled"`
	Severity string `koanf:"severity" validate:"omitempty,severity"`
}

// LintConfig converts the overrides into a lint.Config. An override with
// enabled: true re-enables a rule listed in Disabled.
func (r RulesConfig) LintConfig() (*lint.Config, error) {
	cfg := lint.NewConfig()
	for _, id := range r.Disabled {
		cfg.Disable(id)
	}
	for _, o := range r.Overrides {
		if o.Enabled != nil {
			if *o.Enabled {
				delete(cfg.DisabledRules, o.ID)
			} else {
				cfg.Disable(o.ID)
			}
		}
		if o.Severity != "" {
			sev, ok := core.ParseSeverity(o.Severity)
			if !ok {
				return nil, fmt.Errorf("rule %s: unknown severity %q", o.ID, o.Severity)
			}
			cfg.SetSeverity(o.ID, sev)
		}
	}
	return cfg, nil
}
