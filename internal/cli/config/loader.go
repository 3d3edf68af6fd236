// Package config loads the rule host configuration for the CLI.
//
// Values are layered with koanf, lowest to highest precedence: built-in
// defaults, the config file (rulehost.yaml, rulehost.yml or rulehost.toml),
// RULEHOST_ environment variables, and explicitly set flags.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	shared "github.com/leapstack-labs/rulehost/internal/config"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: RULEHOST_HOST__ON_RULE_ERROR sets host.on_rule_error.
const EnvPrefix = "RULEHOST_"

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"on-rule-error":    "host.on_rule_error",
	"max-message-size": "host.max_message_bytes",
	"load-parallelism": "host.load_parallelism",
	"base-dir":         "host.base_dir",
	"metrics-file":     "host.metrics_file",
	"format":           "check.format",
}

// Package-level koanf instance and config file tracking.
var (
	k              = koanf.New(".")
	configFileUsed string
)

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// GetConfigFileUsed returns the config file read by the last LoadConfig, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoadConfig loads configuration from defaults, file, environment and flags.
// An empty cfgFile searches the working directory and its parents.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*shared.Config, error) {
	k = koanf.New(".")
	configFileUsed = ""

	// 1. Defaults
	if err := k.Load(confmap.Provider(shared.Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			if root := shared.FindProjectRoot(cwd); root != "" {
				cfgFile = shared.FindConfigFile(root)
			}
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), shared.ParserFor(cfgFile)); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Environment: RULEHOST_LOG__LEVEL -> log.level
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg shared.Config
	if err := k.UnmarshalWithConf("", &cfg, shared.UnmarshalConf(&cfg)); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	shared.ApplyDefaults(&cfg)

	// Relative script paths resolve against the config file's directory.
	if cfg.Host.BaseDir == "" && configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			cfg.Host.BaseDir = filepath.Dir(abs)
		}
	}
	cfg.ConfigFile = configFileUsed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// NewLogger builds the process logger from the log settings. Output goes to
// w, which must not be the protocol channel.
func NewLogger(cfg shared.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

type configKey struct{}

// WithConfig stores the loaded configuration in ctx.
func WithConfig(ctx context.Context, cfg *shared.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the configuration from the command context, or a
// default configuration when none was loaded.
func GetConfig(ctx context.Context) *shared.Config {
	if c, ok := ctx.Value(configKey{}).(*shared.Config); ok {
		return c
	}
	c := &shared.Config{}
	shared.ApplyDefaults(c)
	return c
}
