package config

// Default configuration values.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultOnRuleError     = "abort"
	DefaultMaxMessageBytes = 16 << 20
	DefaultLoadParallelism = 4
	DefaultCheckFormat     = "text"
)

// Defaults returns the default values keyed by their dotted config path.
func Defaults() map[string]any {
	return map[string]any{
		"log.level":              DefaultLogLevel,
		"log.format":             DefaultLogFormat,
		"host.on_rule_error":     DefaultOnRuleError,
		"host.max_message_bytes": DefaultMaxMessageBytes,
		"host.load_parallelism":  DefaultLoadParallelism,
		"check.format":           DefaultCheckFormat,
	}
}

// ApplyDefaults fills unset fields of c.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Host.OnRuleError == "" {
		c.Host.OnRuleError = DefaultOnRuleError
	}
	if c.Host.MaxMessageBytes == 0 {
		c.Host.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if c.Host.LoadParallelism == 0 {
		c.Host.LoadParallelism = DefaultLoadParallelism
	}
	if c.Check.Format == "" {
		c.Check.Format = DefaultCheckFormat
	}
}
