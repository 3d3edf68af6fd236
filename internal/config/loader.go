package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/rulehost/internal/registry"
)

// Config file names, in lookup order.
var ConfigFileNames = []string{"rulehost.yaml", "rulehost.yml", "rulehost.toml"}

// FindConfigFile returns the first config file present in dir, or "".
func FindConfigFile(dir string) string {
	for _, name := range ConfigFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir to the first directory holding a
// config file. Returns "" if none is found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FindConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ParserFor returns the koanf parser matching a config file's extension.
func ParserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOMLParser()
	}
	return yaml.Parser()
}

// UnmarshalConf is the decoding setup for Config. Script entries may be bare
// path strings.
func UnmarshalConf(out *Config) koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				ScriptSpecHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           out,
			WeaklyTypedInput: true,
		},
	}
}

// ScriptSpecHookFunc decodes a bare string into a ScriptSpec path.
func ScriptSpecHookFunc() mapstructure.DecodeHookFuncType {
	specType := reflect.TypeOf(registry.ScriptSpec{})
	return func(from, to reflect.Type, data any) (any, error) {
		if to != specType || from.Kind() != reflect.String {
			return data, nil
		}
		return registry.ScriptSpec{Path: data.(string)}, nil
	}
}
