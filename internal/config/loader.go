package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "wikidom.yaml"
	ConfigFileNameAlt = "wikidom.yml"
)

// EnvPrefix prefixes environment variables: WIKIDOM_ARTICLE_PATH -> article_path.
const EnvPrefix = "WIKIDOM_"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
)

// sections are the nested config keys whose flat env and flag spellings
// map to dotted paths (toc_min_headings -> toc.min_headings).
var sections = []string{"toc"}

// findConfigFile finds the config file to use.
// Priority: explicit path > wikidom.yaml > wikidom.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// keyPath maps a flat snake_case name to its koanf path.
func keyPath(name string) string {
	for _, s := range sections {
		if strings.HasPrefix(name, s+"_") {
			return s + "." + strings.TrimPrefix(name, s+"_")
		}
	}
	return name
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// defaultValues is the lowest configuration layer. It mirrors Default.
func defaultValues() map[string]any {
	return map[string]any{
		"language":         DefaultLanguage,
		"article_path":     DefaultArticlePath,
		"script_path":      DefaultScriptPath,
		"capital_links":    true,
		"edit_sections":    false,
		"toc.min_headings": DefaultMinHeadings,
		"toc.max_level":    0,
		"output":           DefaultOutput,
		"index":            "",
		"namespaces":       "",
		"jobs":             runtime.NumCPU(),
		"port":             DefaultPort,
		"verbose":          false,
	}
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return keyPath(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return keyPath(strings.ReplaceAll(f.Name, "-", "_")), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.ComposeDecodeHookFunc(commaListHook()),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			cfg.resolvePaths(filepath.Dir(abs))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// commaListHook decodes "a, b,c" strings into string slices. Blank items
// are dropped.
func commaListHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
			return data, nil
		}
		var out []string
		for _, item := range strings.Split(data.(string), ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	}
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}
