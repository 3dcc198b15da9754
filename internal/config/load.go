package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"source-weaver/internal/annotation"
	"source-weaver/internal/render"
)

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sources", []string{})
	v.SetDefault("manifests", []string{})
	v.SetDefault("templates", []string{})
	v.SetDefault("output", ".")
	v.SetDefault("marker", annotation.DefaultMarker)
	v.SetDefault("inline.begin", "")
	v.SetDefault("inline.end", "")
	v.SetDefault("inline.indent", false)
	v.SetDefault("inline.supplement", "")
	v.SetDefault("args", map[string]any{})
	v.SetDefault("format", true)
	v.SetDefault("header", render.DefaultHeader)
	v.SetDefault("workers", 0)
	v.SetDefault("warnings_as_errors", false)
	v.SetDefault("include_unexported", false)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("WEAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	SetDefaults(v)

	return v
}

// LoadFile reads and validates the config file at path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	return load(v, filepath.Dir(abs))
}

// Parse reads a config from YAML data. Relative paths resolve against dir.
func Parse(data []byte, dir string) (*Config, error) {
	v := newViper()

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return load(v, dir)
}

func load(v *viper.Viper, dir string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Dir = dir
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Find walks up from dir looking for DefaultFileName and returns the first
// path found, or "" when there is none.
func Find(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		p := filepath.Join(dir, DefaultFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}

		dir = parent
	}
}
