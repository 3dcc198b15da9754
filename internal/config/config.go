package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"source-weaver/internal/annotation"
	"source-weaver/internal/inline"
)

// DefaultFileName is the config file searched for by Find.
const DefaultFileName = ".weaver.yml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the project configuration.
type Config struct {
	// Sources are Go package patterns, resolved relative to Dir.
	Sources []string `mapstructure:"sources" yaml:"sources,omitempty"`
	// Manifests are declaration YAML files supplied by external extractors.
	Manifests []string `mapstructure:"manifests" yaml:"manifests,omitempty"`
	// Templates are template files, directories, or globs.
	Templates []string `mapstructure:"templates" yaml:"templates"`
	// Output is the directory for whole-file outputs.
	Output string `mapstructure:"output" yaml:"output"`
	// Marker is the annotation marker token.
	Marker string `mapstructure:"marker" yaml:"marker"`
	// Inline configures the inline merge engine.
	Inline InlineConfig `mapstructure:"inline" yaml:"inline"`
	// Args are handed to templates as .Args. Keys are lower-cased.
	Args map[string]any `mapstructure:"args" yaml:"args,omitempty"`
	// Format runs Go outputs through goimports.
	Format bool `mapstructure:"format" yaml:"format"`
	// Header is prepended to Go outputs.
	Header string `mapstructure:"header" yaml:"header"`
	// Workers bounds parallelism; 0 uses GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers"`
	// WarningsAsErrors fails the run when any warning is reported.
	WarningsAsErrors bool `mapstructure:"warnings_as_errors" yaml:"warnings_as_errors"`
	// IncludeUnexported keeps unexported Go declarations.
	IncludeUnexported bool `mapstructure:"include_unexported" yaml:"include_unexported"`

	// Dir is the directory relative paths are resolved against.
	Dir string `mapstructure:"-" yaml:"-"`
}

// InlineConfig configures inline regions.
type InlineConfig struct {
	// Begin and End override the marker-derived delimiters.
	Begin string `mapstructure:"begin" yaml:"begin,omitempty"`
	End   string `mapstructure:"end" yaml:"end,omitempty"`
	// Indent re-indents block content to its begin marker.
	Indent bool `mapstructure:"indent" yaml:"indent"`
	// Supplement collects blocks whose target has no marker pair.
	Supplement string `mapstructure:"supplement" yaml:"supplement,omitempty"`
}

// Delimiters returns the configured inline delimiters, derived from Marker
// for any side left empty.
func (c *Config) Delimiters() inline.Delimiters {
	d := inline.DefaultDelimiters(c.Marker)
	if c.Inline.Begin != "" {
		d.Begin = c.Inline.Begin
	}

	if c.Inline.End != "" {
		d.End = c.Inline.End
	}

	return d
}

// Path resolves p against Dir unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.Dir, p)
}

// Paths resolves every element of ps with Path.
func (c *Config) Paths(ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = c.Path(p)
	}

	return out
}

// applyDefaults fills in values that depend on other fields.
func applyDefaults(c *Config) {
	if c.Marker == "" {
		c.Marker = annotation.DefaultMarker
	}

	if c.Output == "" {
		c.Output = "."
	}

	if c.Dir == "" {
		c.Dir = "."
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Sources) == 0 && len(c.Manifests) == 0 {
		errs = append(errs, errors.New("at least one of sources or manifests is required"))
	}

	if len(c.Templates) == 0 {
		errs = append(errs, errors.New("templates must not be empty"))
	}

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}

	if err := c.Delimiters().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}

	return nil
}
