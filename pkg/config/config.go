// Package config holds the engine configuration read from twig.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// MainNamespace is the namespace used by template references without an
// explicit @namespace prefix.
const MainNamespace = "__main__"

// DefaultContextLines is the number of source lines printed around a
// failing line by the compile check.
const DefaultContextLines = 3

// ErrInvalid marks configuration values that failed validation.
var ErrInvalid = errors.New("config: invalid configuration")

// Config captures every option the renderer, the engine and the console
// commands read.
type Config struct {
	// Extension is the template file extension without the leading dot.
	Extension string `yaml:"extension"`
	// Debug enables the dump() function and pongo2 debug mode.
	Debug bool `yaml:"debug"`
	// StrictVariables turns unknown helpers, helper methods and services
	// into render errors instead of empty output.
	StrictVariables bool `yaml:"strict_variables"`
	// AutoReload re-reads template sources from the loader on every load.
	// When false, snapshots stored in the disk cache are served until the
	// cache is cleared.
	AutoReload bool `yaml:"auto_reload"`
	// Cache is the absolute directory holding source snapshots. Empty
	// disables the disk cache.
	Cache string `yaml:"cache"`
	// CacheSize bounds the number of compiled templates kept in memory.
	CacheSize    int  `yaml:"cache_size"`
	TrimBlocks   bool `yaml:"trim_blocks"`
	LStripBlocks bool `yaml:"lstrip_blocks"`

	Paths   Namespaces     `yaml:"paths"`
	Globals map[string]any `yaml:"globals"`
	Facades Facades        `yaml:"facades"`
	Lint    LintConfig     `yaml:"lint"`
}

// LintConfig configures the twig:compile command.
type LintConfig struct {
	// ContextLines is the number of lines shown around a failing line.
	// Zero, the YAML zero value, selects DefaultContextLines.
	ContextLines int      `yaml:"context_lines"`
	Ignore       []string `yaml:"ignore"`
}

// Default returns the configuration used when no twig.yaml is present.
func Default() Config {
	return Config{
		Extension:  "twig",
		AutoReload: true,
		CacheSize:  256,
		Paths: Namespaces{
			{Name: MainNamespace, Paths: []string{"templates"}},
		},
		Globals: map[string]any{},
		Lint: LintConfig{
			ContextLines: DefaultContextLines,
		},
	}
}

// Validate normalises the extension and reports the first invalid value.
func (c *Config) Validate() error {
	c.Extension = strings.TrimPrefix(strings.TrimSpace(c.Extension), ".")
	if c.Extension == "" {
		return fmt.Errorf("%w: extension is required", ErrInvalid)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must not be negative (got %d)", ErrInvalid, c.CacheSize)
	}
	if c.Lint.ContextLines < 0 {
		return fmt.Errorf("%w: lint.context_lines must not be negative (got %d)", ErrInvalid, c.Lint.ContextLines)
	}
	for _, pattern := range c.Lint.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("%w: lint.ignore pattern %q: %v", ErrInvalid, pattern, err)
		}
	}

	seen := make(map[string]struct{}, len(c.Paths))
	for _, ns := range c.Paths {
		if ns.Name == "" {
			return fmt.Errorf("%w: namespace name is required", ErrInvalid)
		}
		if _, dup := seen[ns.Name]; dup {
			return fmt.Errorf("%w: namespace %q declared twice", ErrInvalid, ns.Name)
		}
		seen[ns.Name] = struct{}{}
		if len(ns.Paths) == 0 {
			return fmt.Errorf("%w: namespace %q has no paths", ErrInvalid, ns.Name)
		}
	}

	facades := make(map[string]struct{}, len(c.Facades))
	for _, facade := range c.Facades {
		if _, dup := facades[facade.Name]; dup {
			return fmt.Errorf("%w: facade %q declared twice", ErrInvalid, facade.Name)
		}
		facades[facade.Name] = struct{}{}
	}
	return nil
}

// ContextLines returns the configured context radius. Zero means unset
// and yields DefaultContextLines; Validate rejects negative values.
func (c Config) ContextLines() int {
	if c.Lint.ContextLines <= 0 {
		return DefaultContextLines
	}
	return c.Lint.ContextLines
}
