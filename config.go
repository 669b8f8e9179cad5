// Copyright 2025 The imgcache authors.
// SPDX-License-Identifier: Apache-2.0

package imgcache

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/imgcache/imgcache/format"
)

// Crop modes accepted by Preset.Crop.
const (
	CropFit   = "fit"   // bounding box, aspect ratio preserved (default)
	CropSmart = "smart" // subject-detected crop to exact dimensions
)

// Config is the engine configuration.  It is loaded once at startup and
// never mutated afterwards.
type Config struct {
	// Extensions lists the supported output format identifiers in
	// negotiation preference order.
	Extensions []string `yaml:"extensions"`

	// DefaultFormat is used when negotiation yields no match.  It must be
	// a member of Extensions.
	DefaultFormat string `yaml:"default_format"`

	// Roots are searched in order for source images; the first existing
	// regular file wins.
	Roots []string `yaml:"roots"`

	// URL is the request template, e.g. "/img/{size}/{path}[.{ext}]".
	URL string `yaml:"url"`

	// CacheDirectory is the root of persisted derivatives.
	CacheDirectory string `yaml:"cache_directory"`

	// Sizes maps preset names to their target geometry.
	Sizes map[string]*Preset `yaml:"sizes"`

	Logger LoggerConfig `yaml:"logger"`

	formats       []format.Format
	defaultFormat format.Format
}

// Preset is a named target geometry for derivatives.
type Preset struct {
	Name   string `yaml:"-"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	// Pattern restricts which source paths the preset applies to.  Empty
	// means the preset applies to all paths.
	Pattern string `yaml:"pattern"`

	// PreOptimize marks the preset for eager generation at startup.
	PreOptimize bool `yaml:"pre_optimize"`

	// Crop selects the resize mode, CropFit or CropSmart.
	Crop string `yaml:"crop"`

	pattern *regexp.Regexp
}

// Matches reports whether the preset applies to the given source path.
func (p *Preset) Matches(path string) bool {
	return p.pattern == nil || p.pattern.MatchString(path)
}

// LoggerConfig selects the log destination and minimum severity.
type LoggerConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return &cfg, nil
}

// Validate checks the configuration and compiles preset patterns.  A Config
// must be validated before use.
func (c *Config) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	c.formats = c.formats[:0]
	for _, ext := range c.Extensions {
		f, ok := format.ByName(strings.ToLower(ext))
		if !ok {
			return fmt.Errorf("unknown extension %q", ext)
		}
		if !f.CanEncode() {
			return fmt.Errorf("extension %q has no encoder", ext)
		}
		c.formats = append(c.formats, f)
	}

	df, ok := format.ByName(strings.ToLower(c.DefaultFormat))
	if !ok {
		return fmt.Errorf("unknown default_format %q", c.DefaultFormat)
	}
	c.defaultFormat = ""
	for i, ext := range c.Extensions {
		if strings.EqualFold(ext, c.DefaultFormat) {
			c.defaultFormat = c.formats[i]
		}
	}
	if c.defaultFormat == "" {
		return fmt.Errorf("default_format %q is not listed in extensions", df)
	}

	if len(c.Roots) == 0 {
		return fmt.Errorf("roots must not be empty")
	}
	if c.URL == "" {
		return fmt.Errorf("url must not be empty")
	}
	if c.CacheDirectory == "" {
		return fmt.Errorf("cache_directory must not be empty")
	}
	if len(c.Sizes) == 0 {
		return fmt.Errorf("sizes must not be empty")
	}

	for name, p := range c.Sizes {
		p.Name = name
		if p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("size %q: width and height must be positive", name)
		}
		switch p.Crop {
		case "", CropFit, CropSmart:
		default:
			return fmt.Errorf("size %q: unknown crop mode %q", name, p.Crop)
		}
		if p.Pattern != "" {
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				return fmt.Errorf("size %q: invalid pattern: %w", name, err)
			}
			p.pattern = re
		}
	}
	return nil
}

// Formats returns the configured output formats in preference order.
func (c *Config) Formats() []format.Format { return c.formats }

// Default returns the configured fallback format.
func (c *Config) Default() format.Format { return c.defaultFormat }

// allows reports whether f is a configured output format.
func (c *Config) allows(f format.Format) bool {
	for _, g := range c.formats {
		if g == f {
			return true
		}
	}
	return false
}
