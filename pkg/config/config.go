// Package config loads kaleidoscope settings from YAML.
package config

import (
	"os"
	"unicode/utf8"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/frontend"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/logger"
)

// DefaultOptimize is the optimization level used when none is configured.
const DefaultOptimize = 2

type Config struct {
	// Precedence maps a one-character operator to its binding strength.
	// Empty means the default table.
	Precedence map[string]int `yaml:"precedence"`
	Optimize   *int           `yaml:"optimize"`
	Log        Log            `yaml:"log"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns a config equivalent to an empty file.
func Default() *Config {
	return &Config{}
}

// Load reads path. An empty path returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML and validates it.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrap(err, "decoding yaml")
	}
	if cfg.Optimize != nil && (*cfg.Optimize < 0 || *cfg.Optimize > 2) {
		return nil, errors.Errorf("optimize must be between 0 and 2, got %d", *cfg.Optimize)
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return nil, errors.WithStack(err)
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return nil, errors.Errorf("unknown log format %q", cfg.Log.Format)
	}
	if _, err := cfg.PrecedenceTable(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OptimizeLevel returns the configured level or DefaultOptimize.
func (c *Config) OptimizeLevel() int {
	if c.Optimize == nil {
		return DefaultOptimize
	}
	return *c.Optimize
}

// PrecedenceTable builds the binary operator table. The result is not
// frozen so callers can still adjust it before parsing starts.
func (c *Config) PrecedenceTable() (*frontend.Precedence, error) {
	if len(c.Precedence) == 0 {
		return frontend.DefaultPrecedence(), nil
	}
	p := frontend.NewPrecedence()
	for op, prec := range c.Precedence {
		if utf8.RuneCountInString(op) != 1 {
			return nil, errors.Errorf("operator %q must be a single character", op)
		}
		r, _ := utf8.DecodeRuneInString(op)
		if err := p.Set(r, prec); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return p, nil
}

// LoggerConfig converts the log section for logger.Init.
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	if lvl, err := logger.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = lvl
	}
	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}
	cfg.LogFile = c.Log.File
	return cfg
}
