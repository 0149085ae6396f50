// Package config holds sctrace's settings: built-in defaults overridden by
// SCTRACE_* environment variables, which command-line flags override in turn.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/majorcontext/sctrace/internal/remote"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvStringLimit   = "SCTRACE_STRING_LIMIT"
	EnvMaxWords      = "SCTRACE_MAX_WORDS"
	EnvShowAll       = "SCTRACE_SHOW_ALL"
	EnvKillOnExit    = "SCTRACE_KILL_ON_EXIT"
	EnvDebugDir      = "SCTRACE_DEBUG_DIR"
	EnvRetentionDays = "SCTRACE_LOG_RETENTION_DAYS"
)

// Config holds the effective settings for one invocation.
type Config struct {
	Trace TraceConfig `yaml:"trace"`
	Log   LogConfig   `yaml:"log"`
}

// TraceConfig controls what the tracer decodes and prints.
type TraceConfig struct {
	// StringLimit caps the bytes shown for a string argument.
	StringLimit int `yaml:"string_limit"`
	// MaxWords caps the word reads spent scanning one string.
	MaxWords int `yaml:"max_words"`
	// ShowAll prints calls without a decoder by number.
	ShowAll bool `yaml:"show_all"`
	// KillOnExit kills the tracee if sctrace dies first.
	KillOnExit bool `yaml:"kill_on_exit"`
}

// LogConfig controls the debug log.
type LogConfig struct {
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
	// DebugDir enables the JSONL debug log when set.
	DebugDir      string `yaml:"debug_dir,omitempty"`
	RetentionDays int    `yaml:"retention_days"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	lim := remote.DefaultLimits()
	return &Config{
		Trace: TraceConfig{
			StringLimit: lim.MaxStringLen,
			MaxWords:    lim.MaxWords,
		},
		Log: LogConfig{
			RetentionDays: 14,
		},
	}
}

// Load returns the defaults with environment overrides applied.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	intVar := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", name, v))
				return
			}
			*dst = n
		}
	}
	boolVar := func(name string, dst *bool) {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", name, v))
				return
			}
			*dst = b
		}
	}

	intVar(EnvStringLimit, &c.Trace.StringLimit)
	intVar(EnvMaxWords, &c.Trace.MaxWords)
	boolVar(EnvShowAll, &c.Trace.ShowAll)
	boolVar(EnvKillOnExit, &c.Trace.KillOnExit)
	intVar(EnvRetentionDays, &c.Log.RetentionDays)
	if v, ok := lookup(EnvDebugDir); ok {
		c.Log.DebugDir = v
	}

	return errors.Join(errs...)
}

// Validate rejects settings the tracer cannot work with.
func (c *Config) Validate() error {
	if c.Trace.StringLimit <= 0 {
		return fmt.Errorf("string limit must be positive, got %d", c.Trace.StringLimit)
	}
	if c.Trace.MaxWords <= 0 {
		return fmt.Errorf("max words must be positive, got %d", c.Trace.MaxWords)
	}
	if c.Log.RetentionDays < 0 {
		return fmt.Errorf("log retention days cannot be negative, got %d", c.Log.RetentionDays)
	}
	return nil
}

// Limits returns the string scan limits for the remote reader.
func (c *Config) Limits() remote.Limits {
	return remote.Limits{
		MaxStringLen: c.Trace.StringLimit,
		MaxWords:     c.Trace.MaxWords,
	}
}

// YAML renders the configuration for display.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("rendering config: %w", err)
	}
	return out, nil
}
