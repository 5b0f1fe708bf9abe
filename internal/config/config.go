package config

import (
	"fmt"

	"github.com/zde37/chordsim/pkg/idspace"
)

// Config holds all configuration for a simulated Chord ring
type Config struct {
	// Chord parameters
	M              int // Identifier space size in bits (2^M positions)
	RefreshWorkers int // Goroutines used to recompute finger tables after a membership change

	// HTTP API, 0 disables it
	HTTPPort int

	// Scenario script to run, empty runs the built-in reference scenario
	ScriptPath string

	// Logging
	LogLevel  string // trace, debug, info, warn, error
	LogFormat string // json, console
	LogFile   string // optional rotated log file
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		M:              8, // 256 positions, the reference ring
		RefreshWorkers: 1,
		HTTPPort:       0,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.M < idspace.MinBits || c.M > idspace.MaxBits {
		return fmt.Errorf("M must be between %d and %d, got %d", idspace.MinBits, idspace.MaxBits, c.M)
	}
	if c.RefreshWorkers < 1 {
		return fmt.Errorf("refresh workers must be at least 1, got %d", c.RefreshWorkers)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.LogFormat)
	}
	return nil
}
