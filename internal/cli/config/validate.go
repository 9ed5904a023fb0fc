package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

var (
	outputModes = []string{"auto", "text", "markdown", "json", "yaml"}
	colorModes  = []string{"auto", "always", "never"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return fmt.Errorf("extension must start with a dot: %q", c.Extension)
	}
	if !slices.Contains(outputModes, c.Output) {
		return fmt.Errorf("unknown output %q (expected one of %s)", c.Output, strings.Join(outputModes, ", "))
	}
	if !slices.Contains(colorModes, c.Color) {
		return fmt.Errorf("unknown color mode %q (expected one of %s)", c.Color, strings.Join(colorModes, ", "))
	}
	if c.Indent < 1 || c.Indent > 8 {
		return fmt.Errorf("indent must be between 1 and 8, got %d", c.Indent)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the log level. Verbose lowers it to debug.
func (c *Config) Level() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return level, nil
}
