// Package config provides configuration management for the storyscript CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	Extension  string   `koanf:"extension"`
	Ignore     []string `koanf:"ignore"`
	GitIgnores bool     `koanf:"git_ignores"`
	StatePath  string   `koanf:"state_path"`
	Output     string   `koanf:"output"`
	Indent     int      `koanf:"indent"`
	Color      string   `koanf:"color"`
	LogLevel   string   `koanf:"log_level"`
	Verbose    bool     `koanf:"verbose"`

	// ProjectRoot is the directory of the config file, or the working
	// directory without one
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultExtension = ".story"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultIndent    = 2
	DefaultColor     = "auto"
	DefaultLogLevel  = "warn"
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Extension:  DefaultExtension,
		GitIgnores: true,
		Output:     DefaultOutput,
		Indent:     DefaultIndent,
		Color:      DefaultColor,
		LogLevel:   DefaultLogLevel,
	}
}
