package app

import (
	"io"

	"cartrules/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of log.level.
	Debug bool

	// ConfigPath is the directory holding config.yaml.
	ConfigPath string

	// SessionID overrides engine.sessionID when set.
	SessionID string

	// Port overrides server.port when non-negative.
	Port int

	// LogOutput receives log output. Defaults to stdout.
	LogOutput io.Writer

	// CartRules is the loaded agent configuration.
	CartRules *config.CartRulesConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Port:       -1,
	}
}
