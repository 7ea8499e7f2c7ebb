package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name, e.g. PROCPIPE_LOG_LEVEL.
const Prefix = "procpipe"

// Config holds the defaults read from the environment (including a .env
// file). Command-line flags take precedence over every field.
type Config struct {
	LoggingType string `envconfig:"LOGGING_TYPE" default:"tint"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`
	Verbose     bool   `envconfig:"VERBOSE" default:"false"`
	DryRun      bool   `envconfig:"DRY_RUN" default:"false"`
	MaxDepth    int    `envconfig:"MAX_DEPTH" default:"-1"`
	ContextFile string `envconfig:"CONTEXT_FILE"`
}

// Load reads the configuration from PROCPIPE_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading environment configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no variable is set.
func Default() *Config {
	return &Config{
		LoggingType: "tint",
		LogLevel:    "warn",
		MaxDepth:    -1,
	}
}
