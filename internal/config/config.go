// Package config provides configuration types and defaults for odootask.
package config

import (
	"fmt"
	"time"
)

// Output formats.
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatText = "text"
)

// Config holds all configuration for odootask.
type Config struct {
	Connection  ConnectionConfig  `yaml:"connection" mapstructure:"connection"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	LogFile     string            `yaml:"log_file" mapstructure:"log_file"` // Empty logs to stderr
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
	CheckMode   bool              `yaml:"check_mode" mapstructure:"check_mode"`
}

// ConnectionConfig holds default connection parameters. Task parameters override them.
// Keep passwords in the environment or a .env file rather than in YAML.
type ConnectionConfig struct {
	URL            string `yaml:"url" mapstructure:"url"`
	Database       string `yaml:"database" mapstructure:"database"`
	Username       string `yaml:"username" mapstructure:"username"`
	Password       string `yaml:"password" mapstructure:"password"`
	MasterPassword string `yaml:"master_password" mapstructure:"master_password"`
}

// HTTPConfig holds transport settings.
type HTTPConfig struct {
	Timeout            time.Duration `yaml:"timeout" mapstructure:"timeout"` // 0 = no timeout
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// OutputConfig controls how outcomes are printed.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // auto, json or text
}

// LogRotationConfig holds settings for log file rotation (lumberjack-based).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout: 0,
		},
		Output: OutputConfig{
			Format: FormatAuto,
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   false,
		},
	}
}

// Validate checks values that cannot be enforced by types.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatAuto, FormatJSON, FormatText:
	default:
		return fmt.Errorf("output.format: unknown format %q (want auto, json or text)", c.Output.Format)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout: must not be negative")
	}
	return nil
}

// Params returns the non-empty connection settings keyed by task parameter name.
func (c ConnectionConfig) Params() map[string]any {
	out := map[string]any{}
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set("url", c.URL)
	set("database", c.Database)
	set("username", c.Username)
	set("password", c.Password)
	set("master_password", c.MasterPassword)
	return out
}
