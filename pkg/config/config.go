// Package config loads and validates the daemon configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CAIRN_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete cairn configuration.
type Config struct {
	// Logging controls operational log output (not the persisted audit
	// log, which has no configuration).
	Logging LoggingConfig `mapstructure:"logging"`

	// Snapshot configures the persisted system image.
	Snapshot SnapshotConfig `mapstructure:"snapshot"`

	// Session configures the dispatcher's session gate.
	Session SessionConfig `mapstructure:"session"`

	// Security configures login lockout and password hashing.
	Security SecurityConfig `mapstructure:"security"`
}

// LoggingConfig controls operational logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// SnapshotConfig configures image persistence.
type SnapshotConfig struct {
	// Path is the location of the single serialized system image.
	Path string `mapstructure:"path" validate:"required"`
}

// SessionConfig configures the dispatcher's session gate.
type SessionConfig struct {
	// Window is the absolute session lifetime measured from login.
	Window time.Duration `mapstructure:"window" validate:"required,gt=0"`
}

// SecurityConfig configures account lockout and the password hasher.
type SecurityConfig struct {
	// LockoutThreshold is the number of consecutive failed logins after
	// which an account is blocked until an administrator unblocks it.
	LockoutThreshold int `mapstructure:"lockout_threshold" validate:"required,gt=0"`

	// Hasher selects and configures the password hashing collaborator.
	Hasher HasherConfig `mapstructure:"hasher"`
}

// HasherConfig specifies the password hasher.
//
// The Type field determines which implementation is used; only the
// corresponding type-specific section is read.
type HasherConfig struct {
	// Type specifies which hasher implementation to use
	// Valid values: pbkdf2
	Type string `mapstructure:"type" validate:"required,oneof=pbkdf2"`

	// PBKDF2 contains pbkdf2-specific configuration
	// Only used when Type = "pbkdf2"
	PBKDF2 map[string]any `mapstructure:"pbkdf2"`
}

// Load reads, defaults and validates the configuration. A missing config
// file is acceptable; defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support and the config file
// location. Environment variables use the CAIRN_ prefix with underscores,
// e.g. CAIRN_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("CAIRN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is not an error; defaults cover everything.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory: $XDG_CONFIG_HOME/cairn,
// ~/.config/cairn, or the current directory as a last resort.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cairn")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "cairn")
}
