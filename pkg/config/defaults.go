package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cairnfs/cairn/pkg/users"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applySnapshotDefaults(&cfg.Snapshot)
	applySessionDefaults(&cfg.Session)
	applySecurityDefaults(&cfg.Security)
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applySnapshotDefaults points the image at the XDG data directory.
func applySnapshotDefaults(cfg *SnapshotConfig) {
	if cfg.Path == "" {
		cfg.Path = filepath.Join(getDataDir(), "image.cairn")
	}
}

// applySessionDefaults sets the 60-second session window.
func applySessionDefaults(cfg *SessionConfig) {
	if cfg.Window == 0 {
		cfg.Window = 60 * time.Second
	}
}

// applySecurityDefaults sets the lockout threshold and hasher defaults.
func applySecurityDefaults(cfg *SecurityConfig) {
	if cfg.LockoutThreshold == 0 {
		cfg.LockoutThreshold = users.DefaultLockoutThreshold
	}
	if cfg.Hasher.Type == "" {
		cfg.Hasher.Type = "pbkdf2"
	}
}

// getDataDir returns the data directory: $XDG_DATA_HOME/cairn,
// ~/.local/share/cairn, or the current directory as a last resort.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "cairn")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "cairn")
}
