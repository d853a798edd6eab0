package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/cairnfs/cairn/pkg/users"
)

// CreateHasher creates a password hasher based on configuration.
//
// The Type field selects the implementation; the matching type-specific
// option map is decoded and passed to the constructor.
//
// Supported types:
//   - "pbkdf2": PBKDF2-SHA-256 with configurable iterations and salt size
func CreateHasher(cfg *HasherConfig) (users.Hasher, error) {
	switch cfg.Type {
	case "pbkdf2":
		return createPBKDF2Hasher(cfg.PBKDF2)
	default:
		return nil, fmt.Errorf("unknown hasher type: %q", cfg.Type)
	}
}

// createPBKDF2Hasher decodes pbkdf2 options and builds the hasher.
func createPBKDF2Hasher(options map[string]any) (users.Hasher, error) {
	type PBKDF2HasherConfig struct {
		Iterations int `mapstructure:"iterations"`
		SaltSize   int `mapstructure:"salt_size"`
	}

	var hasherCfg PBKDF2HasherConfig
	if err := mapstructure.Decode(options, &hasherCfg); err != nil {
		return nil, fmt.Errorf("failed to decode pbkdf2 hasher config: %w", err)
	}

	if hasherCfg.Iterations < 0 {
		return nil, fmt.Errorf("pbkdf2 hasher: iterations must be positive")
	}
	if hasherCfg.SaltSize < 0 {
		return nil, fmt.Errorf("pbkdf2 hasher: salt_size must be positive")
	}

	return users.NewPBKDF2Hasher(hasherCfg.Iterations, hasherCfg.SaltSize), nil
}
