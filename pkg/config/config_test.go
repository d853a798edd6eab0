package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write minimal config
	configContent := `
logging:
  level: "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Explicit value is preserved, defaults fill the rest
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Session.Window != 60*time.Second {
		t.Errorf("Expected default session window 60s, got %v", cfg.Session.Window)
	}
	if cfg.Security.LockoutThreshold != 3 {
		t.Errorf("Expected default lockout threshold 3, got %d", cfg.Security.LockoutThreshold)
	}
	if cfg.Security.Hasher.Type != "pbkdf2" {
		t.Errorf("Expected default hasher type 'pbkdf2', got %q", cfg.Security.Hasher.Type)
	}
	if cfg.Snapshot.Path == "" {
		t.Error("Expected default snapshot path to be set")
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Use a temporary directory with a non-existent config file path
	// This ensures we don't load the user's config from ~/.config/cairn/
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("logging: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_TOMLConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[logging]
level = "WARN"

[session]
window = "2m"

[security]
lockout_threshold = 5
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Session.Window != 2*time.Minute {
		t.Errorf("Expected session window 2m, got %v", cfg.Session.Window)
	}
	if cfg.Security.LockoutThreshold != 5 {
		t.Errorf("Expected lockout threshold 5, got %d", cfg.Security.LockoutThreshold)
	}
}

func TestLoad_LowercaseLevelNormalized(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidHasherType(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Security.Hasher.Type = "md5"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown hasher type")
	}
}

func TestValidate_NegativeLockoutThreshold(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Security.LockoutThreshold = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative lockout threshold")
	}
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected defaulted config to pass validation, got: %v", err)
	}
}

func TestCreateHasher_PBKDF2(t *testing.T) {
	cfg := &HasherConfig{
		Type: "pbkdf2",
		PBKDF2: map[string]any{
			"iterations": 1000,
			"salt_size":  8,
		},
	}

	hasher, err := CreateHasher(cfg)
	if err != nil {
		t.Fatalf("Failed to create pbkdf2 hasher: %v", err)
	}
	if hasher == nil {
		t.Fatal("Expected non-nil hasher")
	}

	hash, err := hasher.Hash("secret")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if !hasher.Verify(hash, "secret") {
		t.Error("Expected hash to verify against its own password")
	}
}

func TestCreateHasher_EmptyOptions(t *testing.T) {
	cfg := &HasherConfig{Type: "pbkdf2"}

	hasher, err := CreateHasher(cfg)
	if err != nil {
		t.Fatalf("Failed to create hasher with empty options: %v", err)
	}
	if hasher == nil {
		t.Fatal("Expected non-nil hasher")
	}
}

func TestCreateHasher_UnknownType(t *testing.T) {
	cfg := &HasherConfig{Type: "argon2"}

	_, err := CreateHasher(cfg)
	if err == nil {
		t.Fatal("Expected error for unknown hasher type")
	}
	if !strings.Contains(err.Error(), "unknown hasher type") {
		t.Errorf("Expected 'unknown hasher type' error, got: %v", err)
	}
}

func TestCreateHasher_BadOptions(t *testing.T) {
	cfg := &HasherConfig{
		Type: "pbkdf2",
		PBKDF2: map[string]any{
			"iterations": -1,
		},
	}

	if _, err := CreateHasher(cfg); err == nil {
		t.Fatal("Expected error for negative iterations")
	}
}
