package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultConfig returns the built-in defaults used on first run.
func DefaultConfig() *Config {
	return &Config{
		DataDirectory:   GetDefaultDataDir(),
		DefaultProvider: "ollama",
		DefaultModel:    "qwen3-coder",
		Providers: []ProviderConfig{
			{ID: "ollama", Enabled: true, BaseURL: "http://localhost:11434"},
			{ID: "anthropic", Enabled: false},
			{ID: "openai", Enabled: false},
		},
		SecurityMethod: string(SecurityPlainText),
	}
}

// Load reads settings.toml (creating it with defaults on first run), applies
// environment overrides, and loads the credential store.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	settingsPath := GetSettingsFilePath()

	if FileExists(settingsPath) {
		if _, err := toml.DecodeFile(settingsPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
	} else {
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := EnsureDir(cfg.DataDir()); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := NewCredentialStore(SecurityMethod(cfg.SecurityMethod), cfg.SSHKeyPath)
	if err := store.Load(cfg.DataDir()); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = store

	return cfg, nil
}

// Save writes settings.toml with user-only permissions.
func Save(cfg *Config) error {
	configDir := GetConfigDir()
	if err := EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := GetSettingsFilePath()
	// 0600 - settings contain provider endpoints and rule patterns
	f, err := os.OpenFile(settingsPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	return nil
}
