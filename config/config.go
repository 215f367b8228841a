// Package config owns settings persistence: the TOML settings file, data
// directory layout, persisted permission rules, and the encrypted credential
// store for provider API keys. Everything here is plain data plus file I/O;
// no other package writes to the data directory's config files.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// ProviderConfig configures one LLM provider entry.
type ProviderConfig struct {
	ID      string `toml:"id"` // "anthropic", "openai", "ollama"
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
}

// MCPServerConfig configures one external MCP tool server. Either Command
// (stdio child process) or URL (SSE endpoint) must be set.
type MCPServerConfig struct {
	ID      string            `toml:"id"`
	Enabled bool              `toml:"enabled"`
	Command string            `toml:"command,omitempty"`
	Args    []string          `toml:"args,omitempty"`
	URL     string            `toml:"url,omitempty"`
	Env     map[string]string `toml:"env,omitempty"`
}

// PermissionRule is one persisted pattern→permission entry. Rules are
// ordered; evaluation semantics live in the tools package.
type PermissionRule struct {
	Pattern    string `toml:"pattern"`
	Permission string `toml:"permission"` // "allow" or "deny"
}

// Config is the resolved application configuration.
type Config struct {
	DataDirectory       string            `toml:"data_directory"`
	DefaultProvider     string            `toml:"default_provider"`
	DefaultModel        string            `toml:"default_model"`
	DefaultSystemPrompt string            `toml:"default_system_prompt,omitempty"`
	Providers           []ProviderConfig  `toml:"providers"`
	Permissions         []PermissionRule  `toml:"permissions"`
	MCPServers          []MCPServerConfig `toml:"mcp_servers,omitempty"`

	// SecurityMethod selects credential storage: "plaintext" or "ssh_key".
	SecurityMethod string `toml:"security_method,omitempty"`
	SSHKeyPath     string `toml:"ssh_key_path,omitempty"`

	// CredentialStore is populated by Load, never serialized.
	CredentialStore *CredentialStore `toml:"-"`
}

var Debug = false
var DebugLog *log.Logger

// DataDir returns the expanded data directory path.
func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Provider returns the configuration entry for the given provider id.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("QUILL_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if provider := os.Getenv("QUILL_PROVIDER"); provider != "" {
		c.DefaultProvider = provider
	}
	if model := os.Getenv("QUILL_MODEL"); model != "" {
		c.DefaultModel = model
	}
}

// CheckDebug reports whether debug logging is requested via environment.
func CheckDebug() bool {
	debug := os.Getenv("QUILL_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens the debug log under the data directory. No-op unless
// QUILL_DEBUG is set.
func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// 0600 - the debug log may contain conversation fragments
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open debug log at %s: %v\n", logPath, err)
		return
	}

	Debug = true
	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== quill debug log started ===")
}
