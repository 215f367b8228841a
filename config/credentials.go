package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SecurityMethod defines the credential storage method.
type SecurityMethod string

const (
	SecurityPlainText SecurityMethod = "plaintext"
	SecuritySSHKey    SecurityMethod = "ssh_key"
)

const (
	plainCredentialsFile     = "credentials.json"
	encryptedCredentialsFile = "credentials.enc"
)

// CredentialStore manages provider API keys, either plain-text or encrypted
// with a key derived from the user's SSH key.
type CredentialStore struct {
	method      SecurityMethod
	credentials map[string]string // providerID → API key
	encManager  *EncryptionManager
}

// NewCredentialStore creates a credential store for the given method.
func NewCredentialStore(method SecurityMethod, sshKeyPath string) *CredentialStore {
	if method == "" {
		method = SecurityPlainText
	}
	store := &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
	}
	if method == SecuritySSHKey {
		store.encManager = NewEncryptionManager(sshKeyPath)
	}
	return store
}

// Get returns the API key for a provider, or "" when none is stored.
func (c *CredentialStore) Get(providerID string) string {
	return c.credentials[providerID]
}

// Set stores the API key for a provider in memory; call Save to persist.
func (c *CredentialStore) Set(providerID, apiKey string) {
	c.credentials[providerID] = apiKey
}

// Load reads credentials from the data directory. A missing file is not an
// error; the store starts empty.
func (c *CredentialStore) Load(dataDir string) error {
	switch c.method {
	case SecurityPlainText:
		path := filepath.Join(dataDir, plainCredentialsFile)
		if !FileExists(path) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
		return json.Unmarshal(data, &c.credentials)

	case SecuritySSHKey:
		path := filepath.Join(dataDir, encryptedCredentialsFile)
		if !FileExists(path) {
			return nil
		}
		if err := c.encManager.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize encryption: %w", err)
		}
		ciphertext, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read encrypted credentials: %w", err)
		}
		plaintext, err := c.encManager.Decrypt(ciphertext)
		if err != nil {
			return fmt.Errorf("failed to decrypt credentials: %w", err)
		}
		return json.Unmarshal(plaintext, &c.credentials)

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

// Save writes credentials to the data directory with 0600 permissions.
func (c *CredentialStore) Save(dataDir string) error {
	data, err := json.MarshalIndent(c.credentials, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	switch c.method {
	case SecurityPlainText:
		path := filepath.Join(dataDir, plainCredentialsFile)
		return os.WriteFile(path, data, 0600)

	case SecuritySSHKey:
		if err := c.encManager.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize encryption: %w", err)
		}
		ciphertext, err := c.encManager.Encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		path := filepath.Join(dataDir, encryptedCredentialsFile)
		return os.WriteFile(path, ciphertext, 0600)

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}
