package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/ssh"
)

// EncryptionManager encrypts credential data with an AES-256 key derived
// deterministically from the user's SSH private key: the same key always
// decrypts the same data, and nothing secret is stored beside the
// ciphertext.
type EncryptionManager struct {
	sshKeyPath string
	signer     ssh.Signer
	aesKey     []byte
}

func NewEncryptionManager(sshKeyPath string) *EncryptionManager {
	return &EncryptionManager{sshKeyPath: sshKeyPath}
}

// Initialize loads the SSH key and derives the AES key. Safe to call more
// than once.
func (e *EncryptionManager) Initialize() error {
	if e.aesKey != nil {
		return nil
	}

	signer, err := loadSSHPrivateKey(e.sshKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load SSH key: %w", err)
	}
	e.signer = signer

	aesKey, err := deriveAESKeyFromSSH(signer)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	e.aesKey = aesKey

	return nil
}

// Encrypt encrypts plaintext as [nonce (12 bytes)][ciphertext + tag].
func (e *EncryptionManager) Encrypt(plaintext []byte) ([]byte, error) {
	if e.aesKey == nil {
		return nil, fmt.Errorf("encryption manager not initialized")
	}

	block, err := aes.NewCipher(e.aesKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt.
func (e *EncryptionManager) Decrypt(ciphertext []byte) ([]byte, error) {
	if e.aesKey == nil {
		return nil, fmt.Errorf("encryption manager not initialized")
	}

	block, err := aes.NewCipher(e.aesKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// loadSSHPrivateKey parses an unencrypted private key file. Passphrase
// protected keys are rejected with a pointer to ssh-agent.
func loadSSHPrivateKey(path string) (ssh.Signer, error) {
	if path == "" {
		return nil, fmt.Errorf("no SSH key path configured")
	}

	keyData, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		if _, ok := err.(*ssh.PassphraseMissingError); ok {
			return nil, fmt.Errorf("SSH key is passphrase protected; use an unencrypted key dedicated to credential storage")
		}
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}

	return signer, nil
}

// deriveAESKeyFromSSH signs a fixed message and hashes the signature into a
// 32-byte AES-256 key. Deterministic: the same SSH key always produces the
// same AES key.
func deriveAESKeyFromSSH(signer ssh.Signer) ([]byte, error) {
	message := []byte("quill-credential-key-derivation-v1")

	signature, err := signer.Sign(rand.Reader, message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign derivation message: %w", err)
	}

	hash := sha256.Sum256(signature.Blob)
	return hash[:], nil
}
