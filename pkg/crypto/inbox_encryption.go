package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	// Global encryption instance
	globalEncryptor *Encryptor
	once            sync.Once

	// Errors
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
)

// Encryptor handles AES-256-GCM encryption/decryption of stored tokens.
type Encryptor struct {
	key []byte
	gcm cipher.AEAD
	mu  sync.RWMutex
}

// NewEncryptor creates a new encryptor with the given key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	// Key must be 32 bytes for AES-256
	if len(key) != 32 {
		// Derive a 32-byte key using SHA-256
		hash := sha256.Sum256(key)
		key = hash[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{
		key: key,
		gcm: gcm,
	}, nil
}

// Init initializes the global encryptor using ENCRYPTION_KEY env var.
func Init() error {
	var initErr error
	once.Do(func() {
		key := os.Getenv("ENCRYPTION_KEY")
		if key == "" {
			// Fall back to JWT secret if encryption key not set
			key = os.Getenv("JWT_SECRET")
		}
		if key == "" {
			initErr = errors.New("ENCRYPTION_KEY or JWT_SECRET must be set")
			return
		}

		enc, err := NewEncryptor([]byte(key))
		if err != nil {
			initErr = err
			return
		}
		globalEncryptor = enc
	})
	return initErr
}

// Encrypt encrypts plaintext and returns base64-encoded ciphertext.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64-encoded ciphertext.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	nonce, encrypted := data[:nonceSize], data[nonceSize:]

	plaintext, err := e.gcm.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// Global convenience functions

// EncryptToken encrypts an OAuth token using the global encryptor.
func EncryptToken(token string) (string, error) {
	if globalEncryptor == nil {
		if err := Init(); err != nil {
			return "", err
		}
	}
	return globalEncryptor.Encrypt(token)
}

// DecryptToken decrypts an OAuth token using the global encryptor.
func DecryptToken(encryptedToken string) (string, error) {
	if globalEncryptor == nil {
		if err := Init(); err != nil {
			return "", err
		}
	}
	return globalEncryptor.Decrypt(encryptedToken)
}

// IsEncrypted checks if a string appears to be encrypted (base64 with at
// least nonce + GCM tag worth of bytes).
func IsEncrypted(s string) bool {
	if s == "" {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}

	return len(decoded) >= 28
}
