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

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the encryption key in bytes (32 bytes = 256 bits)
	KeySize = 32
	// NonceSize is the size of the nonce for GCM mode (12 bytes is recommended)
	NonceSize = 12
	// SaltSize is the size of the salt for key derivation (32 bytes)
	SaltSize = 32
	// Iterations is the number of iterations for PBKDF2
	Iterations = 100000
	// MinPassphraseLength is the shortest passphrase NewSealer accepts
	MinPassphraseLength = 16
)

// ErrDecrypt is returned when a sealed value fails authentication
var ErrDecrypt = errors.New("decryption failed")

// Sealer encrypts short values with AES-256-GCM under a key derived once
// from a passphrase and salt. Each value is bound to a label (passed as
// additional data) so sealed values cannot be moved between entries.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the key with PBKDF2-SHA256 and prepares the cipher
func NewSealer(passphrase string, salt []byte) (*Sealer, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("invalid salt size: expected %d, got %d", SaltSize, len(salt))
	}

	key := pbkdf2.Key([]byte(passphrase), salt, Iterations, KeySize, sha256.New)
	defer SecureZero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext and returns nonce followed by ciphertext
func (s *Sealer) Seal(plaintext []byte, label string) ([]byte, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(label)), nil
}

// Open reverses Seal. The label must match the one used to seal.
func (s *Sealer) Open(sealed []byte, label string) ([]byte, error) {
	if len(sealed) < NonceSize+s.aead.Overhead() {
		return nil, fmt.Errorf("invalid sealed data size: %d bytes", len(sealed))
	}

	plaintext, err := s.aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], []byte(label))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// SealString seals a string and returns it base64-encoded
func (s *Sealer) SealString(plaintext, label string) (string, error) {
	sealed, err := s.Seal([]byte(plaintext), label)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenString decodes and opens a value produced by SealString
func (s *Sealer) OpenString(encoded, label string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	plaintext, err := s.Open(sealed, label)
	if err != nil {
		return "", err
	}
	defer SecureZero(plaintext)
	return string(plaintext), nil
}

// NewSalt returns SaltSize random bytes
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GeneratePassphrase generates a random URL-safe passphrase of the given length
func GeneratePassphrase(length int) (string, error) {
	if length < MinPassphraseLength {
		return "", fmt.Errorf("passphrase length must be at least %d characters", MinPassphraseLength)
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(bytes)[:length], nil
}

// SecureZero zeros out sensitive byte slices
func SecureZero(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
