// Package secrets implements encryption-at-rest for per-user upstream API
// keys. A single Encryptor is built at startup from the configured secret and
// shared by every request; the secret alone is the trust root.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// MinSecretLen is the minimum length of the configured encryption secret.
const MinSecretLen = 32

var (
	// ErrSecretTooShort is returned at construction for a missing or short secret.
	ErrSecretTooShort = errors.New("encryption secret must be at least 32 characters")

	// ErrEmptyPlaintext is returned when Encrypt is called with an empty string.
	ErrEmptyPlaintext = errors.New("plaintext must not be empty")

	// ErrDecryption covers every decrypt failure: malformed blob, truncated
	// blob, or authentication tag mismatch (tampering or wrong key). Callers
	// must never see corrupted plaintext.
	ErrDecryption = errors.New("decryption failed")
)

// keySalt is a design constant. All ciphertexts produced by one deployment
// share a derived key; rotation means re-encrypting under a new secret.
var keySalt = []byte("twenty-mcp-key-storage-v1")

// scrypt parameters (interactive profile).
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// Encryptor seals and opens credential blobs with AES-256-GCM under a key
// derived from the configured secret.
type Encryptor struct {
	aead cipher.AEAD
}

// New derives the symmetric key and builds the AEAD. Fails fast on a
// missing or too-short secret.
func New(secret string) (*Encryptor, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrSecretTooShort
	}

	key, err := scrypt.Key([]byte(secret), keySalt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns a
// transportable blob: base64(nonce || ciphertext || tag). Two calls with the
// same plaintext produce different blobs.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any failure, structural or cryptographic,
// surfaces as ErrDecryption.
func (e *Encryptor) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrDecryption
	}

	ns := e.aead.NonceSize()
	if len(raw) < ns+e.aead.Overhead() {
		return "", ErrDecryption
	}

	nonce, sealed := raw[:ns], raw[ns:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryption
	}
	return string(plaintext), nil
}
