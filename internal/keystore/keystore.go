// Package keystore persists per-user upstream CRM credentials through the
// identity provider's user-metadata facility. API keys are encrypted before
// they leave this package and are never stored or transmitted in plaintext.
package keystore

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/twentymcp/twenty-mcp/internal/identity"
	"github.com/twentymcp/twenty-mcp/internal/secrets"
)

// Metadata keys used in the identity provider's per-user map.
const (
	metaAPIKey    = "twenty_api_key"
	metaBaseURL   = "twenty_base_url"
	metaUpdatedAt = "twenty_key_updated_at"
)

// ErrInvalidArgument is returned for an empty user id or API key.
var ErrInvalidArgument = errors.New("userID and apiKey must not be empty")

// Credential is a decrypted, usable upstream credential.
type Credential struct {
	APIKey  string
	BaseURL string
}

// KeyMetadata describes a stored credential without exposing it.
type KeyMetadata struct {
	HasKey    bool       `json:"hasKey"`
	BaseURL   string     `json:"baseUrl,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Store encrypts and persists user credentials.
type Store struct {
	provider  identity.Provider
	encryptor *secrets.Encryptor
	now       func() time.Time
}

// New builds a credential store over the identity provider and encryptor.
func New(provider identity.Provider, encryptor *secrets.Encryptor) *Store {
	return &Store{provider: provider, encryptor: encryptor, now: time.Now}
}

// StoreKey encrypts apiKey and writes it, the optional base URL, and an
// updated-at stamp to the user's metadata. Overwrites any existing record.
func (s *Store) StoreKey(ctx context.Context, userID, apiKey, baseURL string) error {
	if userID == "" || apiKey == "" {
		return ErrInvalidArgument
	}

	blob, err := s.encryptor.Encrypt(apiKey)
	if err != nil {
		return err
	}

	return s.provider.UpdateUserMetadata(ctx, userID, map[string]string{
		metaAPIKey:    blob,
		metaBaseURL:   baseURL,
		metaUpdatedAt: s.now().UTC().Format(time.RFC3339),
	})
}

// GetKey returns the user's decrypted credential, or nil when none is stored.
// A stored-but-undecryptable record is logged and treated as absent; callers
// never crash on corruption.
func (s *Store) GetKey(ctx context.Context, userID string) (*Credential, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}

	meta, err := s.provider.GetUserMetadata(ctx, userID)
	if err != nil {
		return nil, err
	}

	blob := meta[metaAPIKey]
	if blob == "" {
		return nil, nil
	}

	apiKey, err := s.encryptor.Decrypt(blob)
	if err != nil {
		log.Error().Str("user", userID).Err(err).Msg("stored credential failed decryption, treating as absent")
		return nil, nil
	}

	return &Credential{APIKey: apiKey, BaseURL: meta[metaBaseURL]}, nil
}

// DeleteKey clears the stored credential fields.
func (s *Store) DeleteKey(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidArgument
	}
	return s.provider.UpdateUserMetadata(ctx, userID, map[string]string{
		metaAPIKey:    "",
		metaBaseURL:   "",
		metaUpdatedAt: "",
	})
}

// Metadata reports whether a key is stored, and when, without decrypting.
func (s *Store) Metadata(ctx context.Context, userID string) (*KeyMetadata, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}

	meta, err := s.provider.GetUserMetadata(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &KeyMetadata{
		HasKey:  meta[metaAPIKey] != "",
		BaseURL: meta[metaBaseURL],
	}
	if stamp := meta[metaUpdatedAt]; stamp != "" {
		if ts, err := time.Parse(time.RFC3339, stamp); err == nil {
			out.UpdatedAt = &ts
		}
	}
	return out, nil
}

// RotateKey replaces the stored credential. Semantically identical to
// StoreKey; kept as a named operation for the key-management API.
func (s *Store) RotateKey(ctx context.Context, userID, apiKey, baseURL string) error {
	return s.StoreKey(ctx, userID, apiKey, baseURL)
}
