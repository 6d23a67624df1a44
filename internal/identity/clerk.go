package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const clerkAPIBase = "https://api.clerk.com/v1"

// ClerkProvider validates session tokens and stores user metadata through
// the Clerk backend API.
type ClerkProvider struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewClerkProvider builds a provider authenticated with the Clerk secret key.
func NewClerkProvider(secretKey string) *ClerkProvider {
	return &ClerkProvider{
		secretKey: secretKey,
		baseURL:   clerkAPIBase,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClerkProviderWithBaseURL is used by tests to point at a stub server.
func NewClerkProviderWithBaseURL(secretKey, baseURL string) *ClerkProvider {
	p := NewClerkProvider(secretKey)
	p.baseURL = baseURL
	return p
}

func (p *ClerkProvider) Name() string { return "clerk" }

// ValidateToken verifies a session token against Clerk. Every failure mode,
// HTTP error, non-200, unparseable body, maps to an invalid session.
func (p *ClerkProvider) ValidateToken(ctx context.Context, token string) Session {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return Session{Valid: false, Error: "internal encoding error"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/sessions/verify", bytes.NewReader(body))
	if err != nil {
		return Session{Valid: false, Error: "invalid validation request"}
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("clerk session verification unreachable")
		return Session{Valid: false, Error: "identity provider unreachable"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Session{Valid: false, Error: fmt.Sprintf("token rejected (status %d)", resp.StatusCode)}
	}

	var out struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Warn().Err(err).Msg("clerk session verification returned unparseable body")
		return Session{Valid: false, Error: "unparseable identity provider response"}
	}
	if out.Status != "active" || out.UserID == "" {
		return Session{Valid: false, Error: "session not active"}
	}

	return Session{Valid: true, UserID: out.UserID, SessionID: out.ID}
}

// GetUserMetadata reads the user's private metadata map.
func (p *ClerkProvider) GetUserMetadata(ctx context.Context, userID string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/users/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch user %s: status %d: %s", userID, resp.StatusCode, string(b))
	}

	var out struct {
		PrivateMetadata map[string]any `json:"private_metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}

	meta := make(map[string]string, len(out.PrivateMetadata))
	for k, v := range out.PrivateMetadata {
		if s, ok := v.(string); ok {
			meta[k] = s
		}
	}
	return meta, nil
}

// UpdateUserMetadata merges entries into the user's private metadata.
// Empty values are sent as null so Clerk drops the key.
func (p *ClerkProvider) UpdateUserMetadata(ctx context.Context, userID string, meta map[string]string) error {
	private := make(map[string]any, len(meta))
	for k, v := range meta {
		if v == "" {
			private[k] = nil
		} else {
			private[k] = v
		}
	}
	body, err := json.Marshal(map[string]any{"private_metadata": private})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, p.baseURL+"/users/"+userID+"/metadata", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("update metadata for %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("update metadata for %s: status %d: %s", userID, resp.StatusCode, string(b))
	}
	return nil
}
