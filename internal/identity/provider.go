// Package identity abstracts the external identity provider: bearer-token
// validation and per-user metadata storage. The provider is the sole source
// of truth for session liveness; this package adds a short-lived positive
// cache on top (see Validator).
package identity

import "context"

// Session is the outcome of validating one bearer token.
type Session struct {
	Valid     bool   `json:"valid"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Provider is the identity-provider contract. Implementations must never
// panic or leak transport errors: a failed validation is a Session with
// Valid=false, not an error return, unless the operation itself (metadata
// read/write) cannot complete.
type Provider interface {
	// Name identifies the implementation ("clerk", "jwt").
	Name() string

	// ValidateToken resolves a raw bearer token to a session. Transport or
	// parse failures become an invalid Session with a diagnostic Error.
	ValidateToken(ctx context.Context, token string) Session

	// GetUserMetadata returns the private metadata map for a user.
	// A user with no metadata yields an empty map, not an error.
	GetUserMetadata(ctx context.Context, userID string) (map[string]string, error)

	// UpdateUserMetadata merges the given entries into the user's private
	// metadata. An empty value deletes the key.
	UpdateUserMetadata(ctx context.Context, userID string, meta map[string]string) error
}
