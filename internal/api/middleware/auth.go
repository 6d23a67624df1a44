package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/twentymcp/twenty-mcp/internal/identity"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	sessionIDKey contextKey = "sessionID"
)

// GetUserID returns the authenticated user ID, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// GetSessionID returns the validated session ID, or "".
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// SetUserID stores the user ID in context. Exposed for handler tests.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// SetSessionID stores the session ID in context.
func SetSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// Auth authenticates requests via bearer tokens.
//
// With auth disabled every request passes through anonymously. With auth
// enabled, a presented token must be valid or the request is rejected, and
// requests without any token are rejected only when requireAuth is set.
type Auth struct {
	validator   *identity.Validator
	enabled     bool
	requireAuth bool
}

// NewAuth creates the auth middleware. validator may be nil when disabled.
func NewAuth(validator *identity.Validator, enabled, requireAuth bool) *Auth {
	return &Auth{validator: validator, enabled: enabled, requireAuth: requireAuth}
}

// Handler returns the HTTP middleware that authenticates requests.
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			if a.requireAuth {
				unauthorized(w, "authentication_required",
					"This endpoint requires authentication. Set an Authorization: Bearer <token> header.")
				return
			}
			// Optional auth: proceed anonymously.
			next.ServeHTTP(w, r)
			return
		}

		session := a.validator.ValidateBearer(r.Context(), header)
		if !session.Valid {
			log.Debug().Str("path", r.URL.Path).Str("reason", session.Error).Msg("token validation failed")
			unauthorized(w, "invalid_token", session.Error)
			return
		}

		ctx := SetUserID(r.Context(), session.UserID)
		ctx = SetSessionID(ctx, session.SessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests that did not authenticate. Used on routes that
// operate on per-user state, like the key-management API.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			unauthorized(w, "authentication_required", "This endpoint requires a valid bearer token.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="twenty-mcp"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
