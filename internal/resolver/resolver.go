// Package resolver determines which upstream CRM credential and endpoint an
// inbound request should use. Precedence is an explicit ordered table of
// sources, evaluated per field, so the order lives in one place instead of
// scattered fallback conditionals.
package resolver

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/twentymcp/twenty-mcp/internal/config"
	"github.com/twentymcp/twenty-mcp/internal/keystore"
)

// Credentials is the per-request resolved credential set. Never persisted.
type Credentials struct {
	APIKey  string
	BaseURL string
	// Source names where each field came from, for diagnostics.
	APIKeySource  string
	BaseURLSource string
}

// MissingCredentialError means no source produced an API key. The message
// differs for authenticated and anonymous callers; both map to HTTP 400.
type MissingCredentialError struct {
	Authenticated bool
}

func (e *MissingCredentialError) Error() string {
	if e.Authenticated {
		return "No API key configured for your account. Store one via POST /api/keys before calling MCP tools."
	}
	return "Missing required apiKey parameter"
}

// source is one candidate credential origin. Fields left empty are skipped.
type source struct {
	name    string
	apiKey  string
	baseURL string
}

// Resolver merges query parameters, the per-user stored credential, and the
// environment fallback into one credential set.
type Resolver struct {
	keys     *keystore.Store
	fallback config.TwentyConfig
}

// New builds a Resolver. keys may be nil when auth is disabled; the stored
// credential source is then never consulted.
func New(keys *keystore.Store, fallback config.TwentyConfig) *Resolver {
	return &Resolver{keys: keys, fallback: fallback}
}

// Resolve applies the precedence table: query parameter, then (authenticated
// callers only) the stored credential, then the environment fallback, then
// for the base URL only the hardcoded default. userID is empty for anonymous
// requests.
func (r *Resolver) Resolve(ctx context.Context, query url.Values, userID string) (Credentials, error) {
	sources := []source{
		{name: "query", apiKey: query.Get("apiKey"), baseURL: query.Get("baseUrl")},
	}

	// The stored credential is consulted whenever it could still win a
	// field: each field resolves independently, so a query apiKey must not
	// suppress a stored baseUrl.
	if userID != "" && r.keys != nil && (query.Get("apiKey") == "" || query.Get("baseUrl") == "") {
		if cred, err := r.keys.GetKey(ctx, userID); err != nil {
			// Metadata-store trouble degrades to the next source rather than
			// failing the request outright.
			log.Warn().Str("user", userID).Err(err).Msg("stored credential unavailable, falling through")
		} else if cred != nil {
			sources = append(sources, source{name: "stored", apiKey: cred.APIKey, baseURL: cred.BaseURL})
		}
	}

	sources = append(sources,
		source{name: "env", apiKey: r.fallback.APIKey, baseURL: r.fallback.BaseURL},
		source{name: "default", baseURL: config.DefaultTwentyBaseURL},
	)

	var out Credentials
	for _, s := range sources {
		if out.APIKey == "" && s.apiKey != "" {
			out.APIKey = s.apiKey
			out.APIKeySource = s.name
		}
		if out.BaseURL == "" && s.baseURL != "" {
			out.BaseURL = s.baseURL
			out.BaseURLSource = s.name
		}
	}

	if out.APIKey == "" {
		return Credentials{}, &MissingCredentialError{Authenticated: userID != ""}
	}
	return out, nil
}
