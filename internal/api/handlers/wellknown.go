package handlers

import (
	"net/http"

	"github.com/twentymcp/twenty-mcp/internal/config"
)

// ProtectedResource serves RFC 9728 OAuth protected-resource metadata so MCP
// clients can discover the authorization server. 404 when auth is disabled.
func (h *Handlers) ProtectedResource(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Auth.Enabled {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource":                              h.cfg.ServerURL,
		"authorization_servers":                 []string{h.authorizationServer()},
		"bearer_methods_supported":              []string{"header"},
		"resource_documentation":                h.cfg.ServerURL + "/health",
		"resource_signing_alg_values_supported": []string{"RS256", "HS256"},
	})
}

// AuthorizationServer serves RFC 8414 authorization-server metadata. With the
// Clerk provider it points at the Clerk domain; the local JWT provider has no
// interactive flow, so only token validation is advertised.
func (h *Handlers) AuthorizationServer(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Auth.Enabled {
		http.NotFound(w, r)
		return
	}
	issuer := h.authorizationServer()
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                issuer,
		"authorization_endpoint":                issuer + "/oauth/authorize",
		"token_endpoint":                        issuer + "/oauth/token",
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code", "refresh_token"},
		"code_challenge_methods_supported":      []string{"S256"},
		"token_endpoint_auth_methods_supported": []string{"none", "client_secret_basic"},
	})
}

func (h *Handlers) authorizationServer() string {
	if h.cfg.Auth.Provider == config.ProviderClerk && h.cfg.Auth.ClerkDomain != "" {
		return "https://" + h.cfg.Auth.ClerkDomain
	}
	return h.cfg.ServerURL
}
