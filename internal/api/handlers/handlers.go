// Package handlers implements the HTTP endpoints: health and discovery,
// key management, and the MCP protocol endpoint itself.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/twentymcp/twenty-mcp/internal/config"
	"github.com/twentymcp/twenty-mcp/internal/keystore"
	"github.com/twentymcp/twenty-mcp/internal/resolver"
)

// Handlers bundles the endpoint dependencies.
type Handlers struct {
	cfg      *config.Config
	keys     *keystore.Store
	resolver *resolver.Resolver
}

// New builds the handler set. keys is nil when auth is disabled.
func New(cfg *config.Config, keys *keystore.Store, res *resolver.Resolver) *Handlers {
	return &Handlers{cfg: cfg, keys: keys, resolver: res}
}

// Health reports liveness and which protections are active.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"service":      "twenty-mcp-server",
		"version":      h.cfg.Version,
		"authEnabled":  h.cfg.Auth.Enabled,
		"ipProtection": h.cfg.IPFilter.Enabled,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
