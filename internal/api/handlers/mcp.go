package handlers

import (
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/twentymcp/twenty-mcp/internal/api/middleware"
	"github.com/twentymcp/twenty-mcp/internal/resolver"
	"github.com/twentymcp/twenty-mcp/internal/tools"
	"github.com/twentymcp/twenty-mcp/internal/twenty"
)

// MCP serves the MCP protocol endpoint. Each request resolves its own
// credential and gets a fresh server instance, so no CRM client or tool
// state is shared between callers.
func (h *Handlers) MCP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	creds, err := h.resolver.Resolve(r.Context(), r.URL.Query(), userID)
	if err != nil {
		var missing *resolver.MissingCredentialError
		if errors.As(err, &missing) {
			writeError(w, http.StatusBadRequest, "missing_credentials", missing.Error())
			return
		}
		log.Error().Err(err).Msg("credential resolution failed")
		writeError(w, http.StatusInternalServerError, "resolution_failed", "Could not resolve upstream credentials")
		return
	}

	log.Debug().
		Str("key_source", creds.APIKeySource).
		Str("url_source", creds.BaseURLSource).
		Bool("authenticated", userID != "").
		Msg("serving MCP request")

	client := twenty.NewClient(creds.BaseURL, creds.APIKey)
	mcpServer := tools.NewServer(client, h.cfg.Version)

	streamable := server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
	)
	streamable.ServeHTTP(w, r)
}
