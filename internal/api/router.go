// Package api wires the HTTP surface: connection filtering, authentication,
// discovery endpoints, key management, and the MCP protocol endpoint.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/twentymcp/twenty-mcp/internal/api/handlers"
	"github.com/twentymcp/twenty-mcp/internal/api/middleware"
	"github.com/twentymcp/twenty-mcp/internal/config"
	"github.com/twentymcp/twenty-mcp/internal/ipfilter"
)

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *config.Config, h *handlers.Handlers, auth *middleware.Auth, filter *ipfilter.Filter) http.Handler {
	r := chi.NewRouter()

	// The IP filter runs first: a denied peer gets 403 before CORS
	// preflight, health checks, or auth ever see the request.
	r.Use(middleware.IPFilter(filter))

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)

	// CORS sits outside the auth gate: preflights complete without a token,
	// and rejection responses (401, 400) still carry CORS headers.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id", "X-Request-Id"},
		ExposedHeaders:   []string{"Mcp-Session-Id", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & discovery never require a token: discovery exists so that
	// unauthenticated clients can learn how to authenticate.
	r.Get("/health", h.Health)
	r.Get("/.well-known/oauth-protected-resource", h.ProtectedResource)
	r.Get("/.well-known/oauth-authorization-server", h.AuthorizationServer)

	// Key management: always requires an authenticated caller.
	r.Route("/api/keys", func(r chi.Router) {
		r.Use(auth.Handler)
		r.Use(middleware.RequireUser)
		r.Get("/", h.GetKeyStatus)
		r.Post("/", h.StoreKey)
		r.Delete("/", h.DeleteKey)
	})

	// MCP protocol endpoint, behind the auth gate. The streamable transport
	// handles GET, POST, and DELETE itself.
	r.Group(func(r chi.Router) {
		r.Use(auth.Handler)
		r.HandleFunc("/mcp", h.MCP)
		r.HandleFunc("/mcp/*", h.MCP)
	})

	return r
}
