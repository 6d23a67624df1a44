// Package server is the public entry point for composing the Twenty MCP
// server: configuration, identity provider, credential store, resolver,
// connection filter, and the HTTP router.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":3000", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/twentymcp/twenty-mcp/internal/api"
	"github.com/twentymcp/twenty-mcp/internal/api/handlers"
	"github.com/twentymcp/twenty-mcp/internal/api/middleware"
	"github.com/twentymcp/twenty-mcp/internal/config"
	"github.com/twentymcp/twenty-mcp/internal/identity"
	"github.com/twentymcp/twenty-mcp/internal/ipfilter"
	"github.com/twentymcp/twenty-mcp/internal/keystore"
	"github.com/twentymcp/twenty-mcp/internal/resolver"
	"github.com/twentymcp/twenty-mcp/internal/secrets"
	"github.com/twentymcp/twenty-mcp/internal/telemetry"
)

// Server holds the initialized Twenty MCP server.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Config is the validated server configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown; it flushes
	// telemetry and closes the local metadata store if one is open.
	ShutdownFunc func(context.Context) error
}

// New loads configuration from the environment and initializes the server.
func New(ctx context.Context) (*Server, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the server with an explicit, already validated
// configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	filter, err := ipfilter.New(cfg.IPFilter)
	if err != nil {
		return nil, fmt.Errorf("init ip filter: %w", err)
	}
	if filter.Enabled() {
		log.Info().
			Strs("allowlist", cfg.IPFilter.Allowlist).
			Strs("trusted_proxies", cfg.IPFilter.TrustedProxies).
			Bool("block_unknown", cfg.IPFilter.BlockUnknown).
			Msg("IP protection enabled")
	}

	var (
		validator *identity.Validator
		keys      *keystore.Store
		closeFn   func() error
	)
	if cfg.Auth.Enabled {
		provider, closer, err := newProvider(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("init auth provider: %w", err)
		}
		closeFn = closer

		encryptor, err := secrets.New(cfg.Auth.EncryptionSecret)
		if err != nil {
			return nil, fmt.Errorf("init encryptor: %w", err)
		}

		validator = identity.NewValidator(provider)
		keys = keystore.New(provider, encryptor)

		log.Info().
			Str("provider", provider.Name()).
			Bool("require_auth", cfg.Auth.RequireAuth).
			Msg("authentication enabled")
	} else {
		log.Info().Msg("authentication disabled, serving anonymously")
	}

	res := resolver.New(keys, cfg.Twenty)
	auth := middleware.NewAuth(validator, cfg.Auth.Enabled, cfg.Auth.RequireAuth)
	h := handlers.New(cfg, keys, res)
	router := api.NewRouter(cfg, h, auth, filter)

	shutdown := func(ctx context.Context) error {
		if closeFn != nil {
			if err := closeFn(); err != nil {
				log.Warn().Err(err).Msg("closing metadata store failed")
			}
		}
		return shutdownTelemetry(ctx)
	}

	return &Server{
		Handler:      router,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// newProvider builds the configured identity provider. The second return is
// a close function, nil when the provider holds no resources.
func newProvider(cfg config.AuthConfig) (identity.Provider, func() error, error) {
	switch cfg.Provider {
	case config.ProviderClerk:
		return identity.NewClerkProvider(cfg.ClerkSecretKey), nil, nil
	case config.ProviderJWT:
		p, err := identity.NewLocalProvider(cfg.JWTSigningSecret, cfg.MetadataDBPath)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
	}
}
