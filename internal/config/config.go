// Package config loads and validates server configuration from environment
// variables. Validation is strict: a server with a broken security
// configuration (short encryption secret, malformed allowlist entry) must
// refuse to start rather than serve requests.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
)

// MinEncryptionSecretLen is the minimum length of API_KEY_ENCRYPTION_SECRET.
const MinEncryptionSecretLen = 32

// DefaultTwentyBaseURL is the upstream endpoint used when no other source
// supplies one.
const DefaultTwentyBaseURL = "https://api.twenty.com"

// AuthProviderKind selects the identity provider implementation.
type AuthProviderKind string

const (
	ProviderClerk AuthProviderKind = "clerk"
	ProviderJWT   AuthProviderKind = "jwt"
)

// Config holds all configuration for the Twenty MCP server.
type Config struct {
	Port      int
	ServerURL string
	Version   string

	Twenty    TwentyConfig
	Auth      AuthConfig
	IPFilter  IPFilterConfig
	Telemetry TelemetryConfig
}

// TwentyConfig is the global fallback credential set for the upstream CRM.
type TwentyConfig struct {
	APIKey  string
	BaseURL string
}

// AuthConfig controls the authentication gate and credential storage.
type AuthConfig struct {
	Enabled     bool
	RequireAuth bool
	Provider    AuthProviderKind

	// EncryptionSecret derives the key protecting stored user credentials.
	// Required (>= 32 chars) whenever auth is enabled.
	EncryptionSecret string

	ClerkSecretKey      string
	ClerkPublishableKey string
	ClerkDomain         string

	// Local JWT provider settings (AUTH_PROVIDER=jwt).
	JWTSigningSecret string
	MetadataDBPath   string
}

// IPFilterConfig configures the inbound address filter.
type IPFilterConfig struct {
	Enabled        bool
	Allowlist      []string
	TrustedProxies []string
	BlockUnknown   bool
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:      envInt("PORT", 3000),
		ServerURL: envStr("MCP_SERVER_URL", "http://localhost:3000"),
		Version:   envStr("TWENTY_MCP_VERSION", "1.2.0"),
		Twenty: TwentyConfig{
			APIKey:  envStr("TWENTY_API_KEY", ""),
			BaseURL: envStr("TWENTY_BASE_URL", ""),
		},
		Auth: AuthConfig{
			Enabled:             envBool("AUTH_ENABLED", false),
			RequireAuth:         envBool("REQUIRE_AUTH", false),
			Provider:            AuthProviderKind(envStr("AUTH_PROVIDER", string(ProviderClerk))),
			EncryptionSecret:    envStr("API_KEY_ENCRYPTION_SECRET", ""),
			ClerkSecretKey:      envStr("CLERK_SECRET_KEY", ""),
			ClerkPublishableKey: envStr("CLERK_PUBLISHABLE_KEY", ""),
			ClerkDomain:         envStr("CLERK_DOMAIN", ""),
			JWTSigningSecret:    envStr("JWT_SIGNING_SECRET", ""),
			MetadataDBPath:      envStr("METADATA_DB_PATH", "twenty-mcp.db"),
		},
		IPFilter: IPFilterConfig{
			Enabled:        envBool("IP_PROTECTION_ENABLED", false),
			Allowlist:      envList("IP_ALLOWLIST"),
			TrustedProxies: envList("TRUSTED_PROXIES"),
			BlockUnknown:   envBool("IP_BLOCK_UNKNOWN", true),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "twenty-mcp-server"),
		},
	}
}

// Validate checks invariants that must hold before the server starts serving.
func (c *Config) Validate() error {
	if c.Auth.Enabled {
		if len(c.Auth.EncryptionSecret) < MinEncryptionSecretLen {
			return fmt.Errorf("API_KEY_ENCRYPTION_SECRET must be at least %d characters when AUTH_ENABLED=true", MinEncryptionSecretLen)
		}
		switch c.Auth.Provider {
		case ProviderClerk:
			if c.Auth.ClerkSecretKey == "" {
				return fmt.Errorf("CLERK_SECRET_KEY is required when AUTH_PROVIDER=clerk")
			}
		case ProviderJWT:
			if c.Auth.JWTSigningSecret == "" {
				return fmt.Errorf("JWT_SIGNING_SECRET is required when AUTH_PROVIDER=jwt")
			}
		default:
			return fmt.Errorf("unknown AUTH_PROVIDER %q (want clerk or jwt)", c.Auth.Provider)
		}
	}

	if c.IPFilter.Enabled {
		for _, entry := range c.IPFilter.Allowlist {
			if err := validateAddressOrCIDR(entry); err != nil {
				return fmt.Errorf("IP_ALLOWLIST entry %q: %w", entry, err)
			}
		}
		for _, entry := range c.IPFilter.TrustedProxies {
			if err := validateAddressOrCIDR(entry); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES entry %q: %w", entry, err)
			}
		}
	}

	return nil
}

func validateAddressOrCIDR(entry string) error {
	if strings.Contains(entry, "/") {
		if _, err := netip.ParsePrefix(entry); err != nil {
			return fmt.Errorf("malformed CIDR: %w", err)
		}
		return nil
	}
	if _, err := netip.ParseAddr(entry); err != nil {
		return fmt.Errorf("malformed address: %w", err)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
