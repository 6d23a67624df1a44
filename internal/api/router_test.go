package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twentymcp/twenty-mcp/internal/api"
	"github.com/twentymcp/twenty-mcp/internal/api/handlers"
	"github.com/twentymcp/twenty-mcp/internal/api/middleware"
	"github.com/twentymcp/twenty-mcp/internal/config"
	"github.com/twentymcp/twenty-mcp/internal/identity"
	"github.com/twentymcp/twenty-mcp/internal/ipfilter"
	"github.com/twentymcp/twenty-mcp/internal/keystore"
	"github.com/twentymcp/twenty-mcp/internal/resolver"
	"github.com/twentymcp/twenty-mcp/internal/secrets"
)

const encryptionSecret = "0123456789abcdef0123456789abcdef"

// memProvider is a stateful in-memory identity provider: one valid token,
// per-user metadata with empty-value-deletes semantics.
type memProvider struct {
	meta map[string]map[string]string
}

func newMemProvider() *memProvider {
	return &memProvider{meta: make(map[string]map[string]string)}
}

func (m *memProvider) Name() string { return "mem" }

func (m *memProvider) ValidateToken(_ context.Context, token string) identity.Session {
	if token == "good-token" {
		return identity.Session{Valid: true, UserID: "user_1", SessionID: "sess_1"}
	}
	return identity.Session{Valid: false, Error: "unknown token"}
}

func (m *memProvider) GetUserMetadata(_ context.Context, userID string) (map[string]string, error) {
	out := make(map[string]string, len(m.meta[userID]))
	for k, v := range m.meta[userID] {
		out[k] = v
	}
	return out, nil
}

func (m *memProvider) UpdateUserMetadata(_ context.Context, userID string, meta map[string]string) error {
	if m.meta[userID] == nil {
		m.meta[userID] = make(map[string]string)
	}
	for k, v := range meta {
		if v == "" {
			delete(m.meta[userID], k)
			continue
		}
		m.meta[userID][k] = v
	}
	return nil
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	filter, err := ipfilter.New(cfg.IPFilter)
	require.NoError(t, err)

	var (
		validator *identity.Validator
		keys      *keystore.Store
	)
	if cfg.Auth.Enabled {
		provider := newMemProvider()
		enc, err := secrets.New(encryptionSecret)
		require.NoError(t, err)
		validator = identity.NewValidator(provider)
		keys = keystore.New(provider, enc)
	}

	res := resolver.New(keys, cfg.Twenty)
	auth := middleware.NewAuth(validator, cfg.Auth.Enabled, cfg.Auth.RequireAuth)
	h := handlers.New(cfg, keys, res)
	return api.NewRouter(cfg, h, auth, filter)
}

func baseConfig() *config.Config {
	return &config.Config{
		Port:      3000,
		ServerURL: "http://localhost:3000",
		Version:   "test",
	}
}

func get(t *testing.T, router http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, baseConfig())

	rec := get(t, router, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["authEnabled"])
	assert.Equal(t, false, body["ipProtection"])
}

func TestRouter_WellKnownHiddenWhenAuthDisabled(t *testing.T) {
	router := newTestRouter(t, baseConfig())

	assert.Equal(t, http.StatusNotFound, get(t, router, "/.well-known/oauth-protected-resource", "").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/.well-known/oauth-authorization-server", "").Code)
}

func TestRouter_WellKnownServedWhenAuthEnabled(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth = config.AuthConfig{
		Enabled:          true,
		Provider:         config.ProviderClerk,
		EncryptionSecret: encryptionSecret,
		ClerkSecretKey:   "sk_test",
		ClerkDomain:      "auth.example.com",
	}
	router := newTestRouter(t, cfg)

	rec := get(t, router, "/.well-known/oauth-protected-resource", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, cfg.ServerURL, body["resource"])
	servers, _ := body["authorization_servers"].([]any)
	require.Len(t, servers, 1)
	assert.Equal(t, "https://auth.example.com", servers[0])
}

func TestRouter_KeyAPIRequiresAuth(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth = config.AuthConfig{
		Enabled:          true,
		Provider:         config.ProviderClerk,
		EncryptionSecret: encryptionSecret,
		ClerkSecretKey:   "sk_test",
	}
	router := newTestRouter(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, get(t, router, "/api/keys", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, router, "/api/keys", "bad-token").Code)
}

func TestRouter_KeyAPILifecycle(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth = config.AuthConfig{
		Enabled:          true,
		Provider:         config.ProviderClerk,
		EncryptionSecret: encryptionSecret,
		ClerkSecretKey:   "sk_test",
	}
	router := newTestRouter(t, cfg)

	// No key yet.
	rec := get(t, router, "/api/keys", "good-token")
	require.Equal(t, http.StatusOK, rec.Code)
	var status keystore.KeyMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.HasKey)

	// Store one.
	req := httptest.NewRequest(http.MethodPost, "/api/keys",
		strings.NewReader(`{"apiKey":"twenty-key-1","baseUrl":"https://crm.example.com"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Status reflects it without exposing the key.
	rec = get(t, router, "/api/keys", "good-token")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.HasKey)
	assert.Equal(t, "https://crm.example.com", status.BaseURL)
	assert.NotContains(t, rec.Body.String(), "twenty-key-1")

	// Delete it.
	req = httptest.NewRequest(http.MethodDelete, "/api/keys", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, router, "/api/keys", "good-token")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.HasKey)
}

func TestRouter_KeyAPIRejectsMalformedJSON(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth = config.AuthConfig{
		Enabled:          true,
		Provider:         config.ProviderClerk,
		EncryptionSecret: encryptionSecret,
		ClerkSecretKey:   "sk_test",
	}
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/keys", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JSON")
}

func TestRouter_MCPMissingCredentialsAnonymous(t *testing.T) {
	router := newTestRouter(t, baseConfig())

	rec := get(t, router, "/mcp", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing required apiKey parameter")
}

func TestRouter_MCPMissingCredentialsAuthenticated(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth = config.AuthConfig{
		Enabled:          true,
		Provider:         config.ProviderClerk,
		EncryptionSecret: encryptionSecret,
		ClerkSecretKey:   "sk_test",
	}
	router := newTestRouter(t, cfg)

	rec := get(t, router, "/mcp", "good-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No API key configured for your account")
}

func TestRouter_MCPQueryCredentialAccepted(t *testing.T) {
	router := newTestRouter(t, baseConfig())

	// Credential resolution succeeds; whatever the transport answers for a
	// bare GET, it must not be the missing-credential rejection.
	// The transport holds a bare GET open as an SSE stream until the request
	// context ends, so bound the request with a deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/mcp?apiKey=query-key", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotContains(t, rec.Body.String(), "Missing required apiKey parameter")
	assert.NotEqual(t, http.StatusBadRequest, rec.Code)
}

func requireAuthConfig() *config.Config {
	cfg := baseConfig()
	cfg.Auth = config.AuthConfig{
		Enabled:          true,
		RequireAuth:      true,
		Provider:         config.ProviderClerk,
		EncryptionSecret: encryptionSecret,
		ClerkSecretKey:   "sk_test",
	}
	return cfg
}

func TestRouter_PublicEndpointsBypassAuthGate(t *testing.T) {
	router := newTestRouter(t, requireAuthConfig())

	assert.Equal(t, http.StatusOK, get(t, router, "/health", "").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/.well-known/oauth-protected-resource", "").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/.well-known/oauth-authorization-server", "").Code)
}

func TestRouter_AuthGateMatrix(t *testing.T) {
	// Required: no token is rejected, a valid token reaches the handler.
	router := newTestRouter(t, requireAuthConfig())
	assert.Equal(t, http.StatusUnauthorized, get(t, router, "/mcp", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, router, "/mcp", "bad-token").Code)
	rec := get(t, router, "/mcp", "good-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "past the gate, fails on missing credentials")
	assert.Contains(t, rec.Body.String(), "No API key configured for your account")

	// Optional: no token proceeds anonymously, a bad token is still rejected.
	cfg := requireAuthConfig()
	cfg.Auth.RequireAuth = false
	router = newTestRouter(t, cfg)
	rec = get(t, router, "/mcp", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing required apiKey parameter")
	assert.Equal(t, http.StatusUnauthorized, get(t, router, "/mcp", "bad-token").Code)
}

func TestRouter_PreflightBypassesAuthGate(t *testing.T) {
	router := newTestRouter(t, requireAuthConfig())

	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusUnauthorized, rec.Code, "browsers send no Authorization on preflight")
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RejectionsCarryCORSHeaders(t *testing.T) {
	router := newTestRouter(t, requireAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_IPFilterRunsFirst(t *testing.T) {
	cfg := baseConfig()
	cfg.IPFilter = config.IPFilterConfig{
		Enabled:      true,
		Allowlist:    []string{"203.0.113.0/24"},
		BlockUnknown: true,
	}
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "198.51.100.1:55555"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "even /health is behind the filter")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.9:55555"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
