package resolver_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twentymcp/twenty-mcp/internal/config"
	"github.com/twentymcp/twenty-mcp/internal/identity"
	"github.com/twentymcp/twenty-mcp/internal/keystore"
	"github.com/twentymcp/twenty-mcp/internal/resolver"
	"github.com/twentymcp/twenty-mcp/internal/secrets"
)

type memProvider struct {
	meta map[string]map[string]string
}

func (m *memProvider) Name() string { return "mem" }

func (m *memProvider) ValidateToken(context.Context, string) identity.Session {
	return identity.Session{Valid: false}
}

func (m *memProvider) GetUserMetadata(_ context.Context, userID string) (map[string]string, error) {
	out := make(map[string]string)
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

func newKeystoreWith(t *testing.T, userID, apiKey, baseURL string) *keystore.Store {
	t.Helper()
	enc, err := secrets.New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	ks := keystore.New(&memProvider{meta: make(map[string]map[string]string)}, enc)
	if apiKey != "" {
		require.NoError(t, ks.StoreKey(context.Background(), userID, apiKey, baseURL))
	}
	return ks
}

func TestResolve_QueryParamWinsOverStoredKey(t *testing.T) {
	ks := newKeystoreWith(t, "user_1", "B", "")
	r := resolver.New(ks, config.TwentyConfig{})

	q := url.Values{"apiKey": {"A"}}
	creds, err := r.Resolve(context.Background(), q, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "A", creds.APIKey)
	assert.Equal(t, "query", creds.APIKeySource)
}

func TestResolve_StoredKeyUsedWhenNoQueryParam(t *testing.T) {
	ks := newKeystoreWith(t, "user_1", "B", "https://stored.example.com")
	r := resolver.New(ks, config.TwentyConfig{APIKey: "env-key"})

	creds, err := r.Resolve(context.Background(), url.Values{}, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "B", creds.APIKey)
	assert.Equal(t, "stored", creds.APIKeySource)
	assert.Equal(t, "https://stored.example.com", creds.BaseURL)
}

func TestResolve_EnvFallbackForAnonymous(t *testing.T) {
	r := resolver.New(nil, config.TwentyConfig{APIKey: "env-key", BaseURL: "https://env.example.com"})

	creds, err := r.Resolve(context.Background(), url.Values{}, "")
	require.NoError(t, err)
	assert.Equal(t, "env-key", creds.APIKey)
	assert.Equal(t, "https://env.example.com", creds.BaseURL)
}

func TestResolve_DefaultBaseURL(t *testing.T) {
	r := resolver.New(nil, config.TwentyConfig{APIKey: "env-key"})

	creds, err := r.Resolve(context.Background(), url.Values{}, "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTwentyBaseURL, creds.BaseURL)
	assert.Equal(t, "default", creds.BaseURLSource)
}

func TestResolve_FieldsResolveIndependently(t *testing.T) {
	// apiKey from query, baseUrl from stored record.
	ks := newKeystoreWith(t, "user_1", "B", "https://stored.example.com")
	r := resolver.New(ks, config.TwentyConfig{})

	q := url.Values{"baseUrl": {"https://query.example.com"}}
	creds, err := r.Resolve(context.Background(), q, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "B", creds.APIKey)
	assert.Equal(t, "https://query.example.com", creds.BaseURL)
}

func TestResolve_StoredBaseURLWinsDespiteQueryAPIKey(t *testing.T) {
	ks := newKeystoreWith(t, "user_1", "B", "https://stored.example.com")
	r := resolver.New(ks, config.TwentyConfig{})

	// apiKey from query, baseUrl from the stored record: a query apiKey
	// must not suppress the stored source for the other field.
	q := url.Values{"apiKey": {"A"}}
	creds, err := r.Resolve(context.Background(), q, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "A", creds.APIKey)
	assert.Equal(t, "query", creds.APIKeySource)
	assert.Equal(t, "https://stored.example.com", creds.BaseURL)
	assert.Equal(t, "stored", creds.BaseURLSource)
}

func TestResolve_MissingKeyMessages(t *testing.T) {
	r := resolver.New(newKeystoreWith(t, "user_1", "", ""), config.TwentyConfig{})

	_, err := r.Resolve(context.Background(), url.Values{}, "")
	var anon *resolver.MissingCredentialError
	require.ErrorAs(t, err, &anon)
	assert.False(t, anon.Authenticated)
	assert.Contains(t, anon.Error(), "Missing required apiKey parameter")

	_, err = r.Resolve(context.Background(), url.Values{}, "user_1")
	var authed *resolver.MissingCredentialError
	require.ErrorAs(t, err, &authed)
	assert.True(t, authed.Authenticated)
	assert.Contains(t, authed.Error(), "/api/keys")
	assert.NotEqual(t, anon.Error(), authed.Error())
}
