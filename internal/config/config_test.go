package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAuthConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			Enabled:          true,
			Provider:         ProviderClerk,
			EncryptionSecret: strings.Repeat("s", MinEncryptionSecretLen),
			ClerkSecretKey:   "sk_test",
		},
	}
}

func TestValidate_AuthDisabledNeedsNothing(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ShortEncryptionSecret(t *testing.T) {
	cfg := validAuthConfig()
	cfg.Auth.EncryptionSecret = "too-short"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_KEY_ENCRYPTION_SECRET")
}

func TestValidate_ProviderRequirements(t *testing.T) {
	cfg := validAuthConfig()
	cfg.Auth.ClerkSecretKey = ""
	assert.Error(t, cfg.Validate())

	cfg = validAuthConfig()
	cfg.Auth.Provider = ProviderJWT
	assert.Error(t, cfg.Validate(), "jwt provider needs a signing secret")
	cfg.Auth.JWTSigningSecret = "signing-secret"
	assert.NoError(t, cfg.Validate())

	cfg = validAuthConfig()
	cfg.Auth.Provider = "saml"
	assert.Error(t, cfg.Validate())
}

func TestValidate_IPFilterEntries(t *testing.T) {
	cfg := &Config{IPFilter: IPFilterConfig{
		Enabled:   true,
		Allowlist: []string{"192.168.1.0/24", "10.0.0.5", "2001:db8::1"},
	}}
	assert.NoError(t, cfg.Validate())

	cfg.IPFilter.Allowlist = []string{"not-an-address"}
	assert.Error(t, cfg.Validate())

	cfg.IPFilter.Allowlist = nil
	cfg.IPFilter.TrustedProxies = []string{"10.0.0.0/33"}
	assert.Error(t, cfg.Validate())
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_LIST", "a, b ,,c")

	assert.Equal(t, "value", envStr("TEST_STR", "fallback"))
	assert.Equal(t, "fallback", envStr("TEST_STR_MISSING", "fallback"))
	assert.Equal(t, 42, envInt("TEST_INT", 7))
	assert.Equal(t, 7, envInt("TEST_INT_MISSING", 7))
	assert.True(t, envBool("TEST_BOOL", false))
	assert.Equal(t, []string{"a", "b", "c"}, envList("TEST_LIST"))
	assert.Nil(t, envList("TEST_LIST_MISSING"))
}
