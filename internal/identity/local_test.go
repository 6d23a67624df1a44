package identity_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twentymcp/twenty-mcp/internal/identity"
)

const signingSecret = "local-test-signing-secret"

func newLocalProvider(t *testing.T) *identity.LocalProvider {
	t.Helper()
	p, err := identity.NewLocalProvider(signingSecret, filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestLocalProvider_ValidToken(t *testing.T) {
	p := newLocalProvider(t)

	token := signToken(t, jwt.MapClaims{
		"sub": "user_42",
		"sid": "sess_abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, signingSecret)

	sess := p.ValidateToken(context.Background(), token)
	assert.True(t, sess.Valid)
	assert.Equal(t, "user_42", sess.UserID)
	assert.Equal(t, "sess_abc", sess.SessionID)
}

func TestLocalProvider_GeneratesSessionID(t *testing.T) {
	p := newLocalProvider(t)

	token := signToken(t, jwt.MapClaims{
		"sub": "user_42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, signingSecret)

	sess := p.ValidateToken(context.Background(), token)
	assert.True(t, sess.Valid)
	assert.NotEmpty(t, sess.SessionID)
}

func TestLocalProvider_RejectsBadTokens(t *testing.T) {
	p := newLocalProvider(t)

	expired := signToken(t, jwt.MapClaims{
		"sub": "user_42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, signingSecret)
	wrongKey := signToken(t, jwt.MapClaims{
		"sub": "user_42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, "a-different-secret")
	noSubject := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}, signingSecret)

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"garbage":    "not.a.jwt",
	} {
		sess := p.ValidateToken(context.Background(), token)
		assert.False(t, sess.Valid, name)
	}
}

func TestLocalProvider_RejectsNonHS256(t *testing.T) {
	p := newLocalProvider(t)

	// alg=none tokens must never validate.
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user_42"})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	sess := p.ValidateToken(context.Background(), s)
	assert.False(t, sess.Valid)
}

func TestLocalProvider_MetadataRoundTrip(t *testing.T) {
	p := newLocalProvider(t)
	ctx := context.Background()

	meta, err := p.GetUserMetadata(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, meta)

	require.NoError(t, p.UpdateUserMetadata(ctx, "user_1", map[string]string{
		"twenty_api_key":  "blob-1",
		"twenty_base_url": "https://crm.example.com",
	}))

	meta, err = p.GetUserMetadata(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "blob-1", meta["twenty_api_key"])
	assert.Equal(t, "https://crm.example.com", meta["twenty_base_url"])

	// Overwrite wins, empty value deletes.
	require.NoError(t, p.UpdateUserMetadata(ctx, "user_1", map[string]string{
		"twenty_api_key":  "blob-2",
		"twenty_base_url": "",
	}))

	meta, err = p.GetUserMetadata(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "blob-2", meta["twenty_api_key"])
	_, ok := meta["twenty_base_url"]
	assert.False(t, ok)
}
