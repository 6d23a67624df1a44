package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twentymcp/twenty-mcp/internal/identity"
)

func newClerkStub(t *testing.T, handler http.HandlerFunc) *identity.ClerkProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return identity.NewClerkProviderWithBaseURL("sk_test_secret", srv.URL)
}

func TestClerkProvider_ValidateToken(t *testing.T) {
	p := newClerkStub(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sessions/verify", r.URL.Path)
		require.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "sess-token", body["token"])

		json.NewEncoder(w).Encode(map[string]string{
			"id": "sess_1", "user_id": "user_1", "status": "active",
		})
	})

	sess := p.ValidateToken(context.Background(), "sess-token")
	assert.True(t, sess.Valid)
	assert.Equal(t, "user_1", sess.UserID)
	assert.Equal(t, "sess_1", sess.SessionID)
}

func TestClerkProvider_InactiveSessionInvalid(t *testing.T) {
	p := newClerkStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"id": "sess_1", "user_id": "user_1", "status": "revoked",
		})
	})

	sess := p.ValidateToken(context.Background(), "sess-token")
	assert.False(t, sess.Valid)
}

func TestClerkProvider_ErrorStatusInvalid(t *testing.T) {
	p := newClerkStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	sess := p.ValidateToken(context.Background(), "sess-token")
	assert.False(t, sess.Valid)
	assert.NotEmpty(t, sess.Error)
}

func TestClerkProvider_UnreachableInvalid(t *testing.T) {
	p := identity.NewClerkProviderWithBaseURL("sk_test_secret", "http://127.0.0.1:1")

	sess := p.ValidateToken(context.Background(), "sess-token")
	assert.False(t, sess.Valid)
}

func TestClerkProvider_MetadataRoundTrip(t *testing.T) {
	var patched map[string]any
	p := newClerkStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users/user_1":
			json.NewEncoder(w).Encode(map[string]any{
				"private_metadata": map[string]any{
					"twenty_api_key": "blob",
					"ignored_number": 42,
				},
			})
		case r.Method == http.MethodPatch && r.URL.Path == "/users/user_1/metadata":
			var body struct {
				PrivateMetadata map[string]any `json:"private_metadata"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			patched = body.PrivateMetadata
			json.NewEncoder(w).Encode(map[string]any{})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	meta, err := p.GetUserMetadata(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "blob", meta["twenty_api_key"])
	_, ok := meta["ignored_number"]
	assert.False(t, ok, "non-string metadata values are dropped")

	require.NoError(t, p.UpdateUserMetadata(ctx, "user_1", map[string]string{
		"twenty_api_key":  "blob-2",
		"twenty_base_url": "",
	}))
	assert.Equal(t, "blob-2", patched["twenty_api_key"])
	val, present := patched["twenty_base_url"]
	assert.True(t, present, "deletion is an explicit null")
	assert.Nil(t, val)
}
