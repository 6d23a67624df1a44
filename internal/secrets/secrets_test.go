package secrets_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twentymcp/twenty-mcp/internal/secrets"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNew_RejectsShortSecret(t *testing.T) {
	_, err := secrets.New("")
	assert.ErrorIs(t, err, secrets.ErrSecretTooShort)

	_, err = secrets.New("too-short")
	assert.ErrorIs(t, err, secrets.ErrSecretTooShort)
}

func TestEncrypt_RoundTrip(t *testing.T) {
	enc, err := secrets.New(testSecret)
	require.NoError(t, err)

	plaintexts := []string{
		"a",
		"twenty-api-key-abc123",
		strings.Repeat("x", 4096),
		"unicode: héllo wörld ✓",
	}
	for _, p := range plaintexts {
		blob, err := enc.Encrypt(p)
		require.NoError(t, err)

		got, err := enc.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestEncrypt_RejectsEmptyPlaintext(t *testing.T) {
	enc, err := secrets.New(testSecret)
	require.NoError(t, err)

	_, err = enc.Encrypt("")
	assert.ErrorIs(t, err, secrets.ErrEmptyPlaintext)
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	enc, err := secrets.New(testSecret)
	require.NoError(t, err)

	a, err := enc.Encrypt("same plaintext")
	require.NoError(t, err)
	b, err := enc.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "fresh nonce per call must yield distinct blobs")
}

func TestDecrypt_TamperDetection(t *testing.T) {
	enc, err := secrets.New(testSecret)
	require.NoError(t, err)

	blob, err := enc.Encrypt("sensitive-key")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// Flip one byte at every position; each mutation must fail, never
	// silently return a different plaintext.
	for i := range raw {
		mutated := make([]byte, len(raw))
		copy(mutated, raw)
		mutated[i] ^= 0x01

		_, err := enc.Decrypt(base64.StdEncoding.EncodeToString(mutated))
		assert.ErrorIs(t, err, secrets.ErrDecryption, "byte %d", i)
	}
}

func TestDecrypt_MalformedBlobs(t *testing.T) {
	enc, err := secrets.New(testSecret)
	require.NoError(t, err)

	for _, blob := range []string{"", "not-base64!!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := enc.Decrypt(blob)
		assert.ErrorIs(t, err, secrets.ErrDecryption, "blob %q", blob)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	encA, err := secrets.New(testSecret)
	require.NoError(t, err)
	encB, err := secrets.New("another-secret-that-is-long-enough!!")
	require.NoError(t, err)

	blob, err := encA.Encrypt("payload")
	require.NoError(t, err)

	_, err = encB.Decrypt(blob)
	assert.ErrorIs(t, err, secrets.ErrDecryption)
}
