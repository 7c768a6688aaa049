package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenCodec(t *testing.T) {
	tests := []struct {
		name      string
		secret    string
		algorithm string
		wantErr   bool
	}{
		{name: "valid HS256", secret: "secret", algorithm: "HS256"},
		{name: "valid HS384", secret: "secret", algorithm: "HS384"},
		{name: "valid HS512", secret: "secret", algorithm: "HS512"},
		{name: "empty secret", secret: "", algorithm: "HS256", wantErr: true},
		{name: "unsupported algorithm", secret: "secret", algorithm: "RS256", wantErr: true},
		{name: "none algorithm", secret: "secret", algorithm: "none", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenCodec(tt.secret, tt.algorithm, time.Minute)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)

	token, err := codec.Issue("alice", 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, int64(42), claims.UserID)
}

func TestTokenExpired(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", "HS256", -time.Minute)
	require.NoError(t, err)

	token, err := codec.Issue("alice", 42)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.True(t, errors.Is(err, ErrTokenExpired), "expected ErrTokenExpired, got %v", err)
}

func TestTokenWrongSecret(t *testing.T) {
	codec, err := NewTokenCodec("secret-one", "HS256", time.Minute)
	require.NoError(t, err)
	other, err := NewTokenCodec("secret-two", "HS256", time.Minute)
	require.NoError(t, err)

	token, err := codec.Issue("alice", 42)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.True(t, errors.Is(err, ErrTokenMalformed), "expected ErrTokenMalformed, got %v", err)
}

func TestTokenGarbage(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", "HS256", time.Minute)
	require.NoError(t, err)

	for _, bad := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Verify(bad)
		assert.True(t, errors.Is(err, ErrTokenMalformed), "Verify(%q) = %v, want ErrTokenMalformed", bad, err)
	}
}

func TestTokenAlgorithmConfusion(t *testing.T) {
	// A token signed with HS512 must not verify under a codec locked to HS256.
	signer, err := NewTokenCodec("test-secret", "HS512", time.Minute)
	require.NoError(t, err)
	verifier, err := NewTokenCodec("test-secret", "HS256", time.Minute)
	require.NoError(t, err)

	token, err := signer.Issue("alice", 42)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}
