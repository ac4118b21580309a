package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", subject)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue("admin")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour).Verify(token)
	require.Error(t, err)
}

func TestTokenExpiryRejected(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	issuer := NewTokenIssuer("test-secret", time.Hour)
	issuer.now = func() time.Time { return issued }
	token, err := issuer.Issue("admin")
	require.NoError(t, err)

	verifier := NewTokenIssuer("test-secret", time.Hour)
	verifier.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	_, err := NewTokenIssuer("test-secret", time.Hour).Verify("not-a-token")
	require.Error(t, err)
}
