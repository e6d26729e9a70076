package security

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	userID := uuid.New()

	raw, err := issuer.IssueAccess(userID)
	require.NoError(t, err)

	claims, err := issuer.VerifyAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.NotEmpty(t, claims.ID, "jti must be set for revocation")
}

func TestRefreshTokenNotValidAsAccess(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	refresh, err := issuer.IssueRefresh(uuid.New())
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrWrongUse)

	_, err = issuer.VerifyRefresh(refresh)
	assert.NoError(t, err)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	raw, err := NewTokenIssuer("secret-a").IssueAccess(uuid.New())
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b").VerifyAccess(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbageRejected(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	_, err := issuer.VerifyAccess("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}
