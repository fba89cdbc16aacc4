package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosix/kosix/internal/auth"
)

const testSecret = "test-signing-secret"

func newIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(testSecret, 30*time.Minute, 7*24*time.Hour)
}

func TestIssueAndValidate_Access(t *testing.T) {
	issuer := newIssuer()
	accountID := uuid.New()

	token, err := issuer.Issue(accountID, auth.TokenAccess)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3, "token should be a three-part JWT")

	subject, err := issuer.Validate(token, auth.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, accountID, subject)
}

func TestIssueAndValidate_Refresh(t *testing.T) {
	issuer := newIssuer()
	accountID := uuid.New()

	token, err := issuer.Issue(accountID, auth.TokenRefresh)
	require.NoError(t, err)

	subject, err := issuer.Validate(token, auth.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, accountID, subject)
}

func TestValidate_WrongKind(t *testing.T) {
	issuer := newIssuer()

	access, err := issuer.Issue(uuid.New(), auth.TokenAccess)
	require.NoError(t, err)

	_, err = issuer.Validate(access, auth.TokenRefresh)
	assert.ErrorIs(t, err, auth.ErrWrongTokenType)

	refresh, err := issuer.Issue(uuid.New(), auth.TokenRefresh)
	require.NoError(t, err)

	_, err = issuer.Validate(refresh, auth.TokenAccess)
	assert.ErrorIs(t, err, auth.ErrWrongTokenType)
}

func TestValidate_Expired(t *testing.T) {
	issuer := auth.NewTokenIssuer(testSecret, -time.Minute, -time.Minute)

	token, err := issuer.Issue(uuid.New(), auth.TokenAccess)
	require.NoError(t, err)

	_, err = issuer.Validate(token, auth.TokenAccess)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestValidate_Malformed(t *testing.T) {
	issuer := newIssuer()

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.Validate(tok, auth.TokenAccess)
		assert.ErrorIs(t, err, auth.ErrInvalidToken, "token %q", tok)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	issuer := newIssuer()
	other := auth.NewTokenIssuer("another-secret", 30*time.Minute, 7*24*time.Hour)

	token, err := other.Issue(uuid.New(), auth.TokenAccess)
	require.NoError(t, err)

	_, err = issuer.Validate(token, auth.TokenAccess)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidate_Tampered(t *testing.T) {
	issuer := newIssuer()

	token, err := issuer.Issue(uuid.New(), auth.TokenAccess)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	_, err = issuer.Validate(tampered, auth.TokenAccess)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestIssuePair(t *testing.T) {
	issuer := newIssuer()
	accountID := uuid.New()

	pair, err := issuer.IssuePair(accountID)
	require.NoError(t, err)

	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, 1800, pair.ExpiresIn, "expiresIn should be the access TTL in seconds")

	subject, err := issuer.Validate(pair.AccessToken, auth.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, accountID, subject)

	subject, err = issuer.Validate(pair.RefreshToken, auth.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, accountID, subject)
}
