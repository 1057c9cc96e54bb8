package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("secret")

	raw, err := tokens.SignAccessToken(42, time.Hour)
	require.NoError(t, err)

	userID, err := tokens.VerifyAccessToken(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestAccessTokenRejectsForeignSecret(t *testing.T) {
	raw, err := NewTokens("other").SignAccessToken(42, time.Hour)
	require.NoError(t, err)

	_, err = NewTokens("secret").VerifyAccessToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokens("secret").VerifyAccessToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	tokens := NewTokens("secret")
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	raw, err := tokens.SignAccessToken(42, time.Hour)
	require.NoError(t, err)

	_, err = NewTokens("secret").VerifyAccessToken(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestLinkTokenFitsTelegramStartParameter(t *testing.T) {
	tokens := NewTokens("secret")

	raw, err := tokens.SignLinkToken(1234567890)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(raw), 64)
	assert.Regexp(t, `^[A-Za-z0-9_-]+$`, raw)

	userID, err := tokens.VerifyLinkToken(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890), userID)
}

func TestLinkTokenTampered(t *testing.T) {
	tokens := NewTokens("secret")
	raw, err := tokens.SignLinkToken(7)
	require.NoError(t, err)

	_, err = tokens.VerifyLinkToken("8" + raw[1:])
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.VerifyLinkToken("7_abc")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLinkTokenExpired(t *testing.T) {
	tokens := NewTokens("secret")
	raw, err := tokens.SignLinkToken(7)
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(LinkTokenTTL + time.Minute) }
	_, err = tokens.VerifyLinkToken(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
