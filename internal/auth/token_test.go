package auth

import (
	"testing"
	"time"

	"github.com/smallbiznis/tallybridge/internal/clock"
	"github.com/smallbiznis/tallybridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTokens(t *testing.T, clk clock.Clock) *Tokens {
	t.Helper()
	tokens, err := NewTokens(config.Config{AuthJWTSecret: "s3cret", AuthTokenTTL: 1}, clk, zaptest.NewLogger(t))
	require.NoError(t, err)
	return tokens
}

func TestIssueAndParse(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	tokens := newTokens(t, clk)

	raw, expiresAt, err := tokens.Issue(42, "ana", "Accountant")
	require.NoError(t, err)
	assert.Equal(t, clk.Now().UTC().Add(time.Hour).Unix(), expiresAt.Unix())

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, RoleAccountant, claims.Role)
	assert.Equal(t, "user:42", claims.Subject())
}

func TestParseRejects(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	tokens := newTokens(t, clk)

	raw, _, err := tokens.Issue(1, "", RoleAdmin)
	require.NoError(t, err)

	other, err := NewTokens(config.Config{AuthJWTSecret: "other"}, clk, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clk.Advance(2 * time.Hour)
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = tokens.Parse("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueValidation(t *testing.T) {
	tokens := newTokens(t, clock.NewSystemClock())

	_, _, err := tokens.Issue(0, "x", RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, _, err = tokens.Issue(1, "x", "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestNewTokensRequiresSecretInProduction(t *testing.T) {
	_, err := NewTokens(config.Config{Environment: "production"}, clock.NewSystemClock(), zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrNoSecret)

	tokens, err := NewTokens(config.Config{}, clock.NewSystemClock(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, tokens)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	token, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	_, err = BearerToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = BearerToken("Basic abc")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
