package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flameapp/flame-backend/internal/apperr"
	"github.com/flameapp/flame-backend/internal/config"
	"github.com/flameapp/flame-backend/internal/token"
)

func testService(accessTTL time.Duration) *token.Service {
	cfg := config.New()
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTTL = accessTTL
	cfg.JWT.RefreshTTL = 24 * time.Hour
	return token.NewService(cfg)
}

func TestIssueAndDecodePair(t *testing.T) {
	svc := testService(time.Hour)

	pair, err := svc.IssuePair(42)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshJTI)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	userID, err := svc.DecodeAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), userID)

	userID, jti, err := svc.DecodeRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), userID)
	assert.Equal(t, pair.RefreshJTI, jti)
}

// The type claim keeps the two token kinds from standing in for each other.
func TestTokenTypeDiscrimination(t *testing.T) {
	svc := testService(time.Hour)
	pair, err := svc.IssuePair(7)
	require.NoError(t, err)

	_, err = svc.DecodeAccess(pair.RefreshToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	_, _, err = svc.DecodeRefresh(pair.AccessToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

func TestExpiredToken(t *testing.T) {
	svc := testService(-time.Minute)
	pair, err := svc.IssuePair(7)
	require.NoError(t, err)

	_, err = svc.DecodeAccess(pair.AccessToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeTokenExpired))
}

func TestTamperedToken(t *testing.T) {
	svc := testService(time.Hour)

	cfg := config.New()
	cfg.JWT.Secret = "different-secret"
	cfg.JWT.AccessTTL = time.Hour
	cfg.JWT.RefreshTTL = 24 * time.Hour
	forged := token.NewService(cfg)

	pair, err := forged.IssuePair(7)
	require.NoError(t, err)

	_, err = svc.DecodeAccess(pair.AccessToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	_, err = svc.DecodeAccess("not-a-token")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}
