package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ises-energia/scrc-backend/pkg/config"
)

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "scrc-test",
		ExpirationMinutes: 60,
	}
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	cfg := jwtConfig()
	userID := uuid.New()

	raw, err := IssueAccessToken(cfg, userID, RoleDispatcher)
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, raw)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleDispatcher, claims.Role)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := jwtConfig()
	raw, err := IssueAccessToken(cfg, uuid.New(), RoleTechnician)
	require.NoError(t, err)

	cfg.Secret = "other-secret"
	_, err = ParseAccessToken(cfg, raw)
	require.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := jwtConfig()
	raw, err := IssueAccessToken(cfg, uuid.New(), RoleTechnician)
	require.NoError(t, err)

	cfg.Issuer = "someone-else"
	_, err = ParseAccessToken(cfg, raw)
	require.Error(t, err)
}
