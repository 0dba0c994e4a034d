package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-tracker/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	tokenStr, expiresAt, err := tm.GenerateToken("u1", []domain.Role{domain.RoleAdmin, domain.RoleHandler})
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.SubjectID)
	assert.ElementsMatch(t, []domain.Role{domain.RoleAdmin, domain.RoleHandler}, claims.Roles)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tokenStr, _, err := NewTokenManager("secret-a", 60).GenerateToken("u1", nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 60).ParseToken(tokenStr)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("handler123", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "handler123"))
	assert.Error(t, ComparePassword(hashed, "wrong"))
}
