package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	service := NewService("test-jwt-secret")
	service.RegisterAPICredentials("user-1", "secret-1")

	token, err := service.GenerateToken(Credentials{APIKey: "user-1", APISecret: "secret-1"})
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	claims, err := service.ValidateToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestGenerateTokenRejectsBadCredentials(t *testing.T) {
	service := NewService("test-jwt-secret")
	service.RegisterAPICredentials("user-1", "secret-1")

	_, err := service.GenerateToken(Credentials{APIKey: "user-1", APISecret: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.GenerateToken(Credentials{APIKey: "unknown", APISecret: "secret-1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewService("secret-a")
	issuer.RegisterAPICredentials("user-1", "secret-1")
	verifier := NewService("secret-b")

	token, err := issuer.GenerateToken(Credentials{APIKey: "user-1", APISecret: "secret-1"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token.Token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	service := NewService("test-jwt-secret")

	_, err := service.ValidateToken("not-a-token")
	assert.Error(t, err)
}
