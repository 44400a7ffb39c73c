package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-jwt-secret"

func TestTokenRoundtrip(t *testing.T) {
	token, err := GenerateToken(testSecret, "admin", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, "admin", "admin", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("another-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken(testSecret, "admin", "admin", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(testSecret, token)
	assert.Error(t, err)
}

func newTestService(t *testing.T, password string) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return NewService(Config{
		JWTSecret:         testSecret,
		TokenTTL:          time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
	})
}

func TestLogin(t *testing.T) {
	svc := newTestService(t, "correct-horse")

	token, err := svc.Login("admin", "correct-horse")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, "correct-horse")

	_, err := svc.Login("admin", "battery-staple")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestService(t, "correct-horse")

	_, err := svc.Login("root", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
