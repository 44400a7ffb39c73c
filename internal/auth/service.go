package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Config holds the admin authentication settings. AdminPasswordHash is a
// bcrypt hash; the plaintext password never appears in config.
type Config struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	AdminUsername     string        `mapstructure:"admin_username"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
}

// Service authenticates admin API callers against the configured admin
// account and issues JWTs.
type Service struct {
	config Config
}

func NewService(config Config) *Service {
	return &Service{config: config}
}

// Login verifies the admin credentials and returns a signed token.
func (s *Service) Login(username, password string) (string, error) {
	if username != s.config.AdminUsername {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return GenerateToken(s.config.JWTSecret, username, "admin", s.config.TokenTTL)
}

// Validate checks a bearer token and returns its claims.
func (s *Service) Validate(token string) (*Claims, error) {
	return ValidateToken(s.config.JWTSecret, token)
}
