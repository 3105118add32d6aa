package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abduss/artifactdrive/internal/config"
)

const (
	tokenAudience = "artifactdrive-staff"
	roleSupport   = "support"

	minPasswordLength = 8
	// Small skew allowance between the issuing and validating hosts.
	tokenLeeway = 5 * time.Second
)

var (
	// ErrInvalidCredentials is returned when the staff login does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for missing, malformed or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
)

// LoginInput carries staff credentials.
type LoginInput struct {
	Email    string
	Password string
}

// AccessToken is a signed staff token.
type AccessToken struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StaffClaims describes the validated identity extracted from an access token.
type StaffClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService logs support staff in and validates their access tokens.
type TokenService struct {
	email        string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	issuer       string
	nowFunc      func() time.Time
	parser       *jwt.Parser
}

// NewTokenService builds a TokenService from cfg. The password hash must be a bcrypt hash.
func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
		return nil, fmt.Errorf("parse admin password hash: %w", err)
	}
	if cfg.TokenSecret == "" {
		return nil, errors.New("token secret is empty")
	}

	s := &TokenService{
		email:        strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		passwordHash: []byte(cfg.AdminPasswordHash),
		secret:       []byte(cfg.TokenSecret),
		ttl:          cfg.TokenTTL,
		issuer:       cfg.TokenIssuer,
		nowFunc:      time.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(func() time.Time { return s.nowFunc() }),
	)
	return s, nil
}

// Login checks the staff credentials and issues an access token.
func (s *TokenService) Login(input LoginInput) (AccessToken, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if input.Password == "" || len(input.Password) > maxKeyLength {
		return AccessToken{}, ErrInvalidCredentials
	}

	// bcrypt runs even for an unknown email so both failures take the same time.
	pwErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(input.Password))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	if pwErr != nil || !emailOK {
		return AccessToken{}, ErrInvalidCredentials
	}

	return s.issue(email)
}

func (s *TokenService) issue(email string) (AccessToken, error) {
	now := s.nowFunc()
	expiresAt := now.Add(s.ttl)
	claims := StaffClaims{
		Email: email,
		Role:  roleSupport,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-tokenLeeway)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Token: signed, TokenType: "Bearer", ExpiresAt: expiresAt.UTC()}, nil
}

// HashPassword returns the bcrypt hash to configure as the staff password.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < minPasswordLength || len(password) > maxKeyLength {
		return "", fmt.Errorf("password must be between %d and %d characters", minPasswordLength, maxKeyLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ValidateAccessToken verifies the token signature and extracts staff claims.
func (s *TokenService) ValidateAccessToken(tokenString string) (StaffClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return StaffClaims{}, ErrUnauthorized
	}

	var claims StaffClaims
	parsed, err := s.parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return StaffClaims{}, ErrUnauthorized
	}
	if claims.Role != roleSupport || claims.Email == "" {
		return StaffClaims{}, ErrUnauthorized
	}
	return claims, nil
}
