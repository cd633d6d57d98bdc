// Package auth guards the admin API with a password login and short-lived JWTs.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/toko-cart/internal/common"
)

// RoleAdmin is the only role issued by this service.
const RoleAdmin = "admin"

const (
	defaultTTL      = time.Hour
	defaultIssuer   = "toko-cart"
	defaultAudience = "toko-admin"
	adminSubject    = "admin"
)

// Config configures the admin auth service.
type Config struct {
	Secret       string
	PasswordHash string
	TokenTTL     time.Duration
	Issuer       string
	Audience     string
	ClockSkew    time.Duration
}

// Service issues and verifies admin access tokens.
type Service struct {
	secret       []byte
	passwordHash string
	ttl          time.Duration
	issuer       string
	audience     string
	clockSkew    time.Duration
	signer       jwa.SignatureAlgorithm
	validator    TokenValidator
	now          func() time.Time
}

// Token is a signed admin access token.
type Token struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// NewService constructs a Service. An empty password hash disables login but
// tokens can still be verified.
func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = defaultAudience
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &Service{
		secret:       []byte(secret),
		passwordHash: strings.TrimSpace(cfg.PasswordHash),
		ttl:          ttl,
		issuer:       issuer,
		audience:     audience,
		clockSkew:    clockSkew,
		signer:       jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			Role:      RoleAdmin,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		now: time.Now,
	}, nil
}

// HashPassword produces an argon2id hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: password is required")
	}
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

// Login checks password against the configured hash and issues an admin token.
func (s *Service) Login(password string) (Token, error) {
	if s.passwordHash == "" {
		return Token{}, common.NewAppError("ADMIN_LOGIN_DISABLED", "admin login is not configured", http.StatusServiceUnavailable, nil)
	}
	if password == "" {
		return Token{}, invalidCredentials(nil)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, s.passwordHash)
	if err != nil {
		return Token{}, fmt.Errorf("auth: compare password: %w", err)
	}
	if !ok {
		return Token{}, invalidCredentials(nil)
	}
	signed, expiresAt, err := s.sign(adminSubject)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

// ParseAccessToken validates an admin token and returns its subject.
func (s *Service) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", unauthorized(errors.New("missing token"))
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", unauthorized(err)
	}
	if algorithm != s.validator.Algorithm {
		return "", unauthorized(fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return "", unauthorized(err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return "", unauthorized(err)
	}
	return parsed.Subject(), nil
}

func (s *Service) sign(subject string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	token, err := jwt.NewBuilder().
		Subject(subject).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(RoleClaim, RoleAdmin).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("auth: token must carry exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	switch alg {
	case "":
		return "", errors.New("auth: token missing algorithm")
	case jwa.NoSignature:
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}

func invalidCredentials(err error) *common.AppError {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid admin password", http.StatusUnauthorized, err)
}

func unauthorized(err error) *common.AppError {
	return common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
}
