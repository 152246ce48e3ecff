// Package auth holds the token service, password hashing and strength
// policy, cookie transport, and the per-request authorization
// middleware of the identity core.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/apperr"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/entity"
	"github.com/Tammyv123/SwachhBuddy-sub000/pkg/utilities"
)

// Issuer / audience pin tokens to this service pair so an access token
// minted here cannot be replayed against another service sharing a
// secret by accident.
const (
	TokenIssuer   = "swachhbuddy-auth"
	TokenAudience = "swachhbuddy-api"
)

// Claims is the signed token payload: identity fields plus the
// registered claim set.
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair is one access/refresh issuance. The refresh token travels
// only in its httpOnly cookie, never in a response body.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"-"`
}

// TokenService mints and verifies the two token kinds with independent
// secrets and lifetimes.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// now is swappable so tests can mint already-expired tokens.
	now func() time.Time
}

// NewTokenService fails when either secret is empty. Missing secrets
// are a startup precondition, not a runtime condition: main treats this
// error as fatal.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" {
		return nil, apperr.Validation("access token secret is not configured")
	}
	if refreshSecret == "" {
		return nil, apperr.Validation("refresh token secret is not configured")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// AccessTTL reports the configured access token lifetime (the cookie
// layer mirrors it as max-age).
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssuePair signs a fresh access/refresh pair for the user.
func (s *TokenService) IssuePair(u *entity.User) (TokenPair, error) {
	access, err := s.sign(u, s.accessSecret, s.accessTTL)
	if err != nil {
		return TokenPair{}, apperr.Dependency("token signing failed", err)
	}
	refresh, err := s.sign(u, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, apperr.Dependency("token signing failed", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) sign(u *entity.User, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			Subject:   u.ID,
			ID:        utilities.NewTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess validates an access token. Every failure mode (bad
// signature, malformed input, expiry, wrong issuer or audience)
// collapses into the same invalid-token error so callers cannot be
// used as an oracle; the underlying cause stays wrapped for logs.
func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefresh validates a refresh token against the refresh secret.
func (s *TokenService) VerifyRefresh(token string) (*Claims, error) {
	return s.verify(token, s.refreshSecret)
}

func (s *TokenService) verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperr.InvalidToken(err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, apperr.InvalidToken(nil)
	}
	return claims, nil
}
