package server

import (
	"errors"
	"strconv"
	"time"

	"farmlink/internal/config"
	"farmlink/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenIssuer signs HS256 bearer tokens verified by middleware.Authenticator.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenIssuer(cfg *config.Config) *tokenIssuer {
	return &tokenIssuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL(),
		now:    time.Now,
	}
}

// Issue creates a token for accountID with a unique jti so that it can be
// revoked individually on logout.
func (t *tokenIssuer) Issue(accountID uint) (string, error) {
	// Validate secret exists
	if len(t.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(accountID), 10),
		Issuer:    middleware.TokenIssuer,
		Audience:  jwt.ClaimStrings{middleware.TokenAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}
