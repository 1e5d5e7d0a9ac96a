package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "revoked:"

// ErrUnavailable is returned when an operation needs Redis and none is
// configured.
var ErrUnavailable = errors.New("redis unavailable")

// TokenRevocations stores revoked token ids until their expiry.
type TokenRevocations struct {
	rdb *redis.Client
}

// NewTokenRevocations returns a store backed by rdb.
func NewTokenRevocations(rdb *redis.Client) *TokenRevocations {
	return &TokenRevocations{rdb: rdb}
}

// Revoke marks jti as revoked for ttl. Tokens that already expired need no
// entry.
func (r *TokenRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if r == nil || r.rdb == nil {
		return ErrUnavailable
	}
	if jti == "" || ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedTokenPrefix+jti, 1, ttl).Err()
}

// IsRevoked reports whether jti was revoked.
func (r *TokenRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r == nil || r.rdb == nil {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, revokedTokenPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
