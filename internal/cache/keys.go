package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	schemeListKey    = "schemes:list"
	schemeKeyPrefix  = "scheme:%d"
	weatherKeyPrefix = "weather:%s:%s"
	marketKeyPrefix  = "market:%s"
)

const (
	SchemeTTL  = 5 * time.Minute
	WeatherTTL = 10 * time.Minute
	MarketTTL  = 30 * time.Minute
)

func SchemeListKey() string {
	return schemeListKey
}

func SchemeKey(id uint) string {
	return fmt.Sprintf(schemeKeyPrefix, id)
}

// WeatherKey identifies an upstream weather response by kind and query.
func WeatherKey(kind, query string) string {
	return fmt.Sprintf(weatherKeyPrefix, kind, digest(query))
}

// MarketKey identifies an upstream market-price response by its query.
func MarketKey(query string) string {
	return fmt.Sprintf(marketKeyPrefix, digest(query))
}

func digest(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// Invalidate deletes keys; it is a no-op without Redis.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateSchemes drops the cached scheme list and one scheme entry.
func InvalidateSchemes(ctx context.Context, id uint) {
	keys := []string{schemeListKey}
	if id != 0 {
		keys = append(keys, SchemeKey(id))
	}
	Invalidate(ctx, keys...)
}
