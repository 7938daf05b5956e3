package cache

import (
	"time"

	"github.com/goliatone/go-memoize/internal/cacheinfra"
)

// TTLPolicy decides staleness: an entry is expired once its age is strictly
// greater than the ttl, and a ttl <= 0 never expires.
type TTLPolicy = cacheinfra.TTLPolicy

// IsExpired evaluates createdAt against ttl at the current wall clock.
func IsExpired(createdAt time.Time, ttl time.Duration) bool {
	return TTLPolicy{}.IsExpired(createdAt, ttl)
}
