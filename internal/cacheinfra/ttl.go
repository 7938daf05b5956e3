package cacheinfra

import "time"

// TTLPolicy decides whether a stored entry is stale.
type TTLPolicy struct {
	// Now returns the observation instant. Nil means time.Now.
	Now func() time.Time
}

func (p TTLPolicy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// IsExpired reports whether an entry created at createdAt is older than ttl.
// A ttl <= 0 never expires and an age equal to ttl is still fresh.
func (p TTLPolicy) IsExpired(createdAt time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return p.now().Sub(createdAt) > ttl
}

// Cutoff returns the oldest creation time still inside the ttl window.
func (p TTLPolicy) Cutoff(ttl time.Duration) time.Time {
	return p.now().Add(-ttl)
}
