package cache

import (
	"time"
)

// Entry is a cached upstream response body.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// Expires is when the entry becomes stale (from the upstream Expires
	// header, or CachedAt+DefaultTTL when none was usable).
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
