package cache

import (
	"net/http"
	"time"
)

// DefaultTTL is the fallback lifetime when the upstream provides no
// usable freshness metadata.
const DefaultTTL = 5 * time.Minute

// ExpiryFromHeaders derives an entry expiry from the upstream Expires
// header. Freshness metadata is protocol-owned string data, so parsing
// degrades instead of failing: absent, malformed, or already-past values
// all yield now+DefaultTTL.
func ExpiryFromHeaders(headers http.Header) time.Time {
	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return time.Now().Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return time.Now().Add(DefaultTTL)
	}

	if expires.Before(time.Now()) {
		return time.Now().Add(DefaultTTL)
	}

	return expires
}

// NewEntry builds a cache entry for a response body using the response
// headers for freshness.
func NewEntry(body []byte, headers http.Header) *Entry {
	return &Entry{
		Data:     body,
		Expires:  ExpiryFromHeaders(headers),
		CachedAt: time.Now(),
	}
}
