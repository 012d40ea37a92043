package cache

import (
	"net/http"
	"testing"
	"time"
)

func TestExpiryFromHeaders(t *testing.T) {
	tests := []struct {
		name          string
		expiresHeader string
		wantDefault   bool
	}{
		{
			name:          "valid future expires",
			expiresHeader: time.Now().Add(10 * time.Minute).UTC().Format(http.TimeFormat),
			wantDefault:   false,
		},
		{
			name:        "absent header falls back to default",
			wantDefault: true,
		},
		{
			name:          "malformed header falls back to default",
			expiresHeader: "yesterday-ish",
			wantDefault:   true,
		},
		{
			name:          "past expires falls back to default",
			expiresHeader: time.Now().Add(-10 * time.Minute).UTC().Format(http.TimeFormat),
			wantDefault:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.expiresHeader != "" {
				headers.Set("Expires", tt.expiresHeader)
			}

			expiry := ExpiryFromHeaders(headers)
			ttl := time.Until(expiry)

			if tt.wantDefault {
				if ttl < DefaultTTL-5*time.Second || ttl > DefaultTTL {
					t.Errorf("expiry TTL = %v, want about DefaultTTL (%v)", ttl, DefaultTTL)
				}
				return
			}

			if ttl < 9*time.Minute || ttl > 10*time.Minute {
				t.Errorf("expiry TTL = %v, want about 10m from header", ttl)
			}
		})
	}
}

func TestNewEntry(t *testing.T) {
	headers := http.Header{}
	headers.Set("Expires", time.Now().Add(3*time.Minute).UTC().Format(http.TimeFormat))

	entry := NewEntry([]byte(`{"ok":true}`), headers)

	if string(entry.Data) != `{"ok":true}` {
		t.Errorf("Data = %q, want original body", entry.Data)
	}
	if entry.CachedAt.IsZero() {
		t.Error("CachedAt was not set")
	}
	if ttl := entry.TTL(); ttl <= 0 || ttl > 3*time.Minute {
		t.Errorf("TTL() = %v, want about 3m", ttl)
	}
}
