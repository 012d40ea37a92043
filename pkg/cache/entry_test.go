package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name     string
		expires  time.Time
		expected bool
	}{
		{
			name:     "fresh entry",
			expires:  time.Now().Add(5 * time.Minute),
			expected: false,
		},
		{
			name:     "expired entry",
			expires:  time.Now().Add(-1 * time.Minute),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.expected {
				t.Errorf("IsExpired() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	entry := &Entry{Expires: time.Now().Add(2 * time.Minute)}

	ttl := entry.TTL()
	if ttl <= 0 || ttl > 2*time.Minute {
		t.Errorf("TTL() = %v, want about 2m", ttl)
	}

	expired := &Entry{Expires: time.Now().Add(-1 * time.Minute)}
	if got := expired.TTL(); got != 0 {
		t.Errorf("TTL() = %v for expired entry, want 0", got)
	}
}
