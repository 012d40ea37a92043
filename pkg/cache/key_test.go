package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			name:     "endpoint only",
			key:      Key{Endpoint: "/markets/10000002/orders/"},
			expected: "esi:cache:markets/10000002/orders",
		},
		{
			name: "endpoint with params",
			key: Key{
				Endpoint: "/markets/10000002/orders/",
				Params:   url.Values{"order_type": {"sell"}, "page": {"2"}},
			},
			expected: "esi:cache:markets/10000002/orders:order_type=sell:page=2",
		},
		{
			name:     "empty endpoint",
			key:      Key{Endpoint: "/"},
			expected: "esi:cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKey_String_ParamOrderIndependent(t *testing.T) {
	a := Key{
		Endpoint: "/markets/10000002/orders/",
		Params:   url.Values{"a": {"1"}, "b": {"2"}, "c": {"3"}},
	}
	b := Key{
		Endpoint: "/markets/10000002/orders/",
		Params:   url.Values{"c": {"3"}, "a": {"1"}, "b": {"2"}},
	}

	// Same logical request must collide regardless of parameter order.
	if a.String() != b.String() {
		t.Errorf("keys differ: %q vs %q", a.String(), b.String())
	}
}

func TestKey_String_DistinctRequestsDistinctKeys(t *testing.T) {
	a := Key{Endpoint: "/markets/10000002/orders/", Params: url.Values{"page": {"1"}}}
	b := Key{Endpoint: "/markets/10000002/orders/", Params: url.Values{"page": {"2"}}}

	if a.String() == b.String() {
		t.Errorf("distinct params produced identical key %q", a.String())
	}
}
