// Package cache provides the shared response cache for upstream ESI
// calls, backed by Redis so every process instance sees the same entries.
//
// Keys are derived from the endpoint path plus the lexicographically
// sorted query parameters, so parameter order does not fragment the
// cache. Entry lifetimes follow the upstream's Expires header when it is
// present and parseable, and fall back to a fixed default window
// otherwise.
//
// Only successful responses are cached, and only when the caller opts in.
// A cache hit costs nothing against the shared error budget.
package cache
