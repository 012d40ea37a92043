// Package lockdown implements the global hard stop triggered by an
// upstream HTTP 420 response. The lock lives in Redis so every process
// instance observes it; while it is in the future, no request may reach
// the network at all.
package lockdown

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisKeyLockedUntil stores the lockdown expiry as unix seconds.
const RedisKeyLockedUntil = "esi:lockdown:until"

// DefaultRetryAfter is the conservative lock duration applied when the
// upstream's 420 response carries no Retry-After header.
const DefaultRetryAfter = 300 * time.Second

var (
	esiLockdownsTriggeredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esi_lockdowns_triggered_total",
		Help: "Total global lockdowns triggered by upstream hard-stop responses",
	})

	esiLockdownRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esi_lockdown_rejections_total",
		Help: "Total requests rejected while a global lockdown was active",
	})
)

// LockedError reports that the global lockdown is active.
type LockedError struct {
	// RetryAfter is the remaining lock duration.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *LockedError) Error() string {
	return fmt.Sprintf("esi global lockdown active, retry after %s", e.RetryAfter.Round(time.Second))
}

// Guard gates all upstream traffic on the shared lockdown key.
type Guard struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewGuard creates a lockdown guard on the given Redis client.
func NewGuard(redisClient *redis.Client, logger zerolog.Logger) *Guard {
	return &Guard{
		redis:  redisClient,
		logger: logger,
	}
}

// Check returns a *LockedError if a lockdown is currently active. An
// expired lock is deleted and the check succeeds; a second call after
// expiry succeeds the same way. Store errors fail open with a warning
// log, matching the budget tracker's availability stance.
func (g *Guard) Check(ctx context.Context) error {
	lockedUntilUnix, err := g.redis.Get(ctx, RedisKeyLockedUntil).Int64()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		g.logger.Warn().Err(err).Msg("Lockdown read failed, assuming unlocked")
		return nil
	}

	lockedUntil := time.Unix(lockedUntilUnix, 0)
	remaining := time.Until(lockedUntil)
	if remaining <= 0 {
		// Lock expired, clean it up.
		if err := g.redis.Del(ctx, RedisKeyLockedUntil).Err(); err != nil {
			g.logger.Warn().Err(err).Msg("Failed to delete expired lockdown key")
		}
		return nil
	}

	esiLockdownRejectionsTotal.Inc()
	g.logger.Warn().
		Dur("retry_after", remaining).
		Time("locked_until", lockedUntil).
		Msg("Request rejected by global lockdown")

	return &LockedError{RetryAfter: remaining}
}

// Trigger stores a lockdown expiring retryAfter from now. The caller
// raises to its own caller after triggering; the request that observed
// the hard stop is never retried transparently.
func (g *Guard) Trigger(ctx context.Context, retryAfter time.Duration) error {
	lockedUntil := time.Now().Add(retryAfter)

	esiLockdownsTriggeredTotal.Inc()
	g.logger.Error().
		Dur("retry_after", retryAfter).
		Time("locked_until", lockedUntil).
		Msg("Global lockdown triggered by upstream hard stop")

	if err := g.redis.Set(ctx, RedisKeyLockedUntil, lockedUntil.Unix(), 0).Err(); err != nil {
		return fmt.Errorf("store lockdown key: %w", err)
	}
	return nil
}
