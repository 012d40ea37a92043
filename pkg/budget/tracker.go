package budget

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for budget tracking.
var (
	esiErrorCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "esi_error_budget_count",
		Help: "Current error count in the shared ESI error budget window",
	})

	esiBudgetUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esi_error_budget_updates_total",
		Help: "Total budget updates from upstream headers by resulting status",
	}, []string{"status"})

	esiBudgetReadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esi_error_budget_read_failures_total",
		Help: "Total budget reads that failed open due to store errors",
	})
)

// Header names the upstream uses to report budget state.
const (
	HeaderErrorLimitRemain = "X-ESI-Error-Limit-Remain"
	HeaderErrorLimitReset  = "X-ESI-Error-Limit-Reset"
)

// Tracker reads and writes the shared error budget in Redis.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a budget tracker on the given Redis client.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// Read returns the current budget state. Absent keys yield a zero count
// (green). Store errors also yield the zero state: the tracker is
// best-effort and must not take down all upstream traffic when Redis is
// unavailable, so reads fail open with a warning log.
func (t *Tracker) Read(ctx context.Context) *State {
	state := &State{}

	count, err := t.redis.Get(ctx, RedisKeyErrorCount).Int()
	switch {
	case err == redis.Nil:
		// No budget observed yet.
	case err != nil:
		esiBudgetReadFailuresTotal.Inc()
		t.logger.Warn().Err(err).Msg("Budget read failed, assuming green")
		return state
	default:
		state.ErrorCount = count
	}

	resetUnix, err := t.redis.Get(ctx, RedisKeyResetAt).Int64()
	switch {
	case err == redis.Nil:
		// No reset time reported yet.
	case err != nil:
		esiBudgetReadFailuresTotal.Inc()
		t.logger.Warn().Err(err).Msg("Budget reset time read failed")
	default:
		state.ResetAt = time.Unix(resetUnix, 0)
	}

	return state
}

// Update overwrites the stored error count from the upstream's reported
// remain value. Later responses are authoritative over earlier ones: the
// upstream's own counter already reflects the global rolling window, so
// this is a plain overwrite, never an increment. A non-negative
// resetAfter additionally stores now+resetAfter as the new reset time.
func (t *Tracker) Update(ctx context.Context, remaining int, resetAfter time.Duration) error {
	errorCount := WindowSize - remaining
	if errorCount < 0 {
		errorCount = 0
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyErrorCount, errorCount, 0)
	if resetAfter >= 0 {
		resetAt := time.Now().Add(resetAfter)
		pipe.Set(ctx, RedisKeyResetAt, resetAt.Unix(), 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store budget state: %w", err)
	}

	status := StatusFor(errorCount)
	esiErrorCount.Set(float64(errorCount))
	esiBudgetUpdatesTotal.WithLabelValues(string(status)).Inc()

	event := t.logger.Debug()
	switch status {
	case StatusRed:
		event = t.logger.Error()
	case StatusYellow:
		event = t.logger.Warn()
	}
	event.
		Int("error_count", errorCount).
		Str("status", string(status)).
		Msg("Error budget updated")

	return nil
}

// UpdateFromHeaders parses the budget headers from an upstream response
// and updates the stored state. Headers are untyped strings owned by the
// upstream protocol, so they are parsed defensively: absent or malformed
// values are skipped rather than surfaced as pipeline failures.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderErrorLimitRemain)
	if remainStr == "" {
		// Non-ESI response or endpoint without budget metadata.
		return nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		t.logger.Warn().
			Str("header", HeaderErrorLimitRemain).
			Str("value", remainStr).
			Msg("Malformed budget header, skipping update")
		return nil
	}

	resetAfter := time.Duration(-1)
	if resetStr := headers.Get(HeaderErrorLimitReset); resetStr != "" {
		if resetSeconds, err := strconv.Atoi(resetStr); err == nil {
			resetAfter = time.Duration(resetSeconds) * time.Second
		} else {
			t.logger.Warn().
				Str("header", HeaderErrorLimitReset).
				Str("value", resetStr).
				Msg("Malformed reset header, keeping previous reset time")
		}
	}

	return t.Update(ctx, remaining, resetAfter)
}
