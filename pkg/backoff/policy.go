// Package backoff maps the error budget status to a jittered pre-dispatch
// delay. The delay is punitive pressure on callers, not a retry
// mechanism: a request that is about to be rejected in red state is still
// slowed down first, and nothing here resubmits a failed request.
package backoff

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/evetrade/esi-governor/pkg/budget"
)

// Default delay ranges per budget status. Jitter spreads concurrent
// callers so they do not retry at the same instant.
const (
	DefaultYellowMin = 500 * time.Millisecond
	DefaultYellowMax = 2 * time.Second
	DefaultRedMin    = 2 * time.Second
	DefaultRedMax    = 5 * time.Second
)

// Policy holds the delay ranges for throttled statuses.
type Policy struct {
	YellowMin time.Duration
	YellowMax time.Duration
	RedMin    time.Duration
	RedMax    time.Duration
}

// DefaultPolicy returns the standard delay ranges.
func DefaultPolicy() Policy {
	return Policy{
		YellowMin: DefaultYellowMin,
		YellowMax: DefaultYellowMax,
		RedMin:    DefaultRedMin,
		RedMax:    DefaultRedMax,
	}
}

// DelayFor returns a uniformly random delay for the given status.
// Green gets no delay.
func (p Policy) DelayFor(status budget.Status) time.Duration {
	switch status {
	case budget.StatusYellow:
		return randomBetween(p.YellowMin, p.YellowMax)
	case budget.StatusRed:
		return randomBetween(p.RedMin, p.RedMax)
	default:
		return 0
	}
}

// Wait sleeps for the status's delay. The wait is cancellable: a
// cancelled context returns its error without corrupting any shared
// state, since nothing is written here.
func (p Policy) Wait(ctx context.Context, status budget.Status) error {
	delay := p.DelayFor(status)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}
