// Package budget tracks the shared ESI error budget. The upstream reports
// how many errors remain in the current rolling window via the
// X-ESI-Error-Limit-Remain and X-ESI-Error-Limit-Reset headers; every
// process instance reads and writes the derived error count through Redis
// so the budget is enforced globally, not per process.
package budget

import (
	"time"
)

// Redis keys for shared budget state.
const (
	RedisKeyErrorCount = "esi:budget:error_count"
	RedisKeyResetAt    = "esi:budget:reset_at"
)

// WindowSize is the total error allowance of the upstream window.
// The stored count is derived as WindowSize minus the reported remain.
const WindowSize = 100

// Thresholds for the derived error count.
const (
	// ThresholdYellow starts throttling: counts at or above this value
	// get a jittered delay before dispatch.
	ThresholdYellow = 50

	// ThresholdRed blocks all dispatch: counts at or above this value
	// reject requests outright until the window resets.
	ThresholdRed = 90
)

// Status classifies the current error budget.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// State is a point-in-time view of the shared error budget.
type State struct {
	// ErrorCount is the number of errors consumed in the current window,
	// derived from the upstream's remain header (WindowSize - remain).
	ErrorCount int `json:"error_count"`

	// ResetAt is when the upstream window resets. Zero if the upstream
	// has not reported a reset duration yet.
	ResetAt time.Time `json:"reset_at"`
}

// StatusFor classifies an error count against the thresholds.
func StatusFor(errorCount int) Status {
	switch {
	case errorCount >= ThresholdRed:
		return StatusRed
	case errorCount >= ThresholdYellow:
		return StatusYellow
	default:
		return StatusGreen
	}
}

// Status classifies the state's error count.
func (s *State) Status() Status {
	return StatusFor(s.ErrorCount)
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if no reset time is known or it has already passed.
func (s *State) TimeUntilReset() time.Duration {
	if s.ResetAt.IsZero() {
		return 0
	}
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
