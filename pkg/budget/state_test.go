package budget

import (
	"testing"
	"time"
)

func TestStatusFor_Thresholds(t *testing.T) {
	tests := []struct {
		name       string
		errorCount int
		expected   Status
	}{
		{
			name:       "zero errors",
			errorCount: 0,
			expected:   StatusGreen,
		},
		{
			name:       "just below yellow threshold",
			errorCount: 49,
			expected:   StatusGreen,
		},
		{
			name:       "at yellow threshold",
			errorCount: 50,
			expected:   StatusYellow,
		},
		{
			name:       "just below red threshold",
			errorCount: 89,
			expected:   StatusYellow,
		},
		{
			name:       "at red threshold",
			errorCount: 90,
			expected:   StatusRed,
		},
		{
			name:       "window fully consumed",
			errorCount: 100,
			expected:   StatusRed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StatusFor(tt.errorCount)
			if result != tt.expected {
				t.Errorf("StatusFor(%d) = %s, want %s", tt.errorCount, result, tt.expected)
			}

			state := &State{ErrorCount: tt.errorCount}
			if state.Status() != tt.expected {
				t.Errorf("State.Status() = %s, want %s (error_count=%d)", state.Status(), tt.expected, tt.errorCount)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	tests := []struct {
		name      string
		resetAt   time.Time
		expected  time.Duration
		tolerance time.Duration
	}{
		{
			name:      "reset in future",
			resetAt:   time.Now().Add(45 * time.Second),
			expected:  45 * time.Second,
			tolerance: 1 * time.Second,
		},
		{
			name:     "reset already passed",
			resetAt:  time.Now().Add(-1 * time.Minute),
			expected: 0,
		},
		{
			name:     "no reset reported",
			resetAt:  time.Time{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{ResetAt: tt.resetAt}
			result := state.TimeUntilReset()

			if tt.expected == 0 {
				if result != 0 {
					t.Errorf("TimeUntilReset() = %v, want 0", result)
				}
				return
			}

			diff := result - tt.expected
			if diff < 0 {
				diff = -diff
			}
			if diff > tt.tolerance {
				t.Errorf("TimeUntilReset() = %v, want approximately %v", result, tt.expected)
			}
		})
	}
}

func TestThresholdOrdering(t *testing.T) {
	if ThresholdYellow >= ThresholdRed {
		t.Errorf("ThresholdYellow (%d) must be less than ThresholdRed (%d)", ThresholdYellow, ThresholdRed)
	}
	if ThresholdRed > WindowSize {
		t.Errorf("ThresholdRed (%d) must not exceed WindowSize (%d)", ThresholdRed, WindowSize)
	}
}
