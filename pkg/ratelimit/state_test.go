package ratelimit

import (
	"testing"
	"time"
)

func TestQuotaState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *QuotaState
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &QuotaState{LastUpdate: time.Now()},
			maxAge:   time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			state:    &QuotaState{LastUpdate: time.Now().Add(-10 * time.Minute)},
			maxAge:   time.Minute,
			expected: true,
		},
		{
			name:     "just under max age",
			state:    &QuotaState{LastUpdate: time.Now().Add(-50 * time.Second)},
			maxAge:   time.Minute,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.state.IsStale(tt.maxAge)
			if result != tt.expected {
				t.Errorf("IsStale() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestQuotaState_Bands(t *testing.T) {
	tests := []struct {
		name         string
		remaining    float64
		wantBlock    bool
		wantThrottle bool
		wantHealthy  bool
	}{
		{name: "full bucket", remaining: 700, wantHealthy: true},
		{name: "at healthy threshold", remaining: QuotaThresholdHealthy, wantHealthy: true},
		{name: "between warning and healthy", remaining: 150},
		{name: "at warning threshold", remaining: QuotaThresholdWarning},
		{name: "just below warning", remaining: QuotaThresholdWarning - 0.5, wantThrottle: true},
		{name: "at critical threshold", remaining: QuotaThresholdCritical, wantThrottle: true},
		{name: "just below critical", remaining: QuotaThresholdCritical - 0.1, wantBlock: true},
		{name: "exhausted", remaining: 0, wantBlock: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &QuotaState{Remaining: tt.remaining}
			state.UpdateHealth()

			if got := state.NeedsCriticalBlock(); got != tt.wantBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", got, tt.wantBlock)
			}
			if got := state.NeedsThrottling(); got != tt.wantThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.wantThrottle)
			}
			if state.IsHealthy != tt.wantHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.wantHealthy)
			}
		})
	}
}
