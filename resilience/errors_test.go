package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"circuit open", fmt.Errorf("%w: geosearch", ErrCircuitOpen), true},
		{"rate limited", ErrRateLimitExceeded, true},
		{"bulkhead full", ErrBulkheadFull, true},
		{"timeout", ErrTimeout, false},
		{"plain", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRejection(tt.err); got != tt.want {
				t.Errorf("IsRejection(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
