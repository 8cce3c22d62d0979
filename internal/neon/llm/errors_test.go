package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bdobrica/Neon/common/retry"
)

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "net" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return false }

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrTimeout, true},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), true},
		{"net timeout", fmt.Errorf("dial: %w", fakeNetErr{timeout: true}), true},
		{"net other", fakeNetErr{}, false},
		{"cancelled", context.Canceled, false},
		{"status", &StatusError{StatusCode: 504}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTimeout(tt.err); got != tt.want {
				t.Errorf("IsTimeout(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTransportPolicy_ShouldRetry(t *testing.T) {
	p := DefaultTransportPolicy
	tests := []struct {
		err  error
		want bool
	}{
		{&StatusError{StatusCode: 500}, true},
		{&StatusError{StatusCode: 502}, true},
		{&StatusError{StatusCode: 503}, true},
		{&StatusError{StatusCode: 504}, true},
		{&StatusError{StatusCode: 429}, false},
		{&StatusError{StatusCode: 404}, false},
		{errors.New("connection refused"), true},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		if got := p.shouldRetry(tt.err); got != tt.want {
			t.Errorf("shouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDefaultTransportPolicy_ThreeRetries(t *testing.T) {
	// The zero policy falls back to the default.
	p := TransportPolicy{}.orDefault()
	if p.MaxAttempts != 4 {
		t.Errorf("MaxAttempts = %d, want 4 (one try plus three retries)", p.MaxAttempts)
	}
	want := []time.Duration{300 * time.Millisecond, 600 * time.Millisecond, 1200 * time.Millisecond}
	if diff := cmp.Diff(want, retry.Schedule(p.retryConfig())); diff != "" {
		t.Errorf("backoff schedule mismatch (-want +got):\n%s", diff)
	}
}
