package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bdobrica/Neon/common/retry"
)

// TransportPolicy controls how a backend retries failed HTTP calls.
type TransportPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	RetryableStatus []int
}

// DefaultTransportPolicy is one attempt plus three retries with a 300ms
// backoff doubling up to 2s, retrying only gateway-style server errors.
var DefaultTransportPolicy = TransportPolicy{
	MaxAttempts:  4,
	InitialDelay: 300 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	RetryableStatus: []int{
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	},
}

func (p TransportPolicy) retryable(status int) bool {
	for _, s := range p.RetryableStatus {
		if s == status {
			return true
		}
	}
	return false
}

// shouldRetry retries listed statuses and transport failures, but never a
// cancelled or expired call.
func (p TransportPolicy) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || IsTimeout(err) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return p.retryable(se.StatusCode)
	}
	return true
}

func (p TransportPolicy) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  p.MaxAttempts,
		InitialDelay: p.InitialDelay,
		Multiplier:   2,
		MaxDelay:     p.MaxDelay,
		ShouldRetry:  p.shouldRetry,
	}
}

func (p TransportPolicy) orDefault() TransportPolicy {
	if p.MaxAttempts == 0 && len(p.RetryableStatus) == 0 {
		return DefaultTransportPolicy
	}
	return p
}
