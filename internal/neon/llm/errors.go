package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout marks a chat call that ran out of time.
var ErrTimeout = errors.New("llm: request timed out")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("llm: backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm: backend returned status %d: %s", e.StatusCode, e.Body)
}

// IsTimeout reports whether err is a timeout: ErrTimeout, an expired context
// deadline, or a net.Error whose Timeout() is true.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classify tags timeouts with ErrTimeout so callers can match either way.
func classify(op string, err error) error {
	if IsTimeout(err) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("llm: %s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("llm: %s: %w", op, err)
}

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 512

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
