// Package observability provides structured logging helpers for Neon.
//
// It wraps log/slog with turn ID propagation and secret redaction so that
// every log line emitted during a turn carries the turn context and never
// leaks the backend API key.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bdobrica/Neon/common/trace"
)

const redacted = "[REDACTED]"

// Setup configures the global slog logger according to the provided level and
// format strings (e.g. level="info", format="json"). Logs go to stderr so they
// do not interleave with the chat transcript on stdout.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// New builds a logger writing to w. Unknown levels mean "info"; any format
// other than "json" means text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps "debug", "warn", "error" to slog levels; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithTurn returns a child of base that always includes the turn_id from ctx.
// A nil base means slog.Default().
func WithTurn(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	id := trace.FromContext(ctx)
	if id == "" {
		return base
	}
	return base.With("turn_id", id)
}

// RedactSecrets replaces every occurrence of each sensitive value in msg with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid spurious
// redaction of common substrings.
func RedactSecrets(msg string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		msg = strings.ReplaceAll(msg, v, redacted)
	}
	return msg
}
