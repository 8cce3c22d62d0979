// Package voice provides the speech adapters around a session: a Listener
// that turns microphone input into text and a Speaker that renders replies
// as audio. Both are optional; the CLI falls back to text when they are not
// configured.
package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrDisabled is returned by the no-op adapters.
var ErrDisabled = errors.New("voice: disabled")

// Listener captures one utterance and returns its transcript. An empty
// transcript means nothing usable was heard.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Speaker renders text as speech.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Noop is a Listener and Speaker that does nothing.
type Noop struct{}

func (Noop) Listen(context.Context) (string, error) { return "", ErrDisabled }
func (Noop) Speak(context.Context, string) error    { return nil }

// hallucinations are transcripts speech-to-text models emit on silence.
var hallucinations = map[string]struct{}{
	"":          {},
	"you":       {},
	"thank you": {},
	"thanks":    {},
	"bye":       {},
}

// FilterTranscript trims a transcript and returns "" for known silence
// hallucinations. Trailing sentence punctuation is ignored when matching.
func FilterTranscript(text string) string {
	text = strings.TrimSpace(text)
	key := strings.TrimRight(strings.ToLower(text), ".!?")
	if _, bad := hallucinations[key]; bad {
		return ""
	}
	return text
}

// SpeakAsync speaks text in the background. Failures are logged, never
// returned, so a broken TTS server cannot stall the conversation. The
// returned channel is closed when playback has finished.
func SpeakAsync(ctx context.Context, s Speaker, text string, logger *slog.Logger) <-chan struct{} {
	if logger == nil {
		logger = slog.Default()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Speak(ctx, text); err != nil {
			logger.Warn("voice: speak failed", "err", err)
		}
	}()
	return done
}
