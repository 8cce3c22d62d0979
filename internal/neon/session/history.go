package session

import "github.com/bdobrica/Neon/internal/neon/llm"

// window returns the history slice sent with the next request: at most
// MaxHistoryPairs exchanges, oldest first.
func (s *Session) window() []llm.Message {
	return tail(s.history, 2*s.cfg.MaxHistoryPairs)
}

// trimHistory drops the oldest messages so at most pairs exchanges remain.
// The result does not alias the dropped prefix.
func trimHistory(h []llm.Message, pairs int) []llm.Message {
	t := tail(h, 2*pairs)
	if len(t) == len(h) {
		return h
	}
	out := make([]llm.Message, len(t))
	copy(out, t)
	return out
}

func tail(h []llm.Message, n int) []llm.Message {
	if n <= 0 {
		return nil
	}
	if len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}
