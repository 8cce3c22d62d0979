package memory

import (
	"fmt"

	"github.com/bdobrica/Neon/internal/neon/affect"
)

// Gap classifies how long the user has been away.
type Gap int

const (
	GapContinuing Gap = iota
	GapInstant
	GapBreak
	GapDay
	GapLongAbsence
)

// Thresholds in hours. ClassifyGap checks them in descending order.
const (
	longAbsenceHours = 168.0
	dayHours         = 24.0
	breakHours       = 6.0
	instantHours     = 0.1
)

// ClassifyGap maps hours since the last interaction to a Gap. The first
// matching threshold wins, largest first.
func ClassifyGap(hours float64) Gap {
	switch {
	case hours > longAbsenceHours:
		return GapLongAbsence
	case hours > dayHours:
		return GapDay
	case hours > breakHours:
		return GapBreak
	case hours < instantHours:
		return GapInstant
	default:
		return GapContinuing
	}
}

// String implements fmt.Stringer.
func (g Gap) String() string {
	switch g {
	case GapLongAbsence:
		return "long-absence"
	case GapDay:
		return "day"
	case GapBreak:
		return "break"
	case GapInstant:
		return "instant"
	default:
		return "continuing"
	}
}

// BootContext renders the one-shot system context for a gap.
func BootContext(g Gap, userName string) string {
	var body string
	switch g {
	case GapLongAbsence:
		body = fmt.Sprintf("%s returned after a week. Act distant, slightly annoyed, but curious.", userName)
	case GapDay:
		body = fmt.Sprintf("%s returned after a long time. Act surprised and missed them.", userName)
	case GapBreak:
		body = fmt.Sprintf("%s is back after a break. Be welcoming.", userName)
	case GapInstant:
		body = fmt.Sprintf("%s restarted the chat instantly. Resume conversation normally.", userName)
	default:
		body = fmt.Sprintf("Continued conversation with %s.", userName)
	}
	return "[SYSTEM CONTEXT: " + body + "]"
}

// Seeder receives the persisted mood on restore. *affect.Engine satisfies it.
type Seeder interface {
	Seed(emotion affect.Emotion, affection float64)
}

// Restore seeds the engine from the record and returns the time-gap context
// to prepend to the first system instruction.
func (s *Store) Restore(engine Seeder) string {
	s.mu.Lock()
	rec := s.rec
	now := s.now()
	s.mu.Unlock()

	engine.Seed(affect.ParseEmotion(rec.Emotion), rec.Affection)

	hours := now.Sub(rec.LastSeen()).Hours()
	gap := ClassifyGap(hours)
	s.logger.Info("memory: restored state",
		"user", rec.UserName,
		"emotion", rec.Emotion,
		"affection", rec.Affection,
		"turns", rec.TotalTurns,
		"hours_away", fmt.Sprintf("%.2f", hours),
		"gap", gap.String(),
	)
	return BootContext(gap, rec.UserName)
}
