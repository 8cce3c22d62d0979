// Package memory implements Neon's durable affect memory: a single JSON
// record holding the relationship state (affection, mood) plus session
// metadata, restored once at start and rewritten atomically after every
// completed turn.
//
// The file is owned by one process. Writers inside that process are
// serialised by the Store's mutex.
package memory

import (
	"math"
	"time"
)

// DefaultUserName is used until the user tells us their name.
const DefaultUserName = "User"

// Record is the on-disk shape of the affect memory.
type Record struct {
	Affection       float64 `json:"affection" jsonschema:"description=long-term trust score"`
	Emotion         string  `json:"emotion" jsonschema:"description=mood label at the last save"`
	LastInteraction float64 `json:"last_interaction" jsonschema:"description=epoch seconds of the last save"`
	TotalTurns      int     `json:"total_turns" jsonschema:"description=saves so far; negatives are repaired to 0"`
	UserName        string  `json:"user_name"`
}

// DefaultRecord returns the baseline record used on first run or after a
// corrupt file was discarded.
func DefaultRecord(now time.Time) Record {
	return Record{
		Affection:       50.0,
		Emotion:         "calm",
		LastInteraction: epochSeconds(now),
		TotalTurns:      0,
		UserName:        DefaultUserName,
	}
}

// LastSeen converts LastInteraction back to a time.Time.
func (r Record) LastSeen() time.Time {
	sec, frac := math.Modf(r.LastInteraction)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Stats is the human-facing summary of the record.
type Stats struct {
	UserName  string
	Affection float64 // rounded to one decimal
	Turns     int
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
