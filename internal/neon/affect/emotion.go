// Package affect implements Neon's affective state machine: a sentiment score
// per utterance feeds a small state vector (emotion, intensity, affection)
// that evolves with momentum, decay and sticky moods.
//
// An Engine is owned by exactly one session and is not safe for concurrent
// use.
package affect

import "strings"

// Emotion is the current mood label.
type Emotion string

const (
	Calm    Emotion = "calm"
	Happy   Emotion = "happy"
	Excited Emotion = "excited"
	Flirty  Emotion = "flirty"
	Playful Emotion = "playful"
	Bored   Emotion = "bored"
	Annoyed Emotion = "annoyed"
	Mad     Emotion = "mad"
)

// Emotions lists every valid mood label.
var Emotions = []Emotion{Calm, Happy, Excited, Flirty, Playful, Bored, Annoyed, Mad}

// Valid reports whether e is one of the enumerated moods.
func (e Emotion) Valid() bool {
	for _, v := range Emotions {
		if e == v {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (e Emotion) String() string { return string(e) }

// ParseEmotion maps a stored label onto the enum. "angry" is accepted as a
// legacy synonym for Mad; anything unknown becomes Calm.
func ParseEmotion(s string) Emotion {
	e := Emotion(strings.ToLower(strings.TrimSpace(s)))
	if e == "angry" {
		return Mad
	}
	if e.Valid() {
		return e
	}
	return Calm
}
