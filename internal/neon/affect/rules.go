package affect

// Signal is everything a mood rule may look at. It is produced by Update and
// returned to the caller for logging.
type Signal struct {
	RawScore        float64
	TargetIntensity float64
	Intensity       float64 // after smoothing
	Affection       float64 // after decay and delta
	AffectionDelta  float64
	Current         Emotion // mood before the transition
	Next            Emotion // mood after the transition
	Rule            string  // name of the rule that decided Next
	Bored           bool    // repetition or low-energy override fired
	Forgiven        bool    // apology while mad
}

// Rule is one row of the mood transition table. Rules are evaluated top to
// bottom; the first rule whose When returns true decides the next mood. A nil
// Next keeps the current mood (a stickiness guard).
type Rule struct {
	Name string
	When func(Signal) bool
	Next func(Signal) Emotion
}

// DefaultRules is the transition table. Stickiness guards come first so anger
// and boredom need a deliberately stronger signal to break.
var DefaultRules = []Rule{
	{
		Name: "sticky-anger",
		When: func(s Signal) bool { return s.Current == Mad && s.RawScore < 0.4 },
	},
	{
		Name: "sticky-boredom",
		When: func(s Signal) bool { return s.Current == Bored && s.Intensity < 0.25 },
	},
	{
		Name: "strong-positive",
		When: func(s Signal) bool { return s.RawScore >= 0.6 },
		Next: func(s Signal) Emotion {
			if s.Intensity > 0.7 {
				return Excited
			}
			return Happy
		},
	},
	{
		Name: "strong-negative",
		When: func(s Signal) bool { return s.RawScore <= -0.5 },
		Next: func(s Signal) Emotion {
			if s.Intensity > 0.7 {
				return Mad
			}
			return Annoyed
		},
	},
	{
		Name: "mild-positive",
		When: func(s Signal) bool { return s.RawScore > 0.2 },
		Next: func(s Signal) Emotion {
			if s.Affection > 60 {
				return Flirty
			}
			return Playful
		},
	},
	{
		Name: "low-energy",
		When: func(s Signal) bool { return s.Intensity < 0.2 },
		Next: func(Signal) Emotion { return Bored },
	},
}

// Transition evaluates rules against s and returns the next mood and the
// name of the deciding rule. When no rule matches the result is Calm.
func Transition(rules []Rule, s Signal) (Emotion, string) {
	for _, r := range rules {
		if !r.When(s) {
			continue
		}
		if r.Next == nil {
			return s.Current, r.Name
		}
		return r.Next(s), r.Name
	}
	return Calm, "default"
}
