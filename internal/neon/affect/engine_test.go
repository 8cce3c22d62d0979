package affect

import (
	"math"
	"strings"
	"testing"
)

// queueScorer returns preset scores in order, then 0.
type queueScorer struct{ scores []float64 }

func (q *queueScorer) Score(string) float64 {
	if len(q.scores) == 0 {
		return 0
	}
	s := q.scores[0]
	q.scores = q.scores[1:]
	return s
}

func fixedScorer(v float64) Scorer { return ScorerFunc(func(string) float64 { return v }) }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestUpdate_BlankInputIsNoop(t *testing.T) {
	e := NewEngine()
	before := e.Snapshot()
	for _, in := range []string{"", "   ", "\n\t"} {
		if _, ok := e.Update(in); ok {
			t.Errorf("Update(%q) reported a change", in)
		}
	}
	if e.Snapshot() != before {
		t.Errorf("state changed on blank input: %+v -> %+v", before, e.Snapshot())
	}
}

func TestScore_Overrides(t *testing.T) {
	tests := []struct {
		name string
		base float64
		text string
		want float64
	}{
		{"neutral passthrough", 0.1, "tell me about your day", 0.1},
		{"love bias", 0.1, "you are so cute", 0.5},
		{"hate bias", 0.1, "you are stupid", -0.4},
		{"conflict is mildly negative", 0.1, "i love you but you are an idiot", -0.1},
		{"phrase match", 0.0, "oh just shut up already", -0.5},
		{"humor bonus", 0.1, "that was hilarious lol", 0.3},
		{"humor stacks after conflict", 0.0, "love you, hate you, haha", 0.0},
		{"clamped high", 0.9, "love this haha", 1.0},
		{"clamped low", -0.9, "hate this", -1.0},
		{"punctuation does not hide words", 0.0, "HATE!!!", -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(WithScorer(fixedScorer(tt.base)))
			if got := e.Score(tt.text); !approx(got, tt.want) {
				t.Errorf("Score(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestUpdate_StaysInRange(t *testing.T) {
	inputs := []string{
		"I LOVE YOU SO MUCH!!!!!!!", "hate hate hate", "sorry", "k", "k",
		strings.Repeat("amazing wonderful ", 40), "you idiot!!!", "lol", "hmm",
	}
	for _, start := range []State{
		{Emotion: Mad, Intensity: 1.0, Affection: 100},
		{Emotion: Bored, Intensity: 0.1, Affection: 0},
		{Emotion: Calm, Intensity: 0.5, Affection: 50},
	} {
		e := NewEngine(WithState(start))
		for i := 0; i < 50; i++ {
			e.Update(inputs[i%len(inputs)])
			s := e.Snapshot()
			if s.Intensity < MinIntensity || s.Intensity > MaxIntensity {
				t.Fatalf("intensity out of range: %v", s.Intensity)
			}
			if s.Affection < MinAffection || s.Affection > MaxAffection {
				t.Fatalf("affection out of range: %v", s.Affection)
			}
			if !s.Emotion.Valid() {
				t.Fatalf("invalid emotion %q", s.Emotion)
			}
		}
	}
}

func TestUpdate_RepetitionHitsBoredomFloor(t *testing.T) {
	e := NewEngine(WithScorer(fixedScorer(0)))

	first, _ := e.Update("What are you doing tonight!")
	if first.Bored || approx(first.TargetIntensity, boredTarget) {
		t.Fatalf("first utterance should not be boring: %+v", first)
	}
	second, _ := e.Update("what are you doing TONIGHT!")
	if !second.Bored {
		t.Fatal("case-insensitive repeat should trigger boredom")
	}
	if !approx(second.TargetIntensity, boredTarget) {
		t.Errorf("target = %v, want %v", second.TargetIntensity, boredTarget)
	}
}

func TestUpdate_LowEnergyWordOverridesBumps(t *testing.T) {
	e := NewEngine(WithScorer(fixedScorer(0.9)))
	s, _ := e.Update("OK!")
	if !s.Bored || !approx(s.TargetIntensity, boredTarget) {
		t.Errorf("expected boredom override, got %+v", s)
	}
}

func TestUpdate_TargetIntensityBumps(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		text  string
		want  float64
	}{
		{"baseline", 0, "hello there", 0.3},
		{"shouting", 0, "HELLO THERE", 0.6},
		{"exclamation", 0, "hello there!", 0.5},
		{"long", 0, "one two three four five six seven eight nine", 0.5},
		{"magnitude", -0.6, "hello there", 0.5},
		{"everything", 0.8, "ONE TWO THREE FOUR FIVE SIX SEVEN EIGHT NINE!", 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(WithScorer(fixedScorer(tt.score)))
			s, _ := e.Update(tt.text)
			if !approx(s.TargetIntensity, tt.want) {
				t.Errorf("target = %v, want %v", s.TargetIntensity, tt.want)
			}
			wantIntensity := ClampIntensity(0.7*BaselineIntensity + 0.3*tt.want)
			if !approx(s.Intensity, wantIntensity) {
				t.Errorf("intensity = %v, want %v", s.Intensity, wantIntensity)
			}
		})
	}
}

func TestUpdate_AffectionDeltas(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  float64
	}{
		{"positive", 0.31, 50*affectionDecay + 2},
		{"negative", -0.31, 50*affectionDecay - 5},
		{"neutral band", 0.3, 50 * affectionDecay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(WithScorer(fixedScorer(tt.score)))
			s, _ := e.Update("just some words")
			if !approx(s.Affection, tt.want) {
				t.Errorf("affection = %v, want %v", s.Affection, tt.want)
			}
		})
	}
}

func TestUpdate_ApologyWorthMoreWhenMad(t *testing.T) {
	gain := func(start Emotion) float64 {
		e := NewEngine(WithScorer(fixedScorer(-0.45)), WithState(State{Emotion: start, Intensity: 0.5, Affection: 40}))
		s, _ := e.Update("i am sorry, my bad")
		return s.Affection - 40*affectionDecay
	}
	mad, calm := gain(Mad), gain(Calm)
	if !approx(mad, forgiveDelta) {
		t.Errorf("mad gain = %v, want %v", mad, forgiveDelta)
	}
	if !approx(calm, apologyDelta) {
		t.Errorf("calm gain = %v, want %v", calm, apologyDelta)
	}
	if mad <= calm {
		t.Errorf("apology while mad (%v) should beat apology while calm (%v)", mad, calm)
	}
}

func TestUpdate_StickyAnger(t *testing.T) {
	q := &queueScorer{scores: []float64{0.35, 0.45}}
	e := NewEngine(WithScorer(q), WithState(State{Emotion: Mad, Intensity: 0.5, Affection: 50}))

	s, _ := e.Update("fine, whatever you say")
	if s.Next != Mad || s.Rule != "sticky-anger" {
		t.Fatalf("expected to stay mad via sticky-anger, got %s via %s", s.Next, s.Rule)
	}

	s, _ = e.Update("okay that was actually kind of nice")
	if s.Next == Mad {
		t.Fatalf("expected to leave mad at score 0.45, rule %s", s.Rule)
	}
	if s.Next != Playful || s.Rule != "mild-positive" {
		t.Errorf("expected playful via mild-positive, got %s via %s", s.Next, s.Rule)
	}
}

func TestUpdate_StickyBoredom(t *testing.T) {
	e := NewEngine(WithScorer(fixedScorer(0.5)), WithState(State{Emotion: Bored, Intensity: 0.1, Affection: 50}))
	s, _ := e.Update("hmm")
	if s.Next != Bored || s.Rule != "sticky-boredom" {
		t.Errorf("expected sticky boredom, got %s via %s", s.Next, s.Rule)
	}
}

func TestUpdate_HateExample(t *testing.T) {
	tests := []struct {
		name      string
		intensity float64
		want      Emotion
	}{
		{"moderate arousal ends annoyed", 0.5, Annoyed},
		{"high arousal ends mad", 1.0, Mad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(WithState(State{Emotion: Calm, Intensity: tt.intensity, Affection: 50}))
			s, _ := e.Update("I HATE YOU!!! you never listen")
			if s.RawScore > -0.5 {
				t.Fatalf("expected strongly negative score, got %v", s.RawScore)
			}
			if s.TargetIntensity <= baseTarget {
				t.Errorf("expected bumped target, got %v", s.TargetIntensity)
			}
			if s.Next != tt.want {
				t.Errorf("emotion = %s, want %s (intensity %v)", s.Next, tt.want, s.Intensity)
			}
			if !approx(s.Affection, 50*affectionDecay-5) {
				t.Errorf("affection = %v, want %v", s.Affection, 50*affectionDecay-5)
			}
		})
	}
}

func TestNewEngine_DefaultScorerCoversGeneralVocabulary(t *testing.T) {
	tests := []struct {
		text      string
		want      Emotion
		affection float64
	}{
		{"this is so disappointing", Annoyed, 50*affectionDecay - 5},
		{"you are adorable", Playful, 50*affectionDecay + 2},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e := NewEngine(WithState(State{Emotion: Calm, Intensity: 0.5, Affection: 50}))
			s, _ := e.Update(tt.text)
			if s.Next != tt.want {
				t.Errorf("emotion = %s via %s (score %v), want %s", s.Next, s.Rule, s.RawScore, tt.want)
			}
			if !approx(s.Affection, tt.affection) {
				t.Errorf("affection = %v, want %v", s.Affection, tt.affection)
			}
		})
	}
}

func TestSeed_ResetsIntensityAndClamps(t *testing.T) {
	e := NewEngine(WithState(State{Emotion: Excited, Intensity: 0.95, Affection: 10}))
	e.Seed("angry", 140)
	s := e.Snapshot()
	if s.Emotion != Mad {
		t.Errorf("legacy angry should map to mad, got %s", s.Emotion)
	}
	if s.Affection != MaxAffection {
		t.Errorf("affection = %v, want clamp to %v", s.Affection, MaxAffection)
	}
	if s.Intensity != BaselineIntensity {
		t.Errorf("intensity = %v, want %v", s.Intensity, BaselineIntensity)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	e := NewEngine()
	s := e.Snapshot()
	s.Affection = 99
	s.Emotion = Mad
	if e.Snapshot().Affection == 99 || e.Snapshot().Emotion == Mad {
		t.Error("mutating a snapshot changed the engine")
	}
}
