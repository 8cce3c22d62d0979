package affect

import (
	"log/slog"
	"math"
	"strings"
)

const (
	// affectionDecay is applied every turn: a relationship needs upkeep.
	affectionDecay = 0.995

	baseTarget    = 0.3
	boredTarget   = 0.1
	shoutBump     = 0.3
	exclaimBump   = 0.2
	longBump      = 0.2
	magnitudeBump = 0.2
	longWords     = 8

	smoothingOld = 0.7
	smoothingNew = 0.3

	positiveDelta = 2.0
	negativeDelta = -5.0
	forgiveDelta  = 8.0
	apologyDelta  = 2.0
)

// Engine owns the live State and applies the update pipeline to every
// utterance.
type Engine struct {
	state   State
	scorer  Scorer
	lexicon Lexicon
	rules   []Rule
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer replaces the base sentiment scorer.
func WithScorer(s Scorer) Option { return func(e *Engine) { e.scorer = s } }

// WithLexicon replaces the trigger tables.
func WithLexicon(l Lexicon) Option { return func(e *Engine) { e.lexicon = l } }

// WithRules replaces the mood transition table.
func WithRules(r []Rule) Option { return func(e *Engine) { e.rules = r } }

// WithLogger sets the logger used for debug traces. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithState seeds the engine with an explicit state (clamped).
func WithState(s State) Option {
	return func(e *Engine) {
		e.state = State{
			Emotion:   ParseEmotion(string(s.Emotion)),
			Intensity: ClampIntensity(s.Intensity),
			Affection: ClampAffection(s.Affection),
			LastInput: s.LastInput,
		}
	}
}

// NewEngine returns an Engine in the default state.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		state:   DefaultState(),
		scorer:  NewVaderScorer(),
		lexicon: DefaultLexicon(),
		rules:   DefaultRules,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State { return e.state }

// Seed restores persisted mood and affection. Intensity is a short-term
// signal and always restarts at the baseline.
func (e *Engine) Seed(emotion Emotion, affection float64) {
	e.state.Emotion = ParseEmotion(string(emotion))
	e.state.Affection = ClampAffection(affection)
	e.state.Intensity = BaselineIntensity
}

// Score returns the utterance's compound score after lexical overrides.
func (e *Engine) Score(text string) float64 {
	return e.score(newUtterance(text))
}

func (e *Engine) score(u utterance) float64 {
	score := e.scorer.Score(u.raw)

	hasLove := e.lexicon.Love.Matches(u)
	hasHate := e.lexicon.Hate.Matches(u)

	switch {
	case hasHate && hasLove:
		score -= 0.2
	case hasHate:
		score -= 0.5
	case hasLove:
		score += 0.4
	}
	if e.lexicon.Funny.Matches(u) {
		score += 0.2
	}
	return clamp(score, -1, 1)
}

// Update feeds one utterance through the pipeline. It returns false and
// leaves the state untouched for blank input.
func (e *Engine) Update(text string) (Signal, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Signal{}, false
	}
	u := newUtterance(text)
	s := Signal{Current: e.state.Emotion}

	e.state.Affection = ClampAffection(e.state.Affection * affectionDecay)

	s.RawScore = e.score(u)

	s.TargetIntensity, s.Bored = e.targetIntensity(u, s.RawScore)
	e.state.Intensity = ClampIntensity(e.state.Intensity*smoothingOld + s.TargetIntensity*smoothingNew)
	s.Intensity = e.state.Intensity

	s.AffectionDelta, s.Forgiven = e.affectionDelta(u, s.RawScore)
	e.state.Affection = ClampAffection(e.state.Affection + s.AffectionDelta)
	s.Affection = e.state.Affection

	s.Next, s.Rule = Transition(e.rules, s)
	e.state.Emotion = s.Next
	e.state.LastInput = text

	if s.Bored {
		e.logger.Debug("affect: boredom triggered", "input", text)
	}
	if s.Forgiven {
		e.logger.Debug("affect: forgiveness granted")
	}
	e.logger.Debug("affect: state updated",
		"emotion", s.Next,
		"rule", s.Rule,
		"score", round2(s.RawScore),
		"intensity", round2(s.Intensity),
		"affection", round2(s.Affection),
	)
	return s, true
}

// targetIntensity computes the arousal target. Repetition and low-energy
// words override every bump.
func (e *Engine) targetIntensity(u utterance, raw float64) (float64, bool) {
	lower := strings.ToLower(u.raw)
	repeated := lower == strings.ToLower(e.state.LastInput)
	lowEnergy := e.lexicon.Bored.Has(strings.Trim(lower, " .!?"))
	if repeated || lowEnergy {
		return boredTarget, true
	}

	target := baseTarget
	if isShouting(u.raw) {
		target += shoutBump
	}
	if strings.Contains(u.raw, "!") {
		target += exclaimBump
	}
	if len(u.words) > longWords {
		target += longBump
	}
	if math.Abs(raw) > 0.5 {
		target += magnitudeBump
	}
	return target, false
}

// affectionDelta maps the score to a trust change. An apology overrides the
// ordinary delta, and is worth much more while mad.
func (e *Engine) affectionDelta(u utterance, raw float64) (float64, bool) {
	if e.lexicon.Sorry.Matches(u) {
		if e.state.Emotion == Mad {
			return forgiveDelta, true
		}
		return apologyDelta, false
	}
	switch {
	case raw > 0.3:
		return positiveDelta, false
	case raw < -0.3:
		return negativeDelta, false
	}
	return 0, false
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
