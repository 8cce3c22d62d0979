package affect

import (
	"math"
	"strings"
)

// Scorer returns a compound sentiment score in [-1, 1] for a piece of text.
type Scorer interface {
	Score(text string) float64
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(text string) float64

// Score implements Scorer.
func (f ScorerFunc) Score(text string) float64 { return f(text) }

const (
	// alpha normalises the raw valence sum into (-1, 1).
	alpha = 15.0
	// boosterIncr is added (in the valence's direction) after an intensifier.
	boosterIncr = 0.293
	// capsIncr is added to an all-caps word in an otherwise mixed-case text.
	capsIncr = 0.733
	// negationScale flips and dampens a negated word.
	negationScale = -0.74
	// exclaimIncr is added per "!" (up to maxExclaims) to a non-zero sum.
	exclaimIncr = 0.292
	maxExclaims = 4
)

// LexiconScorer is a rule-based valence scorer in the VADER family: each word
// carries a valence in [-4, 4], adjusted for intensifiers, negation and
// emphasis, and the sum is normalised to a compound score.
type LexiconScorer struct {
	Valence   map[string]float64
	Boosters  WordSet
	Negations WordSet
}

// NewLexiconScorer returns a scorer loaded with the built-in valence table.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{
		Valence:   defaultValence(),
		Boosters:  NewWordSet("very", "so", "really", "super", "totally", "extremely", "absolutely", "too", "such", "bahut"),
		Negations: NewWordSet("not", "no", "never", "dont", "don't", "isnt", "isn't", "cant", "can't", "wont", "won't", "nahi", "nothing", "without"),
	}
}

// Score implements Scorer.
func (s *LexiconScorer) Score(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	mixedCase := !isShouting(text)

	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = trimPunct(strings.ToLower(w))
	}

	sum := 0.0
	for i, w := range lowered {
		v, ok := s.Valence[w]
		if !ok || v == 0 {
			continue
		}
		sign := math.Copysign(1, v)
		if mixedCase && isShouting(trimPunct(words[i])) {
			v += capsIncr * sign
		}
		if i > 0 && s.Boosters.Has(lowered[i-1]) {
			v += boosterIncr * sign
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			if s.Negations.Has(lowered[i-back]) {
				v *= negationScale
				break
			}
		}
		sum += v
	}

	if sum != 0 {
		n := strings.Count(text, "!")
		if n > maxExclaims {
			n = maxExclaims
		}
		sum += float64(n) * exclaimIncr * math.Copysign(1, sum)
	}

	compound := sum / math.Sqrt(sum*sum+alpha)
	return clamp(compound, -1, 1)
}

func defaultValence() map[string]float64 {
	return map[string]float64{
		// positive
		"love": 3.2, "loved": 2.9, "lovely": 2.8, "like": 1.5, "likes": 1.5, "adore": 2.9,
		"good": 1.9, "great": 3.1, "awesome": 3.1, "amazing": 2.8, "wonderful": 2.7,
		"nice": 1.8, "cool": 1.3, "happy": 2.7, "glad": 2.0, "fun": 2.3, "funny": 1.9,
		"sweet": 2.0, "cute": 2.0, "beautiful": 2.9, "pretty": 2.2, "best": 3.2,
		"thanks": 1.9, "thank": 1.5, "excited": 2.2, "exciting": 2.2, "yay": 2.4,
		"wow": 2.8, "perfect": 2.7, "brilliant": 2.8, "smart": 1.7, "miss": 0.7,
		"hug": 2.1, "hugs": 2.2, "kiss": 1.8, "fantastic": 2.6, "enjoy": 2.2,
		"yes": 1.7, "haha": 2.0, "lol": 1.8, "welcome": 2.0, "proud": 2.1,
		"care": 2.2, "friend": 2.2, "laugh": 2.6, "win": 2.8, "okay": 0.9,
		// negative
		"hate": -2.7, "hated": -3.2, "bad": -2.5, "terrible": -2.1, "awful": -2.0,
		"horrible": -2.5, "worst": -3.1, "stupid": -2.4, "idiot": -2.3, "dumb": -2.3,
		"angry": -2.3, "mad": -2.2, "annoyed": -1.6, "annoying": -1.7, "sad": -2.1,
		"upset": -1.6, "hurt": -2.4, "cry": -2.1, "lonely": -2.0, "boring": -1.3,
		"bored": -1.1, "tired": -1.9, "ugly": -3.1, "sucks": -1.5, "wrong": -2.1,
		"sorry": -0.3, "kill": -3.7, "die": -2.9, "disgusting": -2.4, "pathetic": -2.6,
		"useless": -1.8, "shut": -0.9, "fail": -2.5, "problem": -1.7,
		"miserable": -2.2, "depressed": -2.3, "jealous": -2.0, "liar": -2.6, "ignore": -1.5,
	}
}
