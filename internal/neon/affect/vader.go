package affect

import (
	"math"
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// The analyzer loads its lexicon on construction and is read-only afterwards,
// so every VaderScorer shares one.
var sharedAnalyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// VaderScorer scores text with the full VADER lexicon and heuristics. It is
// the engine's default; LexiconScorer remains for callers that want a small,
// editable table.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer returns a scorer backed by the shared VADER analyzer.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: sharedAnalyzer()}
}

// Score implements Scorer.
func (s *VaderScorer) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	c := s.analyzer.PolarityScores(text).Compound
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(-1, math.Min(1, c))
}
