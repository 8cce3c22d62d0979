package affect

import (
	"strings"
	"unicode"
)

// WordSet is a set of trigger words. Entries containing a space are phrases
// and match as substrings of the lower-cased utterance; single words match
// whole tokens.
type WordSet map[string]struct{}

// NewWordSet builds a WordSet from lower-cased words.
func NewWordSet(words ...string) WordSet {
	ws := make(WordSet, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			ws[w] = struct{}{}
		}
	}
	return ws
}

// Has reports whether the exact word is in the set.
func (ws WordSet) Has(word string) bool {
	_, ok := ws[word]
	return ok
}

// Matches reports whether any entry of the set occurs in u.
func (ws WordSet) Matches(u utterance) bool {
	for w := range ws {
		if strings.Contains(w, " ") {
			if strings.Contains(u.lower, w) {
				return true
			}
			continue
		}
		if _, ok := u.tokens[w]; ok {
			return true
		}
	}
	return false
}

// Lexicon holds the trigger tables used for score overrides, forgiveness and
// boredom detection.
type Lexicon struct {
	Love  WordSet
	Hate  WordSet
	Sorry WordSet
	Funny WordSet
	Bored WordSet
}

// DefaultLexicon returns the built-in English/Hinglish trigger tables.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Love:  NewWordSet("love", "cute", "shona", "jaan", "babu", "mast", "kadak", "sexy", "sweet"),
		Hate:  NewWordSet("hate", "stupid", "idiot", "pagal", "bakwaas", "bakar", "kutti", "shut up"),
		Sorry: NewWordSet("sorry", "maaf", "apology", "my bad", "galti"),
		Funny: NewWordSet("lol", "lmao", "haha", "rofl", "xd", "hehe"),
		Bored: NewWordSet("hmm", "k", "ok", "acha", "thik", "oh", "accha", "yup"),
	}
}

// utterance is a tokenised view of one input, computed once per update.
type utterance struct {
	raw    string
	lower  string
	words  []string
	tokens map[string]struct{}
}

func newUtterance(text string) utterance {
	lower := strings.ToLower(text)
	words := strings.Fields(text)
	tokens := make(map[string]struct{}, len(words))
	for _, w := range strings.Fields(lower) {
		if t := trimPunct(w); t != "" {
			tokens[t] = struct{}{}
		}
	}
	return utterance{raw: text, lower: lower, words: words, tokens: tokens}
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// isShouting mirrors str.isupper: at least one cased letter and no lower-case ones.
func isShouting(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
