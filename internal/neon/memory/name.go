package memory

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	namePhrase    = "my name is"
	maxNameRunes  = 24
	nameTerminals = ".!?,;:"
)

// ExtractName pulls a display name out of an utterance such as
// "hey, my name is raj kumar!". It returns false when the phrase is absent or
// the candidate is empty or too long.
func ExtractName(input string) (string, bool) {
	lower := strings.ToLower(input)
	idx := strings.LastIndex(lower, namePhrase)
	if idx < 0 {
		return "", false
	}
	raw := strings.TrimSpace(lower[idx+len(namePhrase):])
	raw = strings.TrimSpace(strings.TrimRight(raw, nameTerminals))
	if raw == "" || utf8.RuneCountInString(raw) > maxNameRunes {
		return "", false
	}
	// A Caser is stateful; build one per call.
	return cases.Title(language.English).String(raw), true
}
