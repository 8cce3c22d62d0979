// Package sanitize turns raw model output into displayable (and optionally
// speakable) text. Cleaning is an ordered table of named stages; the order is
// part of the contract and is covered by tests.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Options tunes Clean.
type Options struct {
	// TTS additionally strips symbols a speech engine would read aloud and
	// expands chat abbreviations.
	TTS bool
}

// Stage is one named transformation in the pipeline.
type Stage struct {
	Name    string
	TTSOnly bool
	Apply   func(string) string
}

// LeakageMarkers are prompt-format tokens that mean the model started writing
// the next turn itself. Everything from the first marker on is dropped.
var LeakageMarkers = []string{"User:", "System:", "### Response:", "### Instruction:"}

// StageDirections are bare (unstarred) action words removed from replies.
var StageDirections = []string{"rolls eyes", "rolls eye", "sighs", "smirks", "giggles", "laughs", "eye roll", "eyeroll"}

// Abbreviations are expanded in TTS mode when they stand alone between spaces.
var Abbreviations = map[string]string{
	"idc": "I don't care",
	"idk": "I don't know",
	"rn":  "right now",
}

var (
	bracketRe          = regexp.MustCompile(`\[.*?\]`)
	contextNoteRe      = regexp.MustCompile(`\(Context:.*?\)`)
	asteriskActionRe   = regexp.MustCompile(`\*[^*]+\*`)
	stageDirectionRe   = regexp.MustCompile(`(?i)\b(` + alternation(StageDirections) + `)\b`)
	unspeakableRe      = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s,!.?']`)
	spaceBeforePunctRe = regexp.MustCompile(`\s+([?.!,"])`)
	sentenceJoinRe     = regexp.MustCompile(`\.(\p{Lu})`)
	whitespaceRe       = regexp.MustCompile(`\s+`)
)

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

// Stages is the cleaning pipeline in execution order.
var Stages = []Stage{
	{Name: "cut-leakage", Apply: cutLeakage},
	{Name: "strip-brackets", Apply: func(s string) string {
		s = bracketRe.ReplaceAllString(s, "")
		return contextNoteRe.ReplaceAllString(s, "")
	}},
	{Name: "strip-asterisk-actions", Apply: func(s string) string {
		return asteriskActionRe.ReplaceAllString(s, "")
	}},
	{Name: "strip-bare-actions", Apply: func(s string) string {
		return stageDirectionRe.ReplaceAllString(s, "")
	}},
	{Name: "strip-unspeakable", TTSOnly: true, Apply: func(s string) string {
		return unspeakableRe.ReplaceAllString(s, "")
	}},
	{Name: "expand-abbreviations", TTSOnly: true, Apply: expandAbbreviations},
	{Name: "repair-punctuation", Apply: func(s string) string {
		s = spaceBeforePunctRe.ReplaceAllString(s, "$1")
		return sentenceJoinRe.ReplaceAllString(s, ". $1")
	}},
	{Name: "polish", Apply: polish},
}

// maxPasses bounds the fixpoint loop in Clean. Every stage only removes text
// or expands a finite set of tokens, so two passes settle in practice.
const maxPasses = 4

// Clean runs the pipeline until the text stops changing, so that
// Clean(Clean(x)) == Clean(x). Blank input yields "".
func Clean(text string, opts Options) string {
	for i := 0; i < maxPasses; i++ {
		next := runStages(text, opts)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func runStages(text string, opts Options) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, st := range Stages {
		if st.TTSOnly && !opts.TTS {
			continue
		}
		text = st.Apply(text)
	}
	return text
}

func cutLeakage(s string) string {
	cut := len(s)
	for _, m := range LeakageMarkers {
		if i := strings.Index(s, m); i >= 0 && i < cut {
			cut = i
		}
	}
	return s[:cut]
}

// expandAbbreviations replaces tokens that exactly match an abbreviation.
// Tokens carrying punctuation ("idk,") are left alone.
func expandAbbreviations(s string) string {
	parts := strings.Split(s, " ")
	for i, p := range parts {
		if full, ok := Abbreviations[p]; ok {
			parts[i] = full
		}
	}
	return strings.Join(parts, " ")
}

func polish(s string) string {
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
