package voice

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// contractions are expanded before synthesis; the TTS model swallows them.
var contractions = []struct{ from, to string }{
	{"that's", "that is"},
	{"it's", "it is"},
	{"i'm", "i am"},
	{"you're", "you are"},
	{"we're", "we are"},
	{"they're", "they are"},
	{"can't", "cannot"},
	{"won't", "will not"},
	{"don't", "do not"},
	{"i've", "i have"},
	{"i'll", "i will"},
}

var contractionRes = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(contractions))
	for i, c := range contractions {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(c.from) + `\b`)
	}
	return out
}()

var (
	actionRe     = regexp.MustCompile(`\*.*?\*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	quoteFixer   = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`)
)

// anchors are openings the TTS model never clips. Anything else gets
// "Well, " prepended so the first real word is not dropped.
var anchors = []string{"well", "okay", "so"}

// PrepareText normalises a reply for speech synthesis: it strips *actions*,
// straightens quotes, expands contractions, collapses whitespace and adds the
// "Well, " anchor. It returns "" when nothing speakable is left.
func PrepareText(text string) string {
	text = actionRe.ReplaceAllString(text, "")
	text = quoteFixer.Replace(text)
	for i, re := range contractionRes {
		to := contractions[i].to
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			return matchCase(m, to)
		})
	}
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, a := range anchors {
		if strings.HasPrefix(lower, a) {
			return text
		}
	}
	return "Well, " + text
}

// matchCase capitalises repl when the matched text starts upper-case.
func matchCase(matched, repl string) string {
	r, _ := utf8.DecodeRuneInString(matched)
	if !unicode.IsUpper(r) {
		return repl
	}
	first, size := utf8.DecodeRuneInString(repl)
	return string(unicode.ToUpper(first)) + repl[size:]
}
