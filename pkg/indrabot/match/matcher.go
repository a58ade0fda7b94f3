package match

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Matcher resolves questions against an ordered template table.
type Matcher struct {
	templates []Template
}

// NewMatcher builds a matcher over the default templates followed by any
// extra templates, in order.
func NewMatcher(extra ...Template) *Matcher {
	ts := DefaultTemplates()
	ts = append(ts, extra...)
	return &Matcher{templates: ts}
}

// Templates returns the matcher's template table.
func (m *Matcher) Templates() []Template {
	out := make([]Template, len(m.templates))
	copy(out, m.templates)
	return out
}

var punctuation = strings.NewReplacer(
	".", "", ",", "", "?", "", "!", "", "-", "", ";", "", ":", "",
)

// Sanitize prepares a question for matching: it normalizes the text,
// drops punctuation and lowercases the first character only so entity
// names keep their case.
func Sanitize(text string) string {
	text = norm.NFKC.String(text)
	text = punctuation.Replace(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToLower(r)) + text[size:]
}

// Match returns the first template matching the question.
func (m *Matcher) Match(question string) (Match, bool) {
	q := Sanitize(question)
	if q == "" {
		return Match{}, false
	}
	for _, t := range m.templates {
		groups := t.Pattern.FindStringSubmatch(q)
		if groups == nil {
			continue
		}
		return Match{Template: t, Args: groups[1:], Question: q}, true
	}
	return Match{}, false
}

// Suggestion is the template example closest to a question.
type Suggestion struct {
	Example string
	Score   int
}

// Suggest finds the template whose example is closest to the question by
// Levenshtein ratio. Ties keep the earlier template.
func (m *Matcher) Suggest(question string) (Suggestion, bool) {
	if len(m.templates) == 0 {
		return Suggestion{}, false
	}
	q := []rune(Sanitize(question))
	best := Suggestion{Score: -1}
	seen := make(map[string]struct{}, len(m.templates))
	for _, t := range m.templates {
		if _, dup := seen[t.Example]; dup {
			continue
		}
		seen[t.Example] = struct{}{}
		score := Ratio(q, []rune(t.Example))
		if score > best.Score {
			best = Suggestion{Example: t.Example, Score: score}
		}
	}
	return best, true
}

// Ratio is the similarity of two strings on a 0..100 scale, counting a
// substitution as a deletion plus an insertion.
func Ratio(a, b []rune) int {
	if len(a) == 0 && len(b) == 0 {
		return 100
	}
	r := levenshtein.RatioForStrings(a, b, levenshtein.DefaultOptions)
	return int(math.Round(r * 100))
}
