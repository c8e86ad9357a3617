package moderation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// separatorFold maps apostrophe, quote and dash variants to their canonical
// form. Apostrophes and quotes become a space, dashes become '-'.
var separatorFold = strings.NewReplacer(
	"'", " ",
	"’", " ",
	"‘", " ",
	"ʻ", " ",
	"ʼ", " ",
	"`", " ",
	"´", " ",
	"′", " ",
	"\"", " ",
	"“", " ",
	"”", " ",
	"«", " ",
	"»", " ",
	"·", " ",
	"–", "-",
	"—", "-",
)

var nonAlnumRun = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// wordChar matches what the boundary patterns treat as part of a word.
const wordChar = `\p{L}\p{N}_`

// Normalize applies the matching pipeline to text: canonical decomposition
// with combining marks removed, lowercasing, then separator folding.
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}
	return separatorFold.Replace(strings.ToLower(stripped))
}

// Collapse replaces every run of non-alphanumeric characters with one space.
func Collapse(normalized string) string {
	return strings.TrimSpace(nonAlnumRun.ReplaceAllString(normalized, " "))
}

type lexiconTerm struct {
	original   string
	normalized string
	boundary   *regexp.Regexp
}

// Lexicon matches text against a fixed list of forbidden terms. It is safe for
// concurrent use.
type Lexicon struct {
	terms []lexiconTerm
}

// NewLexicon normalizes terms once. Duplicates after normalization and terms
// that normalize to nothing are dropped.
func NewLexicon(terms []string) (*Lexicon, error) {
	seen := make(map[string]struct{}, len(terms))
	l := &Lexicon{}
	for _, term := range terms {
		normalized := strings.TrimSpace(Normalize(term))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}

		boundary, err := regexp.Compile(`(?:^|[^` + wordChar + `])` + regexp.QuoteMeta(normalized) + `(?:[^` + wordChar + `]|$)`)
		if err != nil {
			return nil, fmt.Errorf("compile lexicon term %q: %w", term, err)
		}
		l.terms = append(l.terms, lexiconTerm{original: term, normalized: normalized, boundary: boundary})
	}
	if len(l.terms) == 0 {
		return nil, fmt.Errorf("lexicon has no usable terms")
	}
	return l, nil
}

// Len returns the number of distinct terms.
func (l *Lexicon) Len() int {
	return len(l.terms)
}

// Match returns the first configured term found in text. Tiers are tried in
// order: substring of the normalized text, boundary pattern over the
// normalized and collapsed views, then exact token of the collapsed view.
func (l *Lexicon) Match(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	normalized := Normalize(text)
	collapsed := Collapse(normalized)

	for _, t := range l.terms {
		if strings.Contains(normalized, t.normalized) {
			return t.original, true
		}
	}

	for _, t := range l.terms {
		if t.boundary.MatchString(normalized) || t.boundary.MatchString(collapsed) {
			return t.original, true
		}
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(collapsed) {
		tokens[tok] = struct{}{}
	}
	for _, t := range l.terms {
		if _, ok := tokens[t.normalized]; ok {
			return t.original, true
		}
	}

	return "", false
}
