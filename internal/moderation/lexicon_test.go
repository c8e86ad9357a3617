package moderation

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	fixtures := []struct {
		in   string
		want string
	}{
		{in: "Café", want: "cafe"},
		{in: "O‘ZBEK", want: "o zbek"},
		{in: "o`g'ri", want: "o g ri"},
		{in: "ʻAli ʼ", want: " ali  "},
		{in: "a—b–c", want: "a-b-c"},
		{in: "Ñandú", want: "nandu"},
		{in: "ÇIĞ", want: "cig"},
	}

	for _, fix := range fixtures {
		assert.Equal(t, fix.want, Normalize(fix.in), fix.in)
	}
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "foo bar 42", Collapse("  foo!!bar---42 "))
	assert.Equal(t, "салом дунё", Collapse("салом, дунё!"))
}

func TestLexiconMatch(t *testing.T) {
	lexicon, err := NewLexicon([]string{"jinni", "O'g'ri", "foo bar"})
	require.NoError(t, err)

	fixtures := []struct {
		name string
		text string
		want string
	}{
		{name: "plain", text: "sen jinni", want: "jinni"},
		{name: "case and marks", text: "JÍNNÍ!!!", want: "jinni"},
		{name: "attached suffix", text: "jinnilar", want: "jinni"},
		{name: "apostrophe variant", text: "bu o‘g‘ri odam", want: "O'g'ri"},
		{name: "modifier letter", text: "oʻgʻri", want: "O'g'ri"},
		{name: "separated phrase", text: "foo...bar", want: "foo bar"},
		{name: "clean", text: "salom hammaga", want: ""},
		{name: "empty", text: "", want: ""},
		{name: "blank", text: "   ", want: ""},
	}

	for _, fix := range fixtures {
		t.Run(fix.name, func(t *testing.T) {
			got, ok := lexicon.Match(fix.text)
			assert.Equal(t, fix.want != "", ok)
			assert.Equal(t, fix.want, got)
		})
	}
}

func TestLexiconFirstTermWins(t *testing.T) {
	lexicon, err := NewLexicon([]string{"beta", "alpha"})
	require.NoError(t, err)

	got, ok := lexicon.Match("alpha and beta")
	require.True(t, ok)
	assert.Equal(t, "beta", got)
}

func TestNewLexiconDeduplicates(t *testing.T) {
	lexicon, err := NewLexicon([]string{"Jinni", "jínni", "  ", "ahmoq"})
	require.NoError(t, err)
	assert.Equal(t, 2, lexicon.Len())

	_, err = NewLexicon([]string{"", " "})
	assert.Error(t, err)
}

var apostrophes = []string{"'", "’", "‘", "ʻ", "ʼ", "`"}

// disguise rewrites term with random case, diacritics and apostrophe forms.
func disguise(r *rand.Rand, term string) string {
	var b strings.Builder
	for _, ch := range term {
		s := string(ch)
		if ch == '\'' {
			s = apostrophes[r.Intn(len(apostrophes))]
		}
		if r.Intn(2) == 0 {
			s = strings.ToUpper(s)
		}
		b.WriteString(s)
		if strings.ContainsRune("aeiou", ch) && r.Intn(2) == 0 {
			b.WriteRune('\u0301')
		}
	}
	return b.String()
}

func TestLexiconMatchesDisguisedTerms(t *testing.T) {
	terms := []string{"jinni", "o'g'ri", "ahmoq", "tentak"}
	lexicon, err := NewLexicon(terms)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		term := terms[r.Intn(len(terms))]
		text := "xabar " + disguise(r, term) + " oxiri"

		got, ok := lexicon.Match(text)
		require.True(t, ok, "no match for %q", text)
		assert.Equal(t, term, got)
	}
}
