package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain lowercase", "shit", "shit"},
		{"uppercase folded", "ShIt", "shit"},
		{"leet digits", "sh1t", "shit"},
		{"leet symbols", "$h1t", "shit"},
		{"at and bang", "b@d!", "badi"},
		{"currency lookalikes", "h€ll", "hell"},
		{"fullwidth folded by nfkd", "ｓｈｉｔ", "shit"},
		{"math bold folded by nfkd", "𝐬𝐡𝐢𝐭", "shit"},
		{"separators stripped", "s.h.i.t", "shit"},
		{"zero width stripped", "s​h‌it", "shit"},
		{"run of three collapsed", "sooo", "so"},
		{"long run collapsed", "soooooooo", "so"},
		{"run of two kept", "soo", "soo"},
		{"mixed run and leet", "sh111t", "shit"},
		{"underscore kept", "bad_word", "bad_word"},
		{"punctuation only", "!?...", "i"}, // bang folds to i before stripping
		{"symbols only", "---...", ""},
		{"empty", "", ""},
		{"diacritics dropped", "shït", "shit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{"shit", "sh1t", "$h1t!", "ｓｈｉｔ", "𝐬𝐡𝐢𝐭", "sooo", "b@d", "", "h2o", "вадслово", "s.h-i_t"}
	for _, in := range inputs {
		once := Canonicalize(in)
		assert.Equal(t, once, Canonicalize(once), "canonicalize not idempotent for %q", in)
	}
}

func TestCollapseRuns(t *testing.T) {
	assert.Equal(t, "a", collapseRuns("aaa"))
	assert.Equal(t, "aa", collapseRuns("aa"))
	assert.Equal(t, "aba", collapseRuns("abbbba"))
	assert.Equal(t, "", collapseRuns(""))
	assert.Equal(t, "abc", collapseRuns("abc"))
}
