package detect

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// leetFold maps common digit/symbol substitutions back to the letters they imitate.
// Applied after NFKD decomposition, so stylized unicode digits fold too.
var leetFold = map[rune]rune{
	'0': 'o', '1': 'i', '3': 'e', '4': 'a', '5': 's', '6': 'g', '7': 't', '8': 'b', '9': 'g',
	'$': 's', '@': 'a', '!': 'i', '€': 'e', '£': 'l', '¥': 'y', '§': 's',
}

// Canonicalize reduces a raw token to its comparable base form: compatibility
// decomposition (NFKD), leet folding with lowercasing, removal of everything
// that is not a word character, and collapsing of long repeat runs.
// The result may be empty for inputs made entirely of punctuation, callers
// must exclude empty canonical forms.
func Canonicalize(word string) string {
	decomposed := norm.NFKD.String(word)

	var folded strings.Builder
	folded.Grow(len(decomposed))
	for _, r := range decomposed {
		if repl, ok := leetFold[r]; ok {
			folded.WriteRune(repl)
			continue
		}
		folded.WriteRune(unicode.ToLower(r))
	}

	// strip non-word characters. runs after leet folding, so symbols already
	// consumed by the table are kept as letters while residual punctuation,
	// combining marks and invisible characters are dropped.
	var stripped strings.Builder
	stripped.Grow(folded.Len())
	for _, r := range folded.String() {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			stripped.WriteRune(r)
		}
	}

	return collapseRuns(stripped.String())
}

// collapseRuns shrinks any run of 3 or more identical runes down to a single
// rune. Doubled characters are legitimate spelling and stay as is.
func collapseRuns(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= 3 {
			out = append(out, runes[i])
		} else {
			out = append(out, runes[i:j]...)
		}
		i = j
	}
	return string(out)
}
