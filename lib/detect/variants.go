package detect

import (
	"math/rand"
	"strings"
)

// homoglyphs lists visually confusable unicode lookalikes per latin letter,
// mixing cyrillic/greek twins, mathematical alphanumerics and enclosed forms.
var homoglyphs = map[rune][]string{
	'a': {"а", "𝐚", "𝖆", "ᵃ", "ⓐ"},
	'b': {"𝐛", "𝖇", "ᵇ"},
	'c': {"с", "𝐜", "𝖈", "ᶜ"},
	'd': {"𝐝", "𝖉", "ᵈ"},
	'e': {"е", "𝐞", "𝖊", "ᵉ", "ⓔ"},
	'f': {"𝐟", "𝖋", "ⓕ"},
	'g': {"𝐠", "𝖌"},
	'h': {"𝐡", "𝖍"},
	'i': {"і", "𝐢", "𝖎", "ᶦ", "ⓘ"},
	'j': {"𝐣", "𝖏"},
	'k': {"𝐤", "𝖐"},
	'l': {"𝐥", "𝖑", "ⓛ"},
	'm': {"𝐦", "𝖒"},
	'n': {"𝐧", "𝖓", "ⓝ"},
	'o': {"о", "𝐨", "𝖔", "ᵒ", "ⓞ"},
	'p': {"р", "𝐩", "𝖕"},
	'q': {"𝐪", "𝖖"},
	'r': {"𝐫", "𝖗", "ⓡ"},
	's': {"ѕ", "𝐬", "𝖘", "ⓢ"},
	't': {"𝐭", "𝖙", "ⓣ"},
	'u': {"υ", "𝐮", "𝖚", "ᵘ", "ⓤ"},
	'v': {"𝐯", "𝖛", "ⓥ"},
	'w': {"𝐰", "𝖜", "ⓦ"},
	'x': {"х", "𝐱", "𝖝", "ⓧ"},
	'y': {"у", "𝐲", "𝖞", "ⓨ"},
	'z': {"𝐳", "𝖟", "ⓩ"},
}

var zeroWidthChars = []string{"\u200b", "\u200c", "\u200d", "\ufeff"}

var separatorChars = []string{".", "-", "_", "*", "/", "\\"}

// leetInvert is the static letter-to-digit substitution used as the last
// transformation, the reverse direction of the canonicalizer's leet folding.
var leetInvert = map[rune]rune{'a': '4', 'e': '3', 'g': '6', 'i': '1', 'o': '0', 's': '5', 't': '7'}

// variantGenerator produces bounded sets of adversarial spellings of a word.
// The seed makes generation reproducible, each call starts its own rand source.
type variantGenerator struct {
	seed int64
}

// generate returns an order-preserving deduplicated sequence of adversarial
// variants of the word, canonical form first. Every transformation output is
// re-canonicalized before insertion, so the set never contains characters the
// embedding step can't usefully compare. Returns an empty sequence when the
// canonical form of the input is empty.
func (g *variantGenerator) generate(word string, maxVariants int) []string {
	canonical := Canonicalize(word)
	if canonical == "" {
		return []string{}
	}

	rnd := rand.New(rand.NewSource(g.seed)) //nolint:gosec // reproducibility beats crypto strength here

	seen := map[string]struct{}{canonical: {}}
	out := []string{canonical}

	transformations := []func(*rand.Rand, string) string{
		applyHomoglyphs,
		applyZeroWidth,
		applySeparators,
		applyFullWidth,
		applyLeetInversion,
	}

	for _, transform := range transformations {
		if len(out) >= maxVariants {
			break
		}
		v := Canonicalize(transform(rnd, canonical))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// applyHomoglyphs replaces each rune with a random visual lookalike with 50%
// probability, runes without a candidate list pass through unchanged.
func applyHomoglyphs(rnd *rand.Rand, word string) string {
	var b strings.Builder
	for _, r := range word {
		candidates, ok := homoglyphs[r]
		if ok && rnd.Float64() < 0.5 {
			b.WriteString(candidates[rnd.Intn(len(candidates))])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// applyZeroWidth inserts an invisible character after each rune with 40% probability.
func applyZeroWidth(rnd *rand.Rand, word string) string {
	var b strings.Builder
	for _, r := range word {
		b.WriteRune(r)
		if rnd.Float64() < 0.4 {
			b.WriteString(zeroWidthChars[rnd.Intn(len(zeroWidthChars))])
		}
	}
	return b.String()
}

// applySeparators joins every rune of the word with one randomly chosen separator glyph.
func applySeparators(rnd *rand.Rand, word string) string {
	sep := separatorChars[rnd.Intn(len(separatorChars))]
	runes := []rune(word)
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	return strings.Join(parts, sep)
}

// applyFullWidth shifts printable ASCII into the unicode full-width block.
func applyFullWidth(_ *rand.Rand, word string) string {
	var b strings.Builder
	for _, r := range word {
		if r >= '!' && r <= '~' {
			b.WriteRune(r + 0xFEE0)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// applyLeetInversion applies the fixed letter-to-digit table.
func applyLeetInversion(_ *rand.Rand, word string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := leetInvert[r]; ok {
			return d
		}
		return r
	}, word)
}
