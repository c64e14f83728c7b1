package detect

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/forPelevin/gomoji"
)

// tokenRe matches contiguous runs of word characters plus the punctuation
// commonly used for in-word obfuscation, so "h3llo!" and "$h1t" each stay one token.
var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_.!$@#%&*\-]+`)

// splitText extracts candidate tokens from raw text: emojis and invisible
// characters are removed first, then every matched raw token is canonicalized.
// Empty canonical forms are discarded, duplicates are collapsed keeping
// first-seen order.
func splitText(text string) []string {
	cleaned := cleanText(gomoji.RemoveEmojis(text))

	seen := map[string]struct{}{}
	tokens := []string{}
	for _, raw := range tokenRe.FindAllString(cleaned, -1) {
		c := Canonicalize(raw)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		tokens = append(tokens, c)
	}
	return tokens
}

// cleanText removes control and format characters, including the zero-width
// range, so invisible insertions can't split a token in two.
func cleanText(text string) string {
	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		if unicode.Is(unicode.Cc, r) && r != '\n' && r != '\t' && r != '\r' {
			continue
		}
		if unicode.Is(unicode.Cf, r) {
			continue
		}
		if (r >= 0x200B && r <= 0x200F) || (r >= 0x2060 && r <= 0x206F) {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
