package gibberish

import "strings"

var zeroWidth = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")

// Normalize strips zero-width characters, collapses whitespace runs to one
// space and trims. Punctuation is kept.
func Normalize(text string) string {
	return strings.Join(strings.Fields(zeroWidth.Replace(text)), " ")
}
