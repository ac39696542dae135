// Package text implements post length counting with X URL-shortening rules.
package text

import "regexp"

// shortURLLength is the fixed length X assigns to any URL via t.co wrapping.
const shortURLLength = 23

var urlRe = regexp.MustCompile(`(?i)https?://\S+`)

// Count returns the effective post length. Every URL counts as
// shortURLLength characters regardless of its actual length; all other
// text counts character by character.
func Count(text string) int {
	length := 0
	cursor := 0

	for _, span := range urlRe.FindAllStringIndex(text, -1) {
		length += len([]rune(text[cursor:span[0]]))
		length += shortURLLength
		cursor = span[1]
	}

	length += len([]rune(text[cursor:]))
	return length
}
