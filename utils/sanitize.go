package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user-supplied labels such as topics and goals.
// Entity-encoded markup is decoded first so it is stripped like literal tags.
func SanitizeText(input string) string {
	// every successful unescape shortens the string, so this terminates
	for {
		decoded := html.UnescapeString(input)
		if decoded == input {
			break
		}
		input = decoded
	}
	return html.UnescapeString(strict.Sanitize(input))
}
