package validation

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripAll = bluemonday.StrictPolicy()

// maxDecodeRounds bounds nested entity encodings such as &amp;lt;.
const maxDecodeRounds = 8

// NormalizeText removes all markup and surrounding whitespace. Entities are
// decoded so stored text is plain, and markup hidden behind entities is
// stripped as well.
func NormalizeText(s string) string {
	for range maxDecodeRounds {
		next := html.UnescapeString(stripAll.Sanitize(s))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	// Still decoding after every round: keep the escaped form.
	return strings.TrimSpace(stripAll.Sanitize(s))
}
