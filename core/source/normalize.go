package source

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	strongsTag = regexp.MustCompile(`(?i)<S>\d+</S>`)
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
)

// Normalize cleans provider text: Strong's number tags are removed along with
// their content, other HTML tags are stripped, the text is put in Unicode NFC
// and runs of whitespace collapse to one space.
func Normalize(text string) string {
	text = strongsTag.ReplaceAllString(text, "")
	text = htmlTag.ReplaceAllString(text, "")
	text = norm.NFC.String(text)
	return strings.Join(strings.Fields(text), " ")
}
