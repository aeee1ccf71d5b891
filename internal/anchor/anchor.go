package anchor

import "strings"

// stripped lists every character removed from heading text before the
// remaining words are joined. Full-width variants are included because the
// tutorials mix CJK and ASCII punctuation.
var stripped = strings.NewReplacer(
	".", "",
	"｜", "",
	",", "",
	"/", "",
	"'", "",
	"\"", "",
	"?", "",
	"‘", "",
	"’", "",
	"“", "",
	"”", "",
	"？", "",
	"，", "",
	"．", "",
	"／", "",
)

// Derive maps heading text to a URL-fragment identifier.
//
// Punctuation from the fixed set is removed, then whitespace-separated words
// are joined with hyphens. Case is preserved. Two headings with the same text
// derive the same id; callers resolve collisions last-wins.
func Derive(text string) string {
	return strings.Join(strings.Fields(stripped.Replace(text)), "-")
}

// Href returns the in-page link target for an id.
func Href(id string) string {
	return "#" + id
}
