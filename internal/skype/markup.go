package skype

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRegex   = regexp.MustCompile(`(?s)<.*?>`)
	spaceRegex = regexp.MustCompile(` +`)
)

// StripTags replaces every markup tag with a space, collapses runs of
// spaces and trims surrounding whitespace. Tags become spaces rather than nothing so
// that words separated only by a tag stay apart.
func StripTags(text string) string {
	text = tagRegex.ReplaceAllString(text, " ")
	text = spaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// UnescapeEntities decodes HTML character entities
func UnescapeEntities(text string) string {
	return html.UnescapeString(text)
}

// CleanMarkup strips tags and then decodes entities
func CleanMarkup(text string) string {
	return UnescapeEntities(StripTags(text))
}
