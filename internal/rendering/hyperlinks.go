package rendering

import (
	"fmt"

	"mvdan.cc/xurls/v2"
)

// Transcripts are full of file names like report.pdf, which the relaxed
// matcher would turn into links. Skype always writes URLs with a scheme.
var urlMatcher = xurls.Strict()

// MakeHyperlink creates a terminal hyperlink using OSC 8 sequences
// If hyperlinks aren't supported, returns just the display text
func MakeHyperlink(displayText, targetURL string) string {
	if targetURL == "" || !IsHyperlinksSupported() {
		return displayText
	}

	// OSC 8 format: \x1b]8;;URL\x1b\\DISPLAY_TEXT\x1b]8;;\x1b\\
	return fmt.Sprintf("\x1b]8;;%s\x1b\\%s\x1b]8;;\x1b\\", targetURL, displayText)
}

// AutoLinkText turns every URL in text into a hyperlink
func AutoLinkText(text string) string {
	if !IsHyperlinksSupported() {
		return text
	}
	return urlMatcher.ReplaceAllStringFunc(text, func(match string) string {
		return MakeHyperlink(match, match)
	})
}

// ExtractURLs returns the URLs in text in order of appearance
func ExtractURLs(text string) []string {
	return urlMatcher.FindAllString(text, -1)
}
