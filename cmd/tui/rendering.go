package tui

import (
	"strings"

	"github.com/neilberkman/skypetext/internal/models"
	"github.com/neilberkman/skypetext/internal/rendering"
	"github.com/neilberkman/skypetext/internal/skype"
	"github.com/neilberkman/skypetext/internal/transcript"
)

// EntriesFromLines prepares freshly rendered transcript lines for display
func EntriesFromLines(lines []transcript.Line) []rendering.Entry {
	entries := make([]rendering.Entry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, rendering.Entry{
			Header: entryHeader(l.Name, l.Time, l.EditTime),
			Body:   l.Content,
		})
	}
	return entries
}

// EntriesFromMessages prepares indexed messages for display, showing times
// in the zone of clock
func EntriesFromMessages(messages []*models.Message, clock *skype.Clock) []rendering.Entry {
	if clock == nil {
		clock = skype.UTCClock()
	}
	entries := make([]rendering.Entry, 0, len(messages))
	for _, m := range messages {
		var at, edited string
		if !m.SentAt.IsZero() {
			at = clock.Format(m.SentAt)
		}
		if m.EditedAt != nil {
			edited = clock.Format(*m.EditedAt)
		}
		entries = append(entries, rendering.Entry{
			Header: entryHeader(m.Sender(), at, edited),
			Body:   m.Text,
		})
	}
	return entries
}

func entryHeader(name, at, edited string) string {
	header := strings.TrimSpace(name + " " + at)
	if header != "" && edited != "" {
		header += " - " + edited
	}
	return header
}

// renderTranscript lays out a transcript for the viewport. A non-nil md
// renders message bodies as markdown.
func renderTranscript(title, subtitle string, entries []rendering.Entry, width int, md *rendering.MarkdownRenderer) string {
	var sb strings.Builder

	sb.WriteString(HeaderStyle.Render(title))
	sb.WriteString("\n")
	if subtitle != "" {
		sb.WriteString(DateStyle.Render(subtitle))
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat("─", max(width, 1)))
	sb.WriteString("\n\n")

	if md != nil {
		sb.WriteString(md.RenderTranscript("", entries))
		return sb.String()
	}

	for i, e := range entries {
		if e.Header != "" {
			sb.WriteString(AuthorStyle.Render(e.Header))
			sb.WriteString("\n")
		}
		sb.WriteString(rendering.AutoLinkText(wordWrap(e.Body, width-4)))
		if i < len(entries)-1 {
			sb.WriteString("\n\n")
		}
	}

	return sb.String()
}

// wordWrap wraps text to width runes, keeping existing line breaks
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if len([]rune(line)) <= width {
			result = append(result, line)
			continue
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			result = append(result, line)
			continue
		}

		current := words[0]
		for _, word := range words[1:] {
			if len([]rune(current))+1+len([]rune(word)) <= width {
				current += " " + word
			} else {
				result = append(result, current)
				current = word
			}
		}
		result = append(result, current)
	}

	return strings.Join(result, "\n")
}
