package rendering

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Entry is one transcript block prepared for display
type Entry struct {
	Header string
	Body   string
}

var markStyle = lipgloss.NewStyle().
	Background(lipgloss.Color("#FFD700")).
	Foreground(lipgloss.Color("#000000")).
	Bold(true)

// MarkdownRenderer renders transcripts with glamour. Skype's own inline
// formatting (*bold*, _italic_, ```code```) comes through as markdown.
type MarkdownRenderer struct {
	termRenderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer wrapping at width. style is a
// glamour standard style name such as "dark", "light" or "notty".
func NewMarkdownRenderer(width int, style string) (*MarkdownRenderer, error) {
	if style == "" {
		style = "dark"
	}
	if width <= 4 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return nil, err
	}
	return &MarkdownRenderer{termRenderer: r}, nil
}

// ToMarkdown lays out a transcript as a markdown document
func ToMarkdown(title string, entries []Entry) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString("# " + title + "\n\n")
	}
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		if e.Header != "" {
			sb.WriteString("**" + e.Header + "**\n\n")
		}
		// keep Skype's line breaks
		sb.WriteString(strings.ReplaceAll(e.Body, "\n", "  \n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderTranscript renders a transcript, falling back to plain text when
// glamour cannot render it
func (mr *MarkdownRenderer) RenderTranscript(title string, entries []Entry) string {
	rendered, err := mr.termRenderer.Render(ToMarkdown(title, entries))
	if err != nil {
		return PlainText(title, entries)
	}
	return rendered
}

// PlainText lays out a transcript the way transcript files do
func PlainText(title string, entries []Entry) string {
	blocks := make([]string, 0, len(entries)+1)
	if title != "" {
		blocks = append(blocks, title)
	}
	for _, e := range entries {
		if e.Header == "" {
			blocks = append(blocks, e.Body)
			continue
		}
		blocks = append(blocks, e.Header+" :\n"+e.Body)
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// HighlightSnippet replaces the <mark> tags of an FTS snippet with styling
func HighlightSnippet(snippet string) string {
	var sb strings.Builder
	rest := snippet
	for {
		before, after, found := strings.Cut(rest, "<mark>")
		sb.WriteString(before)
		if !found {
			break
		}
		marked, tail, _ := strings.Cut(after, "</mark>")
		sb.WriteString(markStyle.Render(marked))
		rest = tail
	}
	return sb.String()
}
