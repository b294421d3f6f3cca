package transcript

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/neilberkman/skypetext/internal/skype"
)

// cardShape is one known JSON layout of a Notice or PopCard body. A shape
// matches only if the base object exists and every field is a string.
type cardShape struct {
	base   string
	fields []string
	render func(values []string) string
}

func (s cardShape) match(doc string) (string, bool) {
	base := gjson.Get(doc, s.base)
	if !base.Exists() {
		return "", false
	}

	values := make([]string, len(s.fields))
	for i, path := range s.fields {
		v := base.Get(path)
		if v.Type != gjson.String {
			return "", false
		}
		values[i] = v.String()
	}
	return s.render(values), true
}

// matchCard tries the shapes in order against content
func matchCard(content string, shapes []cardShape) (string, bool) {
	if !gjson.Valid(content) {
		return "", false
	}
	for _, shape := range shapes {
		if text, ok := shape.match(content); ok {
			return text, true
		}
	}
	return "", false
}

var noticeShapes = []cardShape{
	{
		base:   "0.attachments.0.content",
		fields: []string{"text", "buttons.0.actionUri", "buttons.0.title"},
		render: func(v []string) string {
			return "/ Notice / " + strings.Join(v, " ")
		},
	},
	{
		// title comes first in this layout
		base:   "0.attachments.0.content",
		fields: []string{"title", "mainActionUri", "text"},
		render: func(v []string) string {
			return "/ Notice / " + strings.Join(v, " ")
		},
	},
}

var popCardShapes = []cardShape{
	{
		base:   "0.content",
		fields: []string{"title", "buttons.0.actionUri", "media.url", "buttons.0.title"},
		render: func(v []string) string {
			return "/ PopCard / " + strings.Join(v, " ")
		},
	},
}

func noticeRule(_ *Formatter, m *skype.Enriched) (string, error) {
	if text, ok := matchCard(m.Content, noticeShapes); ok {
		return text, nil
	}
	return "/ Notice: " + m.Content + " /", nil
}

func popCardRule(_ *Formatter, m *skype.Enriched) (string, error) {
	if text, ok := matchCard(m.Content, popCardShapes); ok {
		return text, nil
	}
	return describeAttachment("PopCard", m.Content), nil
}
