package transcript

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neilberkman/skypetext/internal/skype"
)

// errSuppressed is returned by rules whose message should not appear in the
// transcript at all
var errSuppressed = errors.New("message suppressed")

// errorPlaceholder prefixes the raw dump of a message that could not be formatted
const errorPlaceholder = "/ Error processing a message /"

// State is the conversation-level memory of the formatter
type State struct {
	// PreviousContent is the raw content of the last message that reached
	// the duplicate check. HasPrevious is false until one has.
	PreviousContent string
	HasPrevious     bool

	JoiningEnabled   bool
	HistoryDisclosed bool
}

// NewState returns the state at the start of a conversation
func NewState() State {
	return State{
		JoiningEnabled:   true,
		HistoryDisclosed: true,
	}
}

// Line is one rendered message
type Line struct {
	Name     string
	Time     string
	EditTime string
	Content  string

	// Failed marks error placeholders
	Failed  bool
	Message *skype.Enriched
}

// String composes the transcript block for the line
func (l Line) String() string {
	var header []string
	if l.Name != "" {
		header = append(header, l.Name)
	}
	if l.Time != "" {
		header = append(header, l.Time)
	}
	if len(header) == 0 {
		return l.Content
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(header, " "))
	if l.EditTime != "" {
		sb.WriteString(" - ")
		sb.WriteString(l.EditTime)
	}
	sb.WriteString(" :\n")
	sb.WriteString(l.Content)
	return sb.String()
}

// Formatter turns enriched messages into transcript lines. It owns the
// conversation state, so one Formatter must not be shared between
// conversations that are formatted at the same time.
type Formatter struct {
	clock  *skype.Clock
	logger *slog.Logger
	state  State
}

// NewFormatter creates a formatter rendering times with clock
func NewFormatter(clock *skype.Clock, logger *slog.Logger) *Formatter {
	if clock == nil {
		clock = skype.UTCClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{
		clock:  clock,
		logger: logger,
		state:  NewState(),
	}
}

// Reset clears the conversation state. Call once before each conversation.
func (f *Formatter) Reset() {
	f.state = NewState()
}

// State returns a copy of the current conversation state
func (f *Formatter) State() State {
	return f.state
}

// Format renders a message as a transcript block, or "" when the message is
// deleted, a server-side duplicate or a redundant system notice.
func (f *Formatter) Format(m *skype.Enriched) string {
	line, ok := f.Render(m)
	if !ok {
		return ""
	}
	return line.String()
}

// Render is Format returning the parts of the block. ok is false for
// suppressed messages. Failures never escape: they become error placeholder
// lines.
func (f *Formatter) Render(m *skype.Enriched) (line Line, ok bool) {
	line.Message = m

	defer func() {
		if r := recover(); r != nil {
			line, ok = f.failed(line, fmt.Errorf("panic: %v", r)), true
		}
	}()

	content, err := f.render(m, &line)
	switch {
	case errors.Is(err, errSuppressed):
		return Line{}, false
	case err != nil:
		return f.failed(line, err), true
	}

	line.Content = content
	return line, true
}

func (f *Formatter) render(m *skype.Enriched, line *Line) (string, error) {
	username, err := skype.StripUsernamePrefix(m.From)
	if err != nil {
		return "", fmt.Errorf("from: %w", err)
	}
	if m.DisplayName != nil && *m.DisplayName != "" {
		line.Name = skype.CleanMarkup(*m.DisplayName) + " (" + username + ")"
	} else {
		line.Name = "(" + username + ")"
	}

	if m.Err != nil {
		return "", m.Err
	}
	line.Time = f.clock.Format(m.Time)
	if m.EditTime != nil {
		line.EditTime = f.clock.Format(*m.EditTime)
	}

	if m.DeleteTime != nil {
		return "", errSuppressed
	}

	content := m.Content
	if m.ServerGenerated && content == "" {
		return "", errSuppressed
	}
	// the server repeats edited messages
	if m.ServerGenerated && f.state.HasPrevious && f.state.PreviousContent == content {
		return "", errSuppressed
	}
	f.state.PreviousContent = content
	f.state.HasPrevious = true

	if m.MessageType == "" {
		return "", errors.New("missing messagetype")
	}
	r, known := rules[m.MessageType]
	if !known {
		r = unknownRule
	}
	return r(f, m)
}

func (f *Formatter) failed(line Line, err error) Line {
	dump := ""
	if line.Message != nil && line.Message.Message != nil {
		dump = line.Message.Dump()
	}
	f.logger.Warn("Error processing a message", "error", err, "message", dump)

	line.Content = errorPlaceholder + dump
	line.Failed = true
	return line
}
