package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/neilberkman/skypetext/internal/skype"
)

// ErrConversationNotFound is returned when no conversation has the requested id
var ErrConversationNotFound = errors.New("conversation not found")

// SelectConversation finds the conversation whose id, without its transport
// prefix, equals username. Exports hold one conversation per identity, so the
// first match wins.
func SelectConversation(export *skype.Export, username string) (*skype.Conversation, error) {
	for i := range export.Conversations {
		id, err := skype.StripUsernamePrefix(export.Conversations[i].ID)
		if err != nil {
			continue
		}
		if id == username {
			return &export.Conversations[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no conversations with username '%s' found", ErrConversationNotFound, username)
}

// Usernames returns the sorted, de-duplicated conversation ids of an export
// without transport prefixes. Ids without a prefix are skipped. Sorting keeps
// the numbering of colliding output files stable between runs.
func Usernames(export *skype.Export) []string {
	seen := make(map[string]bool)
	var names []string
	for _, conv := range export.Conversations {
		name, err := skype.StripUsernamePrefix(conv.ID)
		if err != nil || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sort orders messages by arrival time, keeping the input order of equal times
func Sort(messages []*skype.Enriched) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Time.Before(messages[j].Time)
	})
}

// Assembler builds transcripts for conversations
type Assembler struct {
	parser    *skype.TimeParser
	formatter *Formatter
	logger    *slog.Logger
}

// NewAssembler creates an assembler. The parser and formatter are owned by
// the assembler from here on.
func NewAssembler(parser *skype.TimeParser, formatter *Formatter, logger *slog.Logger) *Assembler {
	if parser == nil {
		parser = skype.NewTimeParser()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if formatter == nil {
		formatter = NewFormatter(nil, logger)
	}
	return &Assembler{
		parser:    parser,
		formatter: formatter,
		logger:    logger,
	}
}

// Enrich derives the time fields of every message and sorts the result
func (a *Assembler) Enrich(conv *skype.Conversation) []*skype.Enriched {
	start := time.Now()
	messages := make([]*skype.Enriched, len(conv.MessageList))
	for i := range conv.MessageList {
		messages[i] = skype.Enrich(a.parser, &conv.MessageList[i])
	}
	a.logger.Debug("Parsed message times", "id", conv.ID, "messages", len(messages), "elapsed", time.Since(start))

	// Skype exports list messages newest first
	Sort(messages)
	return messages
}

// Render formats a conversation and returns the lines that survive
// suppression, in chronological order
func (a *Assembler) Render(ctx context.Context, conv *skype.Conversation) ([]Line, error) {
	messages := a.Enrich(conv)

	start := time.Now()
	a.formatter.Reset()
	lines := make([]Line, 0, len(messages))
	for _, m := range messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if line, ok := a.formatter.Render(m); ok {
			lines = append(lines, line)
		}
	}
	a.logger.DebugContext(ctx, "Formatted messages", "id", conv.ID, "lines", len(lines), "elapsed", time.Since(start))

	return lines, nil
}

// Assemble returns the transcript text of a conversation: formatted messages
// separated by blank lines, with a trailing newline
func (a *Assembler) Assemble(ctx context.Context, conv *skype.Conversation) (string, error) {
	lines, err := a.Render(ctx, conv)
	if err != nil {
		return "", err
	}

	blocks := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := line.String(); text != "" {
			blocks = append(blocks, text)
		}
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}
