package archive

import (
	"sort"
	"time"

	"github.com/neilberkman/skypetext/internal/skype"
)

// ConversationSummary describes one conversation of an export
type ConversationSummary struct {
	Username    string
	ID          string
	DisplayName string
	Messages    int
	First       time.Time
	Last        time.Time
}

// Summary describes a whole export
type Summary struct {
	UserID        string
	ExportDate    string
	Conversations []ConversationSummary
	Messages      int
	First         time.Time
	Last          time.Time
}

// Summarize counts messages and finds the time span of every conversation.
// Conversations with malformed ids are left out, like they are from the
// transcripts. The result is ordered by username.
func Summarize(export *skype.Export) *Summary {
	parser := skype.NewTimeParser()
	s := &Summary{
		UserID:     export.UserID,
		ExportDate: export.ExportDate,
	}

	for _, conv := range export.Conversations {
		username, err := skype.StripUsernamePrefix(conv.ID)
		if err != nil {
			continue
		}

		cs := ConversationSummary{
			Username: username,
			ID:       conv.ID,
			Messages: len(conv.MessageList),
		}
		if conv.DisplayName != nil {
			cs.DisplayName = skype.CleanMarkup(*conv.DisplayName)
		}
		for _, m := range conv.MessageList {
			t, err := parser.Parse(m.OriginalArrivalTime)
			if err != nil {
				continue
			}
			cs.First = earliest(cs.First, t)
			cs.Last = latest(cs.Last, t)
		}

		s.Messages += cs.Messages
		s.First = earliest(s.First, cs.First)
		s.Last = latest(s.Last, cs.Last)
		s.Conversations = append(s.Conversations, cs)
	}

	sort.SliceStable(s.Conversations, func(i, j int) bool {
		return s.Conversations[i].Username < s.Conversations[j].Username
	})
	return s
}

func earliest(a, b time.Time) time.Time {
	if a.IsZero() || (!b.IsZero() && b.Before(a)) {
		return b
	}
	return a
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
