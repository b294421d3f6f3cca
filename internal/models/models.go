package models

import (
	"time"
)

// Conversation is an indexed Skype conversation
type Conversation struct {
	ID             int64     `db:"id"`
	SkypeID        string    `db:"skype_id"`
	Username       string    `db:"username"`
	DisplayName    string    `db:"display_name"`
	FirstMessageAt time.Time `db:"first_message_at"` // zero when no message has a time
	LastMessageAt  time.Time `db:"last_message_at"`
	MessageCount   int       `db:"message_count"`
	SourcePath     string    `db:"source_path"`
	ImportedAt     time.Time `db:"imported_at"`
}

// Title is the display name of the conversation, or its username
func (c *Conversation) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Username
}

// Message is one rendered transcript line
type Message struct {
	ID             int64      `db:"id"`
	ConversationID int64      `db:"conversation_id"`
	SkypeMessageID string     `db:"skype_message_id"`
	Author         string     `db:"author"`      // username without transport prefix
	AuthorName     string     `db:"author_name"` // display name, may be empty
	MessageType    string     `db:"message_type"`
	Text           string     `db:"text"`
	SentAt         time.Time  `db:"sent_at"`
	EditedAt       *time.Time `db:"edited_at"`
	Sequence       int        `db:"sequence"`
	Failed         bool       `db:"failed"`
}

// Sender is the author as shown in transcripts: "Name (username)" or
// "(username)"
func (m *Message) Sender() string {
	if m.AuthorName != "" {
		return m.AuthorName + " (" + m.Author + ")"
	}
	return "(" + m.Author + ")"
}

// SearchResult represents a search hit
type SearchResult struct {
	ConversationID int64
	Username       string
	DisplayName    string
	MessageID      int64
	Author         string
	AuthorName     string
	MessageType    string
	Text           string
	Snippet        string // Highlighted snippet
	SentAt         time.Time
	Rank           float64 // Relevance score
}

// IndexStats tracks indexing statistics
type IndexStats struct {
	ConversationsIndexed int
	MessagesIndexed      int
	FailedMessages       int
	Duration             time.Duration
	Errors               []error
}

// Stats summarises the whole index
type Stats struct {
	Conversations  int
	Messages       int
	FailedMessages int
	Authors        int
	ByType         map[string]int
	TopAuthors     []AuthorCount
	Oldest         time.Time
	Newest         time.Time
	Imports        int
	LastImport     time.Time
}

// AuthorCount is a message count for one author
type AuthorCount struct {
	Author   string
	Messages int
}
