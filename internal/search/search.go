package search

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/models"
)

// ErrConversationNotFound is returned when the index has no such conversation
var ErrConversationNotFound = errors.New("conversation not found")

// Engine handles search operations
type Engine struct {
	db *db.DB
}

// NewEngine creates a new search engine
func NewEngine(database *db.DB) *Engine {
	return &Engine{db: database}
}

// SearchOptions contains search parameters
type SearchOptions struct {
	Query string
	// Username restricts results to one conversation
	Username string
	// Author restricts results to messages sent by one user
	Author    string
	StartDate *time.Time
	EndDate   *time.Time
	// IncludeFailed also returns error placeholders
	IncludeFailed bool
	Limit         int
	Offset        int
	SnippetTokens int
	SortBy        string // "relevance" or "date"
	SortOrder     string // "asc" or "desc"
}

// Search performs a full-text search
func (e *Engine) Search(opts SearchOptions) ([]*models.SearchResult, error) {
	query, args := e.buildSearchQuery(opts)

	rows, err := e.db.Query(query, args...)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "syntax error") {
			return nil, fmt.Errorf("invalid search syntax: %s", opts.Query)
		}
		if strings.Contains(errStr, "unknown special query") {
			return nil, fmt.Errorf("invalid wildcard usage in: %s (hint: wildcards must not be quoted)", opts.Query)
		}
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer closeRows(rows)

	var results []*models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		var sentAt sql.NullTime
		err := rows.Scan(
			&r.ConversationID,
			&r.Username,
			&r.DisplayName,
			&r.MessageID,
			&r.Author,
			&r.AuthorName,
			&r.MessageType,
			&r.Text,
			&r.Snippet,
			&sentAt,
			&r.Rank,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.SentAt = sentAt.Time
		results = append(results, &r)
	}

	return results, rows.Err()
}

func (e *Engine) buildSearchQuery(opts SearchOptions) (string, []interface{}) {
	snippetTokens := opts.SnippetTokens
	if snippetTokens <= 0 || snippetTokens > 64 {
		snippetTokens = 32
	}

	query := fmt.Sprintf(`
		SELECT
			c.id,
			c.username,
			c.display_name,
			m.id,
			m.author,
			m.author_name,
			m.message_type,
			m.text,
			snippet(messages_fts, 0, '<mark>', '</mark>', '...', %d) as snippet,
			m.sent_at,
			rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.id
		JOIN conversations c ON m.conversation_id = c.id
		WHERE messages_fts MATCH ?
	`, snippetTokens)
	args := []interface{}{processFTSQuery(opts.Query)}

	var conditions []string
	if opts.Username != "" {
		conditions = append(conditions, "c.username = ?")
		args = append(args, opts.Username)
	}
	if opts.Author != "" {
		conditions = append(conditions, "m.author = ?")
		args = append(args, opts.Author)
	}
	if opts.StartDate != nil {
		conditions = append(conditions, "m.sent_at >= ?")
		args = append(args, opts.StartDate.UTC())
	}
	if opts.EndDate != nil {
		conditions = append(conditions, "m.sent_at <= ?")
		args = append(args, opts.EndDate.UTC())
	}
	if !opts.IncludeFailed {
		conditions = append(conditions, "m.failed = 0")
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	// FTS5 rank is negative, best matches first in ascending order
	switch opts.SortBy {
	case "date":
		query += " ORDER BY m.sent_at"
		if opts.SortOrder == "asc" {
			query += " ASC"
		} else {
			query += " DESC"
		}
	default:
		query += " ORDER BY rank"
		if opts.SortOrder == "desc" {
			query += " DESC"
		}
	}

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
		if opts.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", opts.Offset)
		}
	}

	return query, args
}

// processFTSQuery converts user query to FTS5 syntax
func processFTSQuery(userQuery string) string {
	query := strings.TrimSpace(userQuery)
	if query == "" {
		return `""`
	}

	// If query already contains FTS5 phrases or prefixes, validate and return
	if strings.ContainsAny(query, `"*`) {
		if strings.Count(query, `"`)%2 != 0 {
			return escapeFTSQuery(query)
		}
		return query
	}

	words := strings.Fields(query)
	explicit := false
	for i, w := range words {
		switch strings.ToUpper(w) {
		case "AND", "OR", "NOT":
			explicit = true
			// only all-lowercase operators are promoted
			if w == strings.ToLower(w) {
				words[i] = strings.ToUpper(w)
			}
		default:
			// Skype ids and URLs contain characters FTS5 treats as syntax
			if strings.ContainsAny(w, ":/@.-+^(){}") {
				words[i] = escapeFTSQuery(w)
			}
		}
	}

	if explicit {
		return strings.Join(words, " ")
	}
	// multi-word queries match messages containing every word
	return strings.Join(words, " AND ")
}

// escapeFTSQuery wraps the query in quotes to treat it as a phrase
func escapeFTSQuery(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

// GetConversation retrieves an indexed conversation and its transcript lines
func (e *Engine) GetConversation(username string) (*models.Conversation, []*models.Message, error) {
	conv, err := scanConversation(e.db.QueryRow(conversationColumns+`
		FROM conversations
		WHERE username = ?
		ORDER BY id
		LIMIT 1
	`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrConversationNotFound, username)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := e.db.Query(`
		SELECT id, conversation_id, skype_message_id, author, author_name, message_type, text, sent_at, edited_at, sequence, failed
		FROM messages
		WHERE conversation_id = ?
		ORDER BY sequence ASC
	`, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	defer closeRows(rows)

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		var sentAt, editedAt sql.NullTime
		err := rows.Scan(&m.ID, &m.ConversationID, &m.SkypeMessageID, &m.Author, &m.AuthorName, &m.MessageType,
			&m.Text, &sentAt, &editedAt, &m.Sequence, &m.Failed)
		if err != nil {
			return nil, nil, err
		}
		m.SentAt = sentAt.Time
		if editedAt.Valid {
			t := editedAt.Time
			m.EditedAt = &t
		}
		messages = append(messages, &m)
	}

	return conv, messages, rows.Err()
}

const conversationColumns = `
	SELECT id, skype_id, username, display_name, first_message_at, last_message_at, message_count, source_path, imported_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var c models.Conversation
	var first, last sql.NullTime
	err := row.Scan(&c.ID, &c.SkypeID, &c.Username, &c.DisplayName, &first, &last, &c.MessageCount, &c.SourcePath, &c.ImportedAt)
	if err != nil {
		return nil, err
	}
	c.FirstMessageAt = first.Time
	c.LastMessageAt = last.Time
	return &c, nil
}

// GetAllConversations retrieves conversations, most recently active first
func (e *Engine) GetAllConversations(limit, offset int) ([]*models.Conversation, error) {
	rows, err := e.db.Query(conversationColumns+`
		FROM conversations
		ORDER BY last_message_at DESC, username ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer closeRows(rows)

	var conversations []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return conversations, nil
}

// GetStats returns index statistics
func (e *Engine) GetStats() (*models.Stats, error) {
	stats := &models.Stats{ByType: make(map[string]int)}

	err := e.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&stats.Conversations)
	if err != nil {
		return nil, err
	}
	err = e.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(failed), 0), COUNT(DISTINCT author) FROM messages").
		Scan(&stats.Messages, &stats.FailedMessages, &stats.Authors)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.Query("SELECT message_type, COUNT(*) FROM messages GROUP BY message_type")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var messageType string
		var n int
		if err := rows.Scan(&messageType, &n); err != nil {
			closeRows(rows)
			return nil, err
		}
		stats.ByType[messageType] = n
	}
	closeRows(rows)

	rows, err = e.db.Query("SELECT author, COUNT(*) AS n FROM messages GROUP BY author ORDER BY n DESC, author ASC LIMIT 5")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var ac models.AuthorCount
		if err := rows.Scan(&ac.Author, &ac.Messages); err != nil {
			closeRows(rows)
			return nil, err
		}
		stats.TopAuthors = append(stats.TopAuthors, ac)
	}
	closeRows(rows)

	var oldest, newest sql.NullString
	if err := e.db.QueryRow("SELECT MIN(sent_at), MAX(sent_at) FROM messages").Scan(&oldest, &newest); err != nil {
		return nil, err
	}
	stats.Oldest = parseStoredTime(oldest)
	stats.Newest = parseStoredTime(newest)

	var lastImport sql.NullString
	err = e.db.QueryRow("SELECT COUNT(*), MAX(imported_at) FROM import_history WHERE status != 'failed'").
		Scan(&stats.Imports, &lastImport)
	if err != nil {
		return nil, err
	}
	stats.LastImport = parseStoredTime(lastImport)

	return stats, nil
}

// storedTimeFormats are the layouts times come back in from aggregates
var storedTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseStoredTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	for _, format := range storedTimeFormats {
		if t, err := time.Parse(format, s.String); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close rows: %v\n", err)
	}
}
