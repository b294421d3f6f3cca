package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/index"
	"github.com/neilberkman/skypetext/internal/transcript"
)

const testExport = `{
  "conversations": [
    {
      "id": "8:alice",
      "displayName": "Alice",
      "MessageList": [
        {"id": "3", "from": "8:alice", "originalarrivaltime": "2022-01-01T00:02:00Z", "messagetype": "Event/Call", "content": "<partlist><name>harbour</name></partlist>"},
        {"id": "2", "from": "8:alice", "originalarrivaltime": "2022-01-01T00:01:00Z", "messagetype": "RichText", "content": "see you at the harbour"},
        {"id": "1", "from": "8:me", "originalarrivaltime": "2022-01-01T00:00:00Z", "messagetype": "RichText", "content": "meet at the harbour tomorrow?"}
      ]
    },
    {
      "id": "8:bob",
      "MessageList": [
        {"id": "4", "from": "8:bob", "originalarrivaltime": "2022-03-01T00:00:00Z", "messagetype": "RichText", "content": "harbour cruise photos https://example.com/album"}
      ]
    }
  ]
}`

func setupEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()

	database, err := db.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	path := filepath.Join(dir, "messages.json")
	if err := os.WriteFile(path, []byte(testExport), 0644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	indexer := index.NewIndexer(database,
		archive.NewLoader("", logger),
		transcript.NewAssembler(nil, nil, logger),
		logger)
	if _, err := indexer.Index(context.Background(), path, false); err != nil {
		t.Fatalf("failed to index: %v", err)
	}
	return NewEngine(database)
}

func TestSearch(t *testing.T) {
	engine := setupEngine(t)
	start := time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 1, 1, 0, 0, 30, 0, time.UTC)

	tests := []struct {
		name    string
		opts    SearchOptions
		authors []string
	}{
		{
			name:    "all matches sorted by date",
			opts:    SearchOptions{Query: "harbour", SortBy: "date", SortOrder: "asc"},
			authors: []string{"me", "alice", "bob"},
		},
		{
			name:    "failed messages included on request",
			opts:    SearchOptions{Query: "harbour", SortBy: "date", SortOrder: "asc", IncludeFailed: true},
			authors: []string{"me", "alice", "alice", "bob"},
		},
		{
			name:    "conversation filter",
			opts:    SearchOptions{Query: "harbour", Username: "bob"},
			authors: []string{"bob"},
		},
		{
			name:    "author filter",
			opts:    SearchOptions{Query: "harbour", Author: "me"},
			authors: []string{"me"},
		},
		{
			name:    "start date",
			opts:    SearchOptions{Query: "harbour", StartDate: &start},
			authors: []string{"bob"},
		},
		{
			name:    "end date",
			opts:    SearchOptions{Query: "harbour", EndDate: &end},
			authors: []string{"me"},
		},
		{
			name:    "implicit AND",
			opts:    SearchOptions{Query: "harbour tomorrow"},
			authors: []string{"me"},
		},
		{
			name:    "url",
			opts:    SearchOptions{Query: "https://example.com/album"},
			authors: []string{"bob"},
		},
		{
			name:    "limit",
			opts:    SearchOptions{Query: "harbour", SortBy: "date", SortOrder: "asc", Limit: 1, Offset: 1},
			authors: []string{"alice"},
		},
		{
			name: "no match",
			opts: SearchOptions{Query: "lighthouse"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := engine.Search(tt.opts)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(results) != len(tt.authors) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.authors))
			}
			for i, r := range results {
				if r.Author != tt.authors[i] {
					t.Errorf("result %d author = %s, want %s", i, r.Author, tt.authors[i])
				}
				if r.Snippet == "" {
					t.Errorf("result %d has no snippet", i)
				}
			}
		})
	}
}

func TestSearchSyntaxError(t *testing.T) {
	engine := setupEngine(t)
	if _, err := engine.Search(SearchOptions{Query: `"harbour" AND`}); err == nil {
		t.Error("expected syntax error")
	}
}

func TestGetConversation(t *testing.T) {
	engine := setupEngine(t)

	conv, messages, err := engine.GetConversation("alice")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if conv.Title() != "Alice" || conv.MessageCount != 3 {
		t.Errorf("conversation = %+v", conv)
	}
	if want := time.Date(2022, 1, 1, 0, 2, 0, 0, time.UTC); !conv.LastMessageAt.Equal(want) {
		t.Errorf("LastMessageAt = %v, want %v", conv.LastMessageAt, want)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages", len(messages))
	}
	if messages[0].Text != "meet at the harbour tomorrow?" || messages[0].Sender() != "(me)" {
		t.Errorf("first message = %+v", messages[0])
	}
	if !messages[2].Failed {
		t.Error("call without a type should be stored as failed")
	}

	if _, _, err := engine.GetConversation("carol"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("GetConversation(carol) error = %v", err)
	}
}

func TestGetAllConversations(t *testing.T) {
	engine := setupEngine(t)

	conversations, err := engine.GetAllConversations(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(conversations) != 2 {
		t.Fatalf("got %d conversations", len(conversations))
	}
	// most recent activity first
	if conversations[0].Username != "bob" || conversations[1].Username != "alice" {
		t.Errorf("order = %s, %s", conversations[0].Username, conversations[1].Username)
	}
	if conversations[0].Title() != "bob" {
		t.Errorf("Title() = %s", conversations[0].Title())
	}

	page, err := engine.GetAllConversations(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Username != "alice" {
		t.Errorf("second page = %v", page)
	}
}

func TestGetStats(t *testing.T) {
	engine := setupEngine(t)

	stats, err := engine.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Conversations != 2 || stats.Messages != 4 || stats.FailedMessages != 1 || stats.Authors != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByType["RichText"] != 3 || stats.ByType["Event/Call"] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
	if len(stats.TopAuthors) == 0 || stats.TopAuthors[0].Author != "alice" || stats.TopAuthors[0].Messages != 2 {
		t.Errorf("TopAuthors = %v", stats.TopAuthors)
	}
	if stats.Oldest.IsZero() || !stats.Newest.After(stats.Oldest) {
		t.Errorf("range = %v .. %v", stats.Oldest, stats.Newest)
	}
	if stats.Imports != 1 || stats.LastImport.IsZero() {
		t.Errorf("imports = %d at %v", stats.Imports, stats.LastImport)
	}
}
