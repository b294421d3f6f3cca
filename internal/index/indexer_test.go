package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/transcript"
)

const testExport = `{
  "userId": "8:me",
  "conversations": [
    {
      "id": "8:alice",
      "displayName": "Alice",
      "MessageList": [
        {"id": "3", "from": "8:alice", "originalarrivaltime": "2022-01-01T00:02:00Z", "messagetype": "Event/Call", "content": "<partlist><name>x</name></partlist>"},
        {"id": "2", "from": "8:alice", "displayName": "Alice", "originalarrivaltime": "2022-01-01T00:01:00Z", "messagetype": "RichText", "content": "see you at the harbour"},
        {"id": "1", "from": "8:me", "originalarrivaltime": "2022-01-01T00:00:00Z", "messagetype": "RichText", "content": "meet tomorrow?"}
      ]
    },
    {
      "id": "19:group@thread.skype",
      "displayName": "Team",
      "MessageList": [
        {"id": "4", "from": "8:bob", "originalarrivaltime": "2022-01-03T00:00:00Z", "messagetype": "Text", "content": "standup moved"}
      ]
    },
    {"id": "broken", "MessageList": []}
  ]
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (*Indexer, *db.DB, string) {
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

	logger := quietLogger()
	indexer := NewIndexer(database,
		archive.NewLoader("", logger),
		transcript.NewAssembler(nil, nil, logger),
		logger)
	return indexer, database, path
}

func TestIndex(t *testing.T) {
	indexer, database, path := setup(t)

	stats, err := indexer.Index(context.Background(), path, false)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if stats.ConversationsIndexed != 2 {
		t.Errorf("ConversationsIndexed = %d, want 2", stats.ConversationsIndexed)
	}
	if stats.MessagesIndexed != 4 {
		t.Errorf("MessagesIndexed = %d, want 4", stats.MessagesIndexed)
	}
	if stats.FailedMessages != 1 {
		t.Errorf("FailedMessages = %d, want 1", stats.FailedMessages)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("got %d errors, want 1 for the malformed id", len(stats.Errors))
	}

	var username, displayName string
	var count int
	err = database.QueryRow("SELECT username, display_name, message_count FROM conversations WHERE skype_id = '8:alice'").
		Scan(&username, &displayName, &count)
	if err != nil {
		t.Fatal(err)
	}
	if username != "alice" || displayName != "Alice" || count != 3 {
		t.Errorf("conversation = %s %s %d", username, displayName, count)
	}

	rows, err := database.Query(`
		SELECT m.author, m.text, m.failed FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.skype_id = '8:alice' ORDER BY m.sequence`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	want := []struct {
		author string
		text   string
		failed bool
	}{
		{"me", "meet tomorrow?", false},
		{"alice", "see you at the harbour", false},
		{"alice", "", true},
	}
	i := 0
	for rows.Next() {
		var author, text string
		var failed bool
		if err := rows.Scan(&author, &text, &failed); err != nil {
			t.Fatal(err)
		}
		if i >= len(want) {
			t.Fatalf("unexpected extra message %q", text)
		}
		if author != want[i].author || failed != want[i].failed {
			t.Errorf("message %d = %s %v", i, author, failed)
		}
		if !want[i].failed && text != want[i].text {
			t.Errorf("message %d text = %q, want %q", i, text, want[i].text)
		}
		i++
	}
	if i != len(want) {
		t.Errorf("got %d messages, want %d", i, len(want))
	}

	var status string
	if err := database.QueryRow("SELECT status FROM import_history").Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != "partial" {
		t.Errorf("status = %s, want partial", status)
	}
}

func TestIndexTwice(t *testing.T) {
	indexer, database, path := setup(t)
	ctx := context.Background()

	if _, err := indexer.Index(ctx, path, false); err != nil {
		t.Fatal(err)
	}
	if _, err := indexer.Index(ctx, path, false); !errors.Is(err, ErrAlreadyIndexed) {
		t.Fatalf("second Index() error = %v, want ErrAlreadyIndexed", err)
	}
	if _, err := indexer.Index(ctx, path, true); err != nil {
		t.Fatalf("forced Index() error = %v", err)
	}

	var conversations, messages, fts int
	if err := database.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&conversations); err != nil {
		t.Fatal(err)
	}
	if err := database.QueryRow("SELECT COUNT(*) FROM messages").Scan(&messages); err != nil {
		t.Fatal(err)
	}
	if err := database.QueryRow("SELECT COUNT(*) FROM messages_fts WHERE messages_fts MATCH 'harbour'").Scan(&fts); err != nil {
		t.Fatal(err)
	}
	if conversations != 2 || messages != 4 || fts != 1 {
		t.Errorf("after re-index: %d conversations, %d messages, %d fts hits", conversations, messages, fts)
	}
}

func TestIndexCancelled(t *testing.T) {
	indexer, database, path := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := indexer.Index(ctx, path, false); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("cancelled index left %d conversations", count)
	}
}

func TestIndexMissingFile(t *testing.T) {
	indexer, _, _ := setup(t)
	if _, err := indexer.Index(context.Background(), filepath.Join(t.TempDir(), "nope.json"), false); err == nil {
		t.Error("expected error for missing file")
	}
}
