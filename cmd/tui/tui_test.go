package tui

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/index"
	"github.com/neilberkman/skypetext/internal/models"
	"github.com/neilberkman/skypetext/internal/rendering"
	"github.com/neilberkman/skypetext/internal/search"
	"github.com/neilberkman/skypetext/internal/skype"
	"github.com/neilberkman/skypetext/internal/transcript"
)

const testExport = `{
  "conversations": [
    {
      "id": "8:alice",
      "displayName": "Alice",
      "MessageList": [
        {"id": "2", "from": "8:alice", "originalarrivaltime": "2022-01-01T00:01:00Z", "messagetype": "RichText", "content": "see you at the harbour"},
        {"id": "1", "from": "8:me", "originalarrivaltime": "2022-01-01T00:00:00Z", "messagetype": "RichText", "content": "meet at the harbour tomorrow?"}
      ]
    },
    {
      "id": "8:bob",
      "MessageList": [
        {"id": "3", "from": "8:bob", "originalarrivaltime": "2022-03-01T00:00:00Z", "messagetype": "RichText", "content": "holiday photos are up"}
      ]
    }
  ]
}`

// setupEngine indexes testExport into a fresh database
func setupEngine(t *testing.T) *search.Engine {
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
	return search.NewEngine(database)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEntriesFromLines(t *testing.T) {
	lines := []transcript.Line{
		{Name: "Alice (alice)", Time: "2022.01.01 00:00:00 UTC", Content: "hi"},
		{Name: "(bob)", Time: "2022.01.01 00:01:00 UTC", EditTime: "2022.01.01 00:02:00 UTC", Content: "hey"},
		{Content: "no header"},
	}

	entries := EntriesFromLines(lines)
	want := []string{
		"Alice (alice) 2022.01.01 00:00:00 UTC",
		"(bob) 2022.01.01 00:01:00 UTC - 2022.01.01 00:02:00 UTC",
		"",
	}
	for i, e := range entries {
		if e.Header != want[i] {
			t.Errorf("entry %d header = %q, want %q", i, e.Header, want[i])
		}
		if e.Body != lines[i].Content {
			t.Errorf("entry %d body = %q, want %q", i, e.Body, lines[i].Content)
		}
	}
}

func TestEntriesFromMessages(t *testing.T) {
	edited := time.Date(2022, 1, 1, 0, 5, 0, 0, time.UTC)
	messages := []*models.Message{
		{Author: "alice", AuthorName: "Alice", Text: "hi", SentAt: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), EditedAt: &edited},
		{Author: "bob", Text: "undated"},
	}

	clock, err := skype.NewClock("+02:00")
	if err != nil {
		t.Fatal(err)
	}
	entries := EntriesFromMessages(messages, clock)

	if want := "Alice (alice) " + clock.Format(messages[0].SentAt) + " - " + clock.Format(edited); entries[0].Header != want {
		t.Errorf("header = %q, want %q", entries[0].Header, want)
	}
	if entries[1].Header != "(bob)" {
		t.Errorf("header = %q, want %q", entries[1].Header, "(bob)")
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"short line untouched", "hello there", 20, "hello there"},
		{"wraps on words", "one two three four", 9, "one two\nthree\nfour"},
		{"keeps line breaks", "a\nb c", 3, "a\nb c"},
		{"counts runes", "héllo wörld", 11, "héllo wörld"},
		{"zero width", "anything goes", 0, "anything goes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wordWrap(tt.text, tt.width); got != tt.want {
				t.Errorf("wordWrap(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestBrowseModel(t *testing.T) {
	m := newBrowseModel(setupEngine(t), nil)
	if m.status != "" {
		t.Fatalf("unexpected status: %s", m.status)
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(browseModel)

	items := m.list.Items()
	if len(items) != 2 {
		t.Fatalf("got %d conversations, want 2", len(items))
	}
	// most recently active first
	if got := items[0].(conversationItem).Title(); got != "bob" {
		t.Errorf("first item = %q, want bob", got)
	}
	if got := items[1].(conversationItem).Title(); got != "Alice (alice)" {
		t.Errorf("second item = %q, want %q", got, "Alice (alice)")
	}

	updated, _ = m.Update(key("enter"))
	m = updated.(browseModel)
	if m.mode != ModeConversation {
		t.Fatalf("enter did not open the conversation: %s", m.status)
	}
	if m.view.title != "bob" || len(m.view.entries) != 1 {
		t.Errorf("opened %q with %d entries", m.view.title, len(m.view.entries))
	}
	if !strings.Contains(m.View(), "holiday photos") {
		t.Error("transcript not shown")
	}

	updated, _ = m.Update(key("esc"))
	m = updated.(browseModel)
	if m.mode != ModeList {
		t.Error("esc did not return to the list")
	}
}

func TestBrowseFilter(t *testing.T) {
	m := newBrowseModel(setupEngine(t), nil)

	for _, k := range []tea.KeyMsg{key("/"), key("harbour"), key("enter")} {
		updated, _ := m.Update(k)
		m = updated.(browseModel)
	}
	if m.query != "harbour" {
		t.Fatalf("query = %q, want harbour", m.query)
	}
	items := m.list.Items()
	if len(items) != 1 || items[0].(conversationItem).conv.Username != "alice" {
		t.Fatalf("filter kept %d items", len(items))
	}

	updated, _ := m.Update(key("esc"))
	m = updated.(browseModel)
	if m.query != "" || len(m.list.Items()) != 2 {
		t.Errorf("esc did not clear the filter")
	}

	m.filter(`"harbour" AND`)
	if m.status == "" {
		t.Error("expected a search error")
	}
}

func testView() conversationView {
	entries := []rendering.Entry{
		{Header: "(alice) 2022.01.01 00:00:00 UTC", Body: "meet at the harbour"},
		{Header: "(bob) 2022.01.01 00:01:00 UTC", Body: "which harbour?"},
		{Header: "(alice) 2022.01.01 00:02:00 UTC", Body: "the old one"},
	}
	return newConversationView("alice", "3 messages", entries, nil, 80, 20)
}

func TestConversationViewFind(t *testing.T) {
	cv := testView()

	for _, k := range []tea.KeyMsg{key("/"), key("HARBOUR"), key("enter")} {
		cv, _ = cv.Update(k)
	}
	if cv.findActive {
		t.Error("find still active after enter")
	}
	if len(cv.findMatches) != 2 {
		t.Fatalf("got %d matches, want 2", len(cv.findMatches))
	}
	if !strings.Contains(cv.View(), "Match 1/2") {
		t.Error("find status not shown")
	}

	cv, _ = cv.Update(key("n"))
	if cv.currentMatch != 1 {
		t.Errorf("currentMatch = %d after n, want 1", cv.currentMatch)
	}
	cv, _ = cv.Update(key("n"))
	if cv.currentMatch != 0 {
		t.Errorf("currentMatch = %d after wrapping, want 0", cv.currentMatch)
	}
	cv, _ = cv.Update(key("N"))
	if cv.currentMatch != 1 {
		t.Errorf("currentMatch = %d after N, want 1", cv.currentMatch)
	}

	for _, k := range []tea.KeyMsg{key("/"), key("lighthouse"), key("enter")} {
		cv, _ = cv.Update(k)
	}
	if len(cv.findMatches) != 0 || !strings.Contains(cv.View(), "No matches found") {
		t.Error("expected no matches")
	}
}

func TestConversationViewCopy(t *testing.T) {
	cv := testView()

	cv, cmd := cv.Update(key("c"))
	if cv.notification == "" || cmd == nil {
		t.Fatal("copy did not notify")
	}
	for i := 0; i < 30; i++ {
		cv, _ = cv.Update(tickMsg{})
	}
	if cv.notification != "" {
		t.Errorf("notification %q did not expire", cv.notification)
	}
}

func TestTranscriptModelQuits(t *testing.T) {
	m := transcriptModel{view: testView()}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}

	updated, _ := m.Update(key("/"))
	updated, _ = updated.Update(key("q"))
	view := updated.(transcriptModel).view
	if !view.findActive || view.textInput.Value() != "q" {
		t.Error("q should be typed into the find query")
	}
}

func TestMainModelNotification(t *testing.T) {
	m := newMainModel(setupEngine(t), nil, "photos", nil)
	if got := len(m.browser.(browseModel).list.Items()); got != 1 {
		t.Errorf("initial query kept %d conversations, want 1", got)
	}

	updated, _ := m.Update(newExportsFoundMsg{count: 2})
	if !strings.Contains(updated.View(), "Found 2 new Skype export(s)") {
		t.Error("notification not shown")
	}

	_, cmd := m.Update(checkExportsMsg{})
	if cmd != nil {
		t.Error("checkExportsMsg without a scanner should do nothing")
	}
}
