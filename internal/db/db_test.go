package db

import (
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Warning: failed to close database: %v", err)
		}
	})
	return db
}

func TestDatabaseInit(t *testing.T) {
	db := newTestDB(t)

	tables := []string{
		"conversations",
		"messages",
		"messages_fts",
		"import_history",
		"metadata",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	var version string
	if err := db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != SchemaVersion {
		t.Errorf("schema_version = %s", version)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		db, err := New(path)
		if err != nil {
			t.Fatalf("open %d failed: %v", i, err)
		}
		if err := db.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFTSFollowsMessages(t *testing.T) {
	db := newTestDB(t)

	res, err := db.Exec(`INSERT INTO conversations (skype_id, username, source_path) VALUES ('8:alice', 'alice', 'export.tar')`)
	if err != nil {
		t.Fatal(err)
	}
	convID, _ := res.LastInsertId()

	res, err = db.Exec(`INSERT INTO messages (conversation_id, author, text, sequence) VALUES (?, 'alice', 'meet me at the harbour', 0)`, convID)
	if err != nil {
		t.Fatal(err)
	}
	msgID, _ := res.LastInsertId()

	count := func(query string) int {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM messages_fts WHERE messages_fts MATCH ?", query).Scan(&n); err != nil {
			t.Fatal(err)
		}
		return n
	}

	if n := count("harbour"); n != 1 {
		t.Errorf("expected 1 match, got %d", n)
	}

	if _, err := db.Exec("UPDATE messages SET text = 'meet me at the station' WHERE id = ?", msgID); err != nil {
		t.Fatal(err)
	}
	if n := count("harbour"); n != 0 {
		t.Errorf("stale FTS entry after update: %d", n)
	}
	if n := count("station"); n != 1 {
		t.Errorf("expected 1 match after update, got %d", n)
	}

	// deleting the conversation cascades to its messages and their index entries
	if _, err := db.Exec("DELETE FROM conversations WHERE id = ?", convID); err != nil {
		t.Fatal(err)
	}
	if n := count("station"); n != 0 {
		t.Errorf("FTS entry left after cascade delete: %d", n)
	}
}

func TestTransaction(t *testing.T) {
	db := newTestDB(t)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	if _, err := tx.Exec("INSERT INTO metadata (key, value) VALUES (?, ?)", "test_key", "test_value"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM metadata WHERE key = ?", "test_key").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("rolled back insert is visible")
	}
}
