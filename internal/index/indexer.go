package index

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/logging"
	"github.com/neilberkman/skypetext/internal/models"
	"github.com/neilberkman/skypetext/internal/skype"
	"github.com/neilberkman/skypetext/internal/transcript"
)

// ErrAlreadyIndexed is returned for a file whose contents were indexed before
var ErrAlreadyIndexed = errors.New("file already indexed")

// Indexer stores rendered transcripts in the database for searching
type Indexer struct {
	db        *db.DB
	loader    *archive.Loader
	assembler *transcript.Assembler
	logger    *slog.Logger
}

// NewIndexer creates an indexer
func NewIndexer(database *db.DB, loader *archive.Loader, assembler *transcript.Assembler, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		db:        database,
		loader:    loader,
		assembler: assembler,
		logger:    logger,
	}
}

// Index renders every conversation in the export at filePath and stores the
// result. Conversations indexed earlier under the same Skype id are replaced.
// Unless force is set, a file with the same contents is only indexed once.
func (i *Indexer) Index(ctx context.Context, filePath string, force bool) (*models.IndexStats, error) {
	stats := &models.IndexStats{}
	startTime := time.Now()

	hash, err := fileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash file: %w", err)
	}

	if !force {
		imported, err := i.isFileIndexed(hash)
		if err != nil {
			return nil, err
		}
		if imported {
			return nil, fmt.Errorf("%w (hash: %s)", ErrAlreadyIndexed, hash[:12])
		}
	}

	export, err := i.loader.Load(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load export: %w", err)
	}

	tx, err := i.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for idx := range export.Conversations {
		conv := &export.Conversations[idx]
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		err := i.indexConversation(ctx, tx, conv, filePath, stats)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return stats, err
		}
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("conversation %s: %w", conv.ID, err))
			i.logger.Warn("Failed to index conversation", "id", conv.ID, "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		_ = i.recordImport(filePath, hash, stats, "failed", err.Error())
		return stats, fmt.Errorf("failed to commit: %w", err)
	}

	stats.Duration = time.Since(startTime)
	status, message := "success", ""
	if len(stats.Errors) > 0 {
		status, message = "partial", errors.Join(stats.Errors...).Error()
	}
	if err := i.recordImport(filePath, hash, stats, status, message); err != nil {
		i.logger.Warn("Failed to record import", "error", err)
	}

	return stats, nil
}

func (i *Indexer) indexConversation(ctx context.Context, tx *sql.Tx, conv *skype.Conversation, filePath string, stats *models.IndexStats) error {
	username, err := skype.StripUsernamePrefix(conv.ID)
	if err != nil {
		return err
	}
	ctx = logging.WithConversation(ctx, username)

	lines, err := i.assembler.Render(ctx, conv)
	if err != nil {
		return err
	}

	displayName := ""
	if conv.DisplayName != nil {
		displayName = skype.CleanMarkup(*conv.DisplayName)
	}

	var first, last time.Time
	for _, line := range lines {
		if t := line.Message.Time; !t.IsZero() {
			if first.IsZero() {
				first = t
			}
			last = t
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE skype_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("failed to replace conversation: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (skype_id, username, display_name, first_message_at, last_message_at, message_count, source_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, conv.ID, username, displayName, nullTime(first), nullTime(last), len(lines), filePath)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	convID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get conversation ID: %w", err)
	}

	for seq, line := range lines {
		m := line.Message
		author, err := skype.StripUsernamePrefix(m.From)
		if err != nil {
			author = m.From
		}
		authorName := ""
		if m.DisplayName != nil {
			authorName = skype.CleanMarkup(*m.DisplayName)
		}
		var editedAt interface{}
		if m.EditTime != nil {
			editedAt = m.EditTime.UTC()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, skype_message_id, author, author_name, message_type, text, sent_at, edited_at, sequence, failed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, convID, m.ID, author, authorName, m.MessageType, line.Content, nullTime(m.Time), editedAt, seq, line.Failed)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		stats.MessagesIndexed++
		if line.Failed {
			stats.FailedMessages++
		}
	}

	stats.ConversationsIndexed++
	return nil
}

// nullTime stores zero times as NULL
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func fileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (i *Indexer) isFileIndexed(hash string) (bool, error) {
	var count int
	err := i.db.QueryRow("SELECT COUNT(*) FROM import_history WHERE file_hash = ? AND status != 'failed'", hash).Scan(&count)
	return count > 0, err
}

func (i *Indexer) recordImport(filePath, hash string, stats *models.IndexStats, status, errorMsg string) error {
	_, err := i.db.Exec(`
		INSERT INTO import_history (file_path, file_hash, conversations_count, messages_count, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, filePath, hash, stats.ConversationsIndexed, stats.MessagesIndexed, status, errorMsg)
	return err
}
