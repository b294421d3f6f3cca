package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/internal/config"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/index"
	"github.com/neilberkman/skypetext/internal/skype"
	"github.com/neilberkman/skypetext/internal/transcript"
	"github.com/spf13/cobra"
)

var (
	force    bool
	timezone string
)

// IndexCmd represents the index command
var IndexCmd = &cobra.Command{
	Use:   "index <export.tar|messages.json>",
	Short: "Add an export to the search index",
	Long: `Render every conversation of a Skype export and store the result in the
local search index.

The index process will:
- Format each message exactly as it appears in the text chat logs
- Replace conversations indexed earlier from another export
- Create full-text search indexes
- Skip files that have already been indexed (unless --force is used)`,

	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	IndexCmd.Flags().BoolVar(&force, "force", false, "force re-index of already indexed files")
	IndexCmd.Flags().StringVarP(&timezone, "timezone", "z", "", "time zone of stored timestamps (default from config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	return IndexFile(cmd.Context(), args[0], force)
}

// IndexFile adds the export at filePath to the search index and prints a
// summary. An export indexed before is skipped unless force is set.
func IndexFile(ctx context.Context, filePath string, force bool) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", filePath)
	}
	if err != nil {
		return err
	}

	cfg := config.Get()
	if timezone == "" {
		timezone = cfg.Output.Timezone
	}
	clock, err := skype.NewClock(timezone)
	if err != nil {
		return fmt.Errorf("failed to parse timezone: %w", err)
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	logger := slog.Default()
	indexer := index.NewIndexer(database,
		archive.NewLoader(cfg.Archive.Member, logger),
		transcript.NewAssembler(skype.NewTimeParser(), transcript.NewFormatter(clock, logger), logger),
		logger)

	fmt.Printf("Indexing %s (%s)...\n", filePath, humanize.Bytes(uint64(info.Size())))
	stats, err := indexer.Index(ctx, filePath, force)
	if errors.Is(err, index.ErrAlreadyIndexed) {
		fmt.Println("This export has already been indexed. Use --force to index it again.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	fmt.Printf("\nIndex completed in %s:\n", stats.Duration)
	fmt.Printf("  Conversations indexed: %s\n", humanize.Comma(int64(stats.ConversationsIndexed)))
	fmt.Printf("  Messages indexed: %s\n", humanize.Comma(int64(stats.MessagesIndexed)))
	if stats.FailedMessages > 0 {
		fmt.Printf("  Messages that could not be formatted: %d\n", stats.FailedMessages)
	}

	if len(stats.Errors) > 0 {
		fmt.Printf("\nErrors encountered: %d\n", len(stats.Errors))
		for _, err := range stats.Errors {
			fmt.Printf("  - %v\n", err)
		}
	}

	return nil
}
