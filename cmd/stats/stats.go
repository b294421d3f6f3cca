package stats

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/skypetext/internal/config"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/search"
	"github.com/spf13/cobra"
)

// StatsCmd represents the stats command
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show search index statistics",
	Long:  `Display statistics about the Skype conversations in the search index.`,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	engine := search.NewEngine(database)

	stats, err := engine.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("=== Skype Search Index Statistics ===")
	fmt.Printf("\nTotal Conversations: %s\n", humanize.Comma(int64(stats.Conversations)))
	fmt.Printf("Total Messages: %s\n", humanize.Comma(int64(stats.Messages)))
	if stats.FailedMessages > 0 {
		fmt.Printf("Unformatted Messages: %s\n", humanize.Comma(int64(stats.FailedMessages)))
	}
	fmt.Printf("Distinct Authors: %d\n", stats.Authors)

	if len(stats.TopAuthors) > 0 {
		fmt.Printf("\nMost Active Authors:\n")
		for _, a := range stats.TopAuthors {
			fmt.Printf("  %-30s %s\n", a.Author, humanize.Comma(int64(a.Messages)))
		}
	}

	if len(stats.ByType) > 0 {
		types := make([]string, 0, len(stats.ByType))
		for t := range stats.ByType {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool {
			if stats.ByType[types[i]] != stats.ByType[types[j]] {
				return stats.ByType[types[i]] > stats.ByType[types[j]]
			}
			return types[i] < types[j]
		})

		fmt.Printf("\nMessages by Type:\n")
		for _, t := range types {
			name := t
			if name == "" {
				name = "(none)"
			}
			fmt.Printf("  %-40s %s\n", name, humanize.Comma(int64(stats.ByType[t])))
		}
	}

	if !stats.Oldest.IsZero() {
		fmt.Printf("\nDate Range:\n")
		fmt.Printf("  Oldest: %s\n", stats.Oldest.Format("2006-01-02"))
		fmt.Printf("  Newest: %s\n", stats.Newest.Format("2006-01-02"))

		duration := stats.Newest.Sub(stats.Oldest)
		fmt.Printf("  Span:   %.0f days\n", duration.Hours()/24)
	}

	if stats.Imports > 0 {
		fmt.Printf("\nIndexed Exports: %d (last %s)\n", stats.Imports, humanize.Time(stats.LastImport))
	}

	return nil
}
