package discover

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	indexcmd "github.com/neilberkman/skypetext/cmd/index"
	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/internal/config"
	"github.com/neilberkman/skypetext/internal/discovery"
)

var (
	includePaths   []string
	recent         bool
	recentDuration string
	autoIndex      bool
	showInvalid    bool
	showPaths      bool
)

// DiscoverCmd represents the discover command
var DiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find Skype exports in common locations",
	Long: `Find Skype export archives (*.tar) and messages.json files in your
Downloads and Desktop folders and check that they can be read.

Examples:
  skypetext discover                          # Find all exports
  skypetext discover --recent                 # Exports from the last 7 days
  skypetext discover --recent --duration 30d  # Exports from the last 30 days
  skypetext discover --include ~/Documents    # Also search Documents
  skypetext discover --auto-index             # Index every valid export found
  skypetext discover --show-invalid           # Include files that failed to load`,
	RunE: runDiscover,
}

func init() {
	DiscoverCmd.Flags().StringSliceVarP(&includePaths, "include", "i", nil, "additional directories to search")
	DiscoverCmd.Flags().BoolVarP(&recent, "recent", "r", false, "only show recent exports (last 7 days)")
	DiscoverCmd.Flags().StringVarP(&recentDuration, "duration", "d", "7d", "duration for recent exports (e.g. 24h, 7d, 30d)")
	DiscoverCmd.Flags().BoolVarP(&autoIndex, "auto-index", "a", false, "index every valid export found")
	DiscoverCmd.Flags().BoolVar(&showInvalid, "show-invalid", false, "show files that look like exports but could not be read")
	DiscoverCmd.Flags().BoolVarP(&showPaths, "show-paths", "p", false, "show which directories are searched")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	scanner := discovery.NewScanner(archive.NewLoader(cfg.Archive.Member, slog.Default()))
	for _, path := range includePaths {
		scanner.AddSearchPath(path)
	}

	if showPaths {
		fmt.Println("Searching in:")
		for _, path := range scanner.GetSearchPaths() {
			fmt.Printf("  - %s\n", path)
		}
		fmt.Println()
	}

	var exports []*discovery.ExportFile
	if recent {
		duration, err := parseDuration(recentDuration)
		if err != nil {
			return fmt.Errorf("invalid duration '%s': %w", recentDuration, err)
		}
		exports, err = scanner.GetRecentExports(duration)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	} else {
		var err error
		exports, err = scanner.ScanForExports()
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	}

	var shown, valid []*discovery.ExportFile
	for _, export := range exports {
		switch {
		case export.IsValid:
			valid = append(valid, export)
			shown = append(shown, export)
		case showInvalid:
			shown = append(shown, export)
		}
	}

	if len(shown) == 0 {
		if recent {
			fmt.Println("No Skype exports found in the specified time range.")
		} else {
			fmt.Println("No Skype exports found.")
		}
		fmt.Println("\nTip: Try 'skypetext discover --show-invalid' to see files that look like exports but could not be read.")
		return nil
	}

	if err := displayExportTable(os.Stdout, shown); err != nil {
		return err
	}

	if !autoIndex {
		if len(valid) > 0 {
			fmt.Println("\nTo index an export:")
			fmt.Printf("  skypetext index %q\n", valid[0].Path)
			fmt.Println("\nTo write its chat logs:")
			fmt.Printf("  skypetext \"\" %q\n", valid[0].Path)
		}
		return nil
	}

	fmt.Printf("\nIndexing %d export(s)...\n\n", len(valid))
	indexed := 0
	for _, export := range valid {
		if err := indexcmd.IndexFile(cmd.Context(), export.Path, false); err != nil {
			fmt.Printf("✗ Failed to index %s: %v\n", filepath.Base(export.Path), err)
		} else {
			indexed++
		}
		fmt.Println()
	}
	if indexed > 0 {
		fmt.Printf("✓ Indexed %d export(s)\n", indexed)
	}
	return nil
}

func displayExportTable(out io.Writer, exports []*discovery.ExportFile) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(w, "STATUS\tFILE\tFORMAT\tSIZE\tMODIFIED\tCONVS\tMSGS\tDATE RANGE"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "------\t----\t------\t----\t--------\t-----\t----\t----------"); err != nil {
		return err
	}

	validCount := 0
	for _, export := range exports {
		status := "✗"
		if export.IsValid {
			status = "✓"
			validCount++
		}

		convs, msgs, dateRange := "-", "-", "-"
		if export.Preview != nil {
			convs = humanize.Comma(int64(export.Preview.ConversationCount))
			msgs = humanize.Comma(int64(export.Preview.MessageCount))
			dateRange = export.Preview.DateRange
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			status,
			shorten(filepath.Base(export.Path), 30),
			export.Format,
			humanize.Bytes(uint64(export.Size)),
			humanize.Time(export.ModTime),
			convs, msgs, dateRange); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nFound %d file(s): %d valid, %d invalid\n", len(exports), validCount, len(exports)-validCount)
	for _, export := range exports {
		if !export.IsValid {
			fmt.Fprintf(out, "  %s: %s\n", filepath.Base(export.Path), export.ErrorMessage)
		}
	}
	return nil
}

func shorten(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// parseDuration accepts time.ParseDuration syntax plus a day suffix ("7d")
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		if d, err := time.ParseDuration(days + "h"); err == nil {
			return d * 24, nil
		}
	}
	return time.ParseDuration(s)
}
