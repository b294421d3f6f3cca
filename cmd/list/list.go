package list

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/internal/config"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/search"
	"github.com/spf13/cobra"
)

var (
	limit   int
	sortBy  string
	quiet   bool
	format  string
	indexed bool
)

type conversation struct {
	Username    string    `json:"username"`
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	Messages    int       `json:"messages"`
	First       time.Time `json:"first_message_at"`
	Last        time.Time `json:"last_message_at"`
}

// ListCmd represents the list command
var ListCmd = &cobra.Command{
	Use:   "list [export.tar|messages.json]",
	Short: "List the conversations in an export",
	Long: `List the conversations in a Skype export with their usernames, message
counts and dates. The usernames are the ones to pass to export and view.

With --indexed, list the conversations in the search index instead.

Examples:
  skypetext list export.tar
  skypetext list messages.json --sort messages --limit 10
  skypetext list export.tar --format csv
  skypetext list --indexed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	ListCmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of conversations to show (0 for all)")
	ListCmd.Flags().StringVarP(&sortBy, "sort", "s", "name", "sort by: name, date, or messages")
	ListCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress extra output (pipe-friendly)")
	ListCmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table/json/csv)")
	ListCmd.Flags().BoolVar(&indexed, "indexed", false, "list conversations in the search index")
}

func runList(cmd *cobra.Command, args []string) error {
	var conversations []conversation
	var err error
	switch {
	case indexed:
		conversations, err = fromIndex()
	case len(args) == 1:
		conversations, err = fromExport(args[0])
	default:
		return fmt.Errorf("an export file is required unless --indexed is given")
	}
	if err != nil {
		return err
	}

	total := len(conversations)
	sortConversations(conversations, sortBy)
	if limit > 0 && len(conversations) > limit {
		conversations = conversations[:limit]
	}

	if len(conversations) == 0 {
		if !quiet {
			fmt.Println("No conversations found.")
		}
		return nil
	}

	switch format {
	case "json":
		return outputJSON(conversations, total)
	case "csv":
		return outputCSV(conversations)
	default:
		return outputTable(conversations, total, quiet)
	}
}

func fromExport(path string) ([]conversation, error) {
	loader := archive.NewLoader(config.Get().Archive.Member, slog.Default())
	data, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load export: %w", err)
	}

	summary := archive.Summarize(data)
	conversations := make([]conversation, 0, len(summary.Conversations))
	for _, c := range summary.Conversations {
		conversations = append(conversations, conversation{
			Username:    c.Username,
			ID:          c.ID,
			DisplayName: c.DisplayName,
			Messages:    c.Messages,
			First:       c.First,
			Last:        c.Last,
		})
	}
	return conversations, nil
}

func fromIndex() ([]conversation, error) {
	database, err := db.New(config.Get().Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	indexedConversations, err := search.NewEngine(database).GetAllConversations(-1, 0)
	if err != nil {
		return nil, err
	}
	conversations := make([]conversation, 0, len(indexedConversations))
	for _, c := range indexedConversations {
		conversations = append(conversations, conversation{
			Username:    c.Username,
			ID:          c.SkypeID,
			DisplayName: c.DisplayName,
			Messages:    c.MessageCount,
			First:       c.FirstMessageAt,
			Last:        c.LastMessageAt,
		})
	}
	return conversations, nil
}

func sortConversations(conversations []conversation, by string) {
	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		switch by {
		case "messages":
			if a.Messages != b.Messages {
				return a.Messages > b.Messages
			}
		case "date":
			if !a.Last.Equal(b.Last) {
				return a.Last.After(b.Last)
			}
		}
		return a.Username < b.Username
	})
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func outputTable(conversations []conversation, total int, quiet bool) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "Username\tMessages\tFirst\tLast\tName"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--------\t--------\t-----\t----\t----"); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	for _, c := range conversations {
		last := formatDate(c.Last)
		if !c.Last.IsZero() {
			last += " (" + humanize.Time(c.Last) + ")"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncate(c.Username, 40), humanize.Comma(int64(c.Messages)), formatDate(c.First), last, truncate(c.DisplayName, 60)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if !quiet {
		fmt.Printf("\nShowing %d of %d conversations\n", len(conversations), total)
	}
	return nil
}

func outputJSON(conversations []conversation, total int) error {
	output := map[string]interface{}{
		"conversations": conversations,
		"count":         len(conversations),
		"total":         total,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func outputCSV(conversations []conversation) error {
	w := csv.NewWriter(os.Stdout)

	if err := w.Write([]string{"username", "id", "display_name", "messages", "first_message_at", "last_message_at"}); err != nil {
		return err
	}
	for _, c := range conversations {
		record := []string{
			c.Username,
			c.ID,
			strings.ReplaceAll(c.DisplayName, "\n", " "),
			strconv.Itoa(c.Messages),
			c.First.Format(time.RFC3339),
			c.Last.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
