package search

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/neilberkman/skypetext/internal/config"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/models"
	"github.com/neilberkman/skypetext/internal/rendering"
	"github.com/neilberkman/skypetext/internal/search"
	"github.com/spf13/cobra"
)

var (
	username      string
	author        string
	startDate     string
	endDate       string
	limit         int
	offset        int
	sortBy        string
	sortOrder     string
	format        string
	includeFailed bool
	quiet         bool
)

var usernameStyle = lipgloss.NewStyle().Bold(true)

// SearchCmd represents the search command
var SearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search through indexed conversations",
	Long: `Search through your indexed Skype conversations using full-text search.
Run "skypetext index" on an export first.

Query Syntax:
  Simple search:      skypetext search "harbour"
  AND (implicit):     skypetext search meet harbour
  OR operator:        skypetext search "lunch OR dinner"
  NOT operator:       skypetext search "lunch NOT dinner"
  Exact phrase:       skypetext search '"see you soon"'
  Wildcard (prefix):  skypetext search "birth*"

Filters:
  Within conversation: skypetext search "photos" --user alice
  By author:           skypetext search "photos" --author bob
  By date range:       skypetext search "trip" --after 2019-01-01 --before 2019-12-31

Note: lowercase and, or, not are treated as operators.`,

	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	SearchCmd.Flags().StringVarP(&username, "user", "u", "", "search within the conversation with this username")
	SearchCmd.Flags().StringVarP(&author, "author", "a", "", "only messages sent by this username")
	SearchCmd.Flags().StringVar(&startDate, "after", "", "filter by start date (YYYY-MM-DD)")
	SearchCmd.Flags().StringVar(&endDate, "before", "", "filter by end date, inclusive (YYYY-MM-DD)")
	SearchCmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of results (default from config)")
	SearchCmd.Flags().IntVar(&offset, "offset", 0, "offset for pagination")
	SearchCmd.Flags().StringVar(&sortBy, "sort-by", "relevance", "sort by relevance or date")
	SearchCmd.Flags().StringVar(&sortOrder, "sort-order", "", "sort order (asc/desc)")
	SearchCmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table/json/csv)")
	SearchCmd.Flags().BoolVar(&includeFailed, "include-failed", false, "also search messages that could not be formatted")
	SearchCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress extra output (pipe-friendly)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search query cannot be empty")
	}

	cfg := config.Get()
	if limit <= 0 {
		limit = cfg.Search.MaxResults
	}

	opts, err := buildOptions(query, cfg.Search.SnippetLength)
	if err != nil {
		return err
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

	results, err := search.NewEngine(database).Search(opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch format {
	case "json":
		return outputJSON(results)
	case "csv":
		return outputCSV(results)
	default:
		return outputTable(results, quiet)
	}
}

func buildOptions(query string, snippetTokens int) (search.SearchOptions, error) {
	opts := search.SearchOptions{
		Query:         query,
		Username:      username,
		Author:        author,
		IncludeFailed: includeFailed,
		Limit:         limit,
		Offset:        offset,
		SnippetTokens: snippetTokens,
		SortBy:        sortBy,
		SortOrder:     sortOrder,
	}

	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return opts, fmt.Errorf("invalid start date: %w", err)
		}
		opts.StartDate = &t
	}

	if endDate != "" {
		t, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return opts, fmt.Errorf("invalid end date: %w", err)
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		opts.EndDate = &t
	}

	return opts, nil
}

func outputTable(results []*models.SearchResult, quiet bool) error {
	if len(results) == 0 {
		if !quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "Conversation\tDate\tAuthor\tSnippet"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "------------\t----\t------\t-------"); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	for _, r := range results {
		date := "-"
		if !r.SentAt.IsZero() {
			date = r.SentAt.Format("2006-01-02 15:04")
		}

		snippet := strings.ReplaceAll(r.Snippet, "\n", " ")
		snippet = rendering.AutoLinkText(rendering.HighlightSnippet(snippet))

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			usernameStyle.Render(truncate(r.Username, 30)), date, truncate(r.Author, 30), snippet); err != nil {
			return fmt.Errorf("failed to write result row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if !quiet {
		fmt.Printf("\nFound %d results", len(results))
		if len(results) == limit {
			fmt.Printf(" (showing first %d)", limit)
		}
		fmt.Println()
	}
	return nil
}

type jsonResult struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Author      string    `json:"author"`
	AuthorName  string    `json:"author_name,omitempty"`
	MessageType string    `json:"message_type"`
	Text        string    `json:"text"`
	Snippet     string    `json:"snippet"`
	SentAt      time.Time `json:"sent_at"`
	URLs        []string  `json:"urls,omitempty"`
}

func outputJSON(results []*models.SearchResult) error {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		out = append(out, jsonResult{
			Username:    r.Username,
			DisplayName: r.DisplayName,
			Author:      r.Author,
			AuthorName:  r.AuthorName,
			MessageType: r.MessageType,
			Text:        r.Text,
			Snippet:     r.Snippet,
			SentAt:      r.SentAt,
			URLs:        rendering.ExtractURLs(r.Text),
		})
	}

	output := map[string]interface{}{
		"results": out,
		"count":   len(out),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func outputCSV(results []*models.SearchResult) error {
	w := csv.NewWriter(os.Stdout)

	if err := w.Write([]string{"username", "author", "message_type", "sent_at", "snippet"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.Username,
			r.Author,
			r.MessageType,
			r.SentAt.Format(time.RFC3339),
			strings.ReplaceAll(r.Snippet, "\n", " "),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
