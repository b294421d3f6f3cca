package view

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	exportcmd "github.com/neilberkman/skypetext/cmd/export"
	"github.com/neilberkman/skypetext/cmd/tui"
	"github.com/neilberkman/skypetext/internal/config"
	"github.com/neilberkman/skypetext/internal/convert"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/rendering"
	"github.com/neilberkman/skypetext/internal/search"
	"github.com/neilberkman/skypetext/internal/skype"
)

var (
	markdown bool
	plain    bool
	timezone string
)

// ViewCmd shows one conversation's transcript
var ViewCmd = &cobra.Command{
	Use:   "view <username> [export.tar|messages.json]",
	Short: "Read a conversation's transcript",
	Long: `Read the transcript of the conversation with username.

With an export file the transcript is rendered from it directly, otherwise
it is read from the search index. On a terminal the transcript opens in a
scrollable viewer with find (/) and copy (c).

Examples:
  skypetext view alice export.tar
  skypetext view alice --markdown
  skypetext view alice --plain > alice.txt`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runView,
}

func init() {
	ViewCmd.Flags().BoolVarP(&markdown, "markdown", "m", false, "render message formatting as markdown")
	ViewCmd.Flags().BoolVar(&plain, "plain", false, "print the transcript instead of opening the viewer")
	ViewCmd.Flags().StringVarP(&timezone, "timezone", "z", "", "time zone for message times: UTC or a fixed offset like +02:00")
}

func runView(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if timezone == "" {
		timezone = cfg.Output.Timezone
	}

	username := args[0]
	var (
		title, subtitle string
		entries         []rendering.Entry
		err             error
	)
	if len(args) == 2 {
		title, subtitle, entries, err = fromExport(cmd, cfg, username, args[1])
	} else {
		title, subtitle, entries, err = fromIndex(cfg, username)
	}
	if err != nil {
		return err
	}

	var md *rendering.MarkdownRenderer
	if markdown {
		md, err = rendering.NewMarkdownRenderer(rendering.Width(os.Stdout, 80), "auto")
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}
	}

	if plain || !rendering.IsInteractive(os.Stdout) {
		if md != nil {
			fmt.Print(md.RenderTranscript(title, entries))
		} else {
			fmt.Print(rendering.PlainText(title, entries))
		}
		return nil
	}

	return tui.RunTranscript(title, subtitle, entries, md)
}

func fromExport(cmd *cobra.Command, cfg *config.Config, username, inputPath string) (string, string, []rendering.Entry, error) {
	opts := exportcmd.Options(cfg)
	opts.Timezone = timezone
	converter, err := convert.New(opts, slog.Default())
	if err != nil {
		return "", "", nil, err
	}

	title, lines, err := converter.Lines(cmd.Context(), username, inputPath)
	if err != nil {
		return "", "", nil, err
	}
	subtitle := fmt.Sprintf("%s messages from %s", humanize.Comma(int64(len(lines))), inputPath)
	return title, subtitle, tui.EntriesFromLines(lines), nil
}

func fromIndex(cfg *config.Config, username string) (string, string, []rendering.Entry, error) {
	clock, err := skype.NewClock(timezone)
	if err != nil {
		return "", "", nil, err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	conv, messages, err := search.NewEngine(database).GetConversation(username)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to get conversation: %w (index an export first, or pass one)", err)
	}

	subtitle := fmt.Sprintf("%s messages • indexed %s", humanize.Comma(int64(len(messages))), humanize.Time(conv.ImportedAt))
	return conv.Title(), subtitle, tui.EntriesFromMessages(messages, clock), nil
}
