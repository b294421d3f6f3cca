package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neilberkman/skypetext/internal/config"
	"github.com/neilberkman/skypetext/internal/convert"
	"github.com/neilberkman/skypetext/internal/export"
	"github.com/spf13/cobra"
)

var (
	outputDir string
	timezone  string
	noBackup  bool
	noBOM     bool
)

// ExportCmd represents the export command
var ExportCmd = &cobra.Command{
	Use:   "export <username> <export.tar|messages.json>",
	Short: "Write chat logs to text files",
	Long: `Write the chat log with username, or with every user when username is "",
to a text file per conversation.

Examples:
  skypetext export alice export.tar
  skypetext export "" messages.json --output-dir ~/skype-logs
  skypetext export alice export.tar --timezone +02:00 --no-backup`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Convert(cmd.Context(), args[0], args[1])
	},
}

func init() {
	ExportCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "directory for chat logs (default from config, \"chats\")")
	ExportCmd.Flags().StringVarP(&timezone, "timezone", "z", "", "output time zone: UTC or a fixed offset like +02:00")
	ExportCmd.Flags().BoolVar(&noBackup, "no-backup", false, "overwrite existing chat logs without keeping .old copies")
	ExportCmd.Flags().BoolVar(&noBOM, "no-bom", false, "do not start files with a byte order mark")
}

// Options builds conversion options from the configuration and the flags
// of this command
func Options(cfg *config.Config) convert.Options {
	opts := convert.Options{
		OutputDir: cfg.Output.Dir,
		Timezone:  cfg.Output.Timezone,
		Member:    cfg.Archive.Member,
		Writer: export.WriterOptions{
			Backup:     cfg.Output.Backup && !noBackup,
			BOM:        cfg.Output.BOM && !noBOM,
			MaxTries:   cfg.Write.MaxTries,
			RetryDelay: cfg.Write.RetryDelay,
		},
	}
	if outputDir != "" {
		opts.OutputDir = outputDir
	}
	if timezone != "" {
		opts.Timezone = timezone
	}
	return opts
}

// Convert writes the chat logs for username ("" for everyone) from the
// export at inputPath
func Convert(ctx context.Context, username, inputPath string) error {
	opts := Options(config.Get())
	converter, err := convert.New(opts, slog.Default())
	if err != nil {
		return err
	}

	result, err := converter.Run(ctx, username, inputPath)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Wrote %d of %d chat logs to %s", len(result.Written), result.Requested, opts.OutputDir)
	if result.Failed > 0 {
		fmt.Printf(" (%d failed, see log)", result.Failed)
	}
	fmt.Println()
	return nil
}
