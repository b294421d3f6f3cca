package root

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neilberkman/skypetext/cmd/export"
	"github.com/neilberkman/skypetext/internal/config"
	"github.com/neilberkman/skypetext/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var (
	// Version information - will be set by goreleaser
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// RootCmd represents the base command
var RootCmd = &cobra.Command{
	Use:   "skypetext <username> <export.tar|messages.json>",
	Short: "Convert Skype exports into readable chat logs",
	Long: `skypetext extracts chat logs from Skype export archives into a human readable text format.

You can request a machine-readable export of your Skype chats at
https://secure.skype.com/en/data-export. Once the archive is downloaded, pass
its path to skypetext to get one text file per conversation.

Usage:

To extract the chat log with one particular user:
  skypetext "username" ~/Downloads/8_live_me_export.tar
  skypetext "username" ~/Downloads/messages.json

To extract the chat logs with all users (note the empty quotes):
  skypetext "" ~/Downloads/8_live_me_export.tar

The chat logs are saved into a folder named "chats" (see output.dir in the
config file). Each chat or group chat is saved into a separate file. Existing
files with the same names are kept as "chat username.txt.old".

Other commands:
  skypetext discover                  # Find Skype exports in Downloads
  skypetext list export.tar           # Conversations in an export
  skypetext index export.tar          # Build the search index
  skypetext search "harbour"          # Search indexed conversations
  skypetext view alice export.tar     # Read a conversation in the terminal
  skypetext tui                       # Browse indexed conversations`,
	Version: Version,
	Args:    cobra.ArbitraryArgs,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		cfg := config.Get()
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Setup(level, cfg.Log.Format, os.Stderr); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 {
			return cmd.Help()
		}
		return export.Convert(cmd.Context(), args[0], args[1])
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/skypetext/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	RootCmd.SilenceUsage = true
}
