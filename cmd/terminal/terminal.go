package terminal

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/neilberkman/skypetext/internal/rendering"
)

// TerminalCmd represents the terminal command
var TerminalCmd = &cobra.Command{
	Use:   "terminal",
	Short: "Show which display features this terminal supports",
	Long: `Show how search results and transcripts will be displayed in the current
terminal: whether links are clickable and whether 'view' opens the
interactive viewer or prints plain text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return report(os.Stdout, rendering.DetectTerminalCapabilities(), rendering.IsInteractive(os.Stdout), rendering.Width(os.Stdout, 0))
	},
}

func report(w io.Writer, caps *rendering.TerminalCapabilities, interactive bool, width int) error {
	terminalType := caps.TerminalType
	if terminalType == "" {
		terminalType = "unknown"
	}

	lines := []string{"Terminal Information:", "  Type: " + terminalType}
	if width > 0 {
		lines = append(lines, fmt.Sprintf("  Width: %d columns", width))
	}
	lines = append(lines, "", "Supported Features:")

	if caps.SupportsHyperlinks {
		lines = append(lines, "  ✓ OSC 8 Hyperlinks - links in messages and search results are clickable",
			"    Demo: "+rendering.MakeHyperlink("Skype export help", "https://support.microsoft.com/skype"))
	} else {
		lines = append(lines, "  ✗ OSC 8 Hyperlinks - links are shown as plain text")
	}

	if interactive {
		lines = append(lines, "  ✓ Interactive - 'view' opens a scrollable viewer with find and copy")
	} else {
		lines = append(lines, "  ✗ Interactive - output is redirected, 'view' prints plain text")
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
