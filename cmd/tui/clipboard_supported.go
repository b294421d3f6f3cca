//go:build darwin || windows

package tui

import (
	"fmt"
	"os"
	"sync"

	clipboard "golang.design/x/clipboard"
)

var (
	clipboardOnce sync.Once
	clipboardErr  error
)

// writeToClipboard copies text to the system clipboard
func writeToClipboard(text string) error {
	// CI runners have no clipboard
	if os.Getenv("CI") != "" {
		return nil
	}
	clipboardOnce.Do(func() {
		clipboardErr = clipboard.Init()
	})
	if clipboardErr != nil {
		return fmt.Errorf("failed to initialize clipboard: %w", clipboardErr)
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
