//go:build !darwin && !windows

package tui

import "errors"

// errNoClipboard is returned where golang.design/x/clipboard is not built in
var errNoClipboard = errors.New("clipboard not available on this system")

// writeToClipboard reports that no clipboard is available
func writeToClipboard(text string) error {
	return errNoClipboard
}
