package rendering

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalCapabilities represents what features the current terminal supports
type TerminalCapabilities struct {
	SupportsHyperlinks bool
	TerminalType       string
}

// DetectTerminalCapabilities detects what features the current terminal supports
func DetectTerminalCapabilities() *TerminalCapabilities {
	termProgram := os.Getenv("TERM_PROGRAM")
	termName := os.Getenv("TERM")

	caps := &TerminalCapabilities{TerminalType: termProgram}
	if caps.TerminalType == "" {
		caps.TerminalType = termName
	}

	switch termProgram {
	case "ghostty", "kitty", "wezterm", "iTerm.app", "vscode", "WezTerm":
		caps.SupportsHyperlinks = true
	}
	if os.Getenv("KITTY_WINDOW_ID") != "" || os.Getenv("WT_SESSION") != "" {
		caps.SupportsHyperlinks = true
	}
	// Most modern xterm variants support hyperlinks
	if strings.Contains(termName, "xterm") {
		caps.SupportsHyperlinks = true
	}
	if os.Getenv("NO_HYPERLINKS") != "" {
		caps.SupportsHyperlinks = false
	}

	return caps
}

// IsHyperlinksSupported returns true if the terminal supports OSC 8 hyperlinks
func IsHyperlinksSupported() bool {
	return DetectTerminalCapabilities().SupportsHyperlinks
}

// IsInteractive reports whether f is attached to a terminal
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or fallback when f is not a terminal
func Width(f *os.File, fallback int) int {
	if !IsInteractive(f) {
		return fallback
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// GetTerminalInfo returns human-readable terminal information
func GetTerminalInfo() string {
	caps := DetectTerminalCapabilities()
	info := "Terminal: " + caps.TerminalType
	if caps.SupportsHyperlinks {
		info += " (supports: hyperlinks)"
	}
	return info
}
