package rendering

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectTerminalCapabilities(t *testing.T) {
	tests := []struct {
		name               string
		env                map[string]string
		expectedType       string
		expectedHyperlinks bool
	}{
		{
			name:               "Ghostty terminal",
			env:                map[string]string{"TERM_PROGRAM": "ghostty"},
			expectedType:       "ghostty",
			expectedHyperlinks: true,
		},
		{
			name:               "Kitty via KITTY_WINDOW_ID",
			env:                map[string]string{"KITTY_WINDOW_ID": "1"},
			expectedHyperlinks: true,
		},
		{
			name:               "Windows Terminal",
			env:                map[string]string{"WT_SESSION": "abc"},
			expectedHyperlinks: true,
		},
		{
			name:               "xterm falls back to TERM",
			env:                map[string]string{"TERM": "xterm-256color"},
			expectedType:       "xterm-256color",
			expectedHyperlinks: true,
		},
		{
			name:         "unknown terminal",
			env:          map[string]string{"TERM": "vt100"},
			expectedType: "vt100",
		},
		{
			name:         "opted out",
			env:          map[string]string{"TERM_PROGRAM": "iTerm.app", "NO_HYPERLINKS": "1"},
			expectedType: "iTerm.app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"TERM_PROGRAM", "TERM", "KITTY_WINDOW_ID", "WT_SESSION", "NO_HYPERLINKS"} {
				t.Setenv(key, tt.env[key])
			}

			caps := DetectTerminalCapabilities()
			if caps.TerminalType != tt.expectedType {
				t.Errorf("TerminalType = %q, want %q", caps.TerminalType, tt.expectedType)
			}
			if caps.SupportsHyperlinks != tt.expectedHyperlinks {
				t.Errorf("SupportsHyperlinks = %v, want %v", caps.SupportsHyperlinks, tt.expectedHyperlinks)
			}
			if caps.SupportsHyperlinks != strings.Contains(GetTerminalInfo(), "hyperlinks") {
				t.Errorf("GetTerminalInfo() = %q", GetTerminalInfo())
			}
		})
	}
}

func TestWidthOfRegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsInteractive(f) {
		t.Error("regular file reported as terminal")
	}
	if got := Width(f, 100); got != 100 {
		t.Errorf("Width() = %d, want fallback 100", got)
	}
}
