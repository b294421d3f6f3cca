package export

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const filler = "_"

// deviceNames are reserved on Windows regardless of extension or case
var deviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	"CONIN$": true, "CONOUT$": true,
	".": true, "..": true,
}

// Windows rejects names starting with a space or ending in a space or period
var badEdgesRegex = regexp.MustCompile(`(^ |[. ]$)`)

// SanitizeOptions controls SanitizeFilename
type SanitizeOptions struct {
	// MaxLen is the maximum length of the result in bytes
	MaxLen             int
	KeepExt            bool
	ReplaceDeviceNames bool
	CheckStartEnd      bool
}

// DefaultSanitizeOptions returns the options for a standalone file name
func DefaultSanitizeOptions() SanitizeOptions {
	return SanitizeOptions{
		MaxLen:             255,
		KeepExt:            true,
		ReplaceDeviceNames: true,
		CheckStartEnd:      true,
	}
}

// SanitizeFilename maps name to a string that is safe to use as a file name
// on common filesystems. Characters outside the printable Latin-1 range that
// are not letters or digits, and the characters <>:"/\|?*, become "_".
func SanitizeFilename(name string, opts SanitizeOptions) string {
	var sb strings.Builder
	for _, r := range name {
		if keepRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteString(filler)
		}
	}
	result := sb.String()

	if opts.ReplaceDeviceNames && deviceNames[strings.ToUpper(result)] {
		result = filler + result
	}

	if opts.MaxLen > 0 {
		ext := ""
		if opts.KeepExt {
			ext = extension(result)
		}
		stem := strings.TrimSuffix(result, ext)
		if len(ext) >= opts.MaxLen {
			ext = ""
			stem = result
		}
		result = truncate(stem, opts.MaxLen-len(ext)) + ext
	}

	if opts.CheckStartEnd {
		result = badEdgesRegex.ReplaceAllString(result, filler)
	}
	return result
}

func keepRune(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return false
	case strings.ContainsRune("\x7f<>:\"/\\|?*", r):
		return false
	case r >= 32 && r <= 255:
		return true
	default:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
}

// extension is filepath.Ext, except that leading dots do not start one
func extension(name string) string {
	ext := filepath.Ext(name)
	if strings.TrimLeft(name, ".") == strings.TrimLeft(ext, ".") {
		return ""
	}
	return ext
}

// truncate cuts s to at most n bytes without splitting a character
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
