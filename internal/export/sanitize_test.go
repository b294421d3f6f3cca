package export

import (
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  SanitizeOptions
		want  string
	}{
		{"device name", "con", DefaultSanitizeOptions(), "_con"},
		{"device name upper case", "LPT1", DefaultSanitizeOptions(), "_LPT1"},
		{"device name with extension is fine", "con.txt", DefaultSanitizeOptions(), "con.txt"},
		{"device names kept when disabled", "con", SanitizeOptions{MaxLen: 255}, "con"},
		{"dot dot", "..", DefaultSanitizeOptions(), "_._"},
		{"illegal characters", `a<b>c:d"e/f\g|h?i*j`, DefaultSanitizeOptions(), "a_b_c_d_e_f_g_h_i_j"},
		{"control characters", "a\x01b\x7fc\td", DefaultSanitizeOptions(), "a_b_c_d"},
		{"latin-1 kept", "Jürgen ©", DefaultSanitizeOptions(), "Jürgen ©"},
		{"letters kept", "日本語", DefaultSanitizeOptions(), "日本語"},
		{"symbols replaced", "hi 🙂", DefaultSanitizeOptions(), "hi _"},
		{"leading space", " alice", DefaultSanitizeOptions(), "_alice"},
		{"trailing period", "alice.", DefaultSanitizeOptions(), "alice_"},
		{"trailing space", "alice ", DefaultSanitizeOptions(), "alice_"},
		{"edges kept when disabled", " alice.", SanitizeOptions{MaxLen: 255}, " alice."},
		{"live:id", "live:.cid.123", DefaultSanitizeOptions(), "live_.cid.123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input, tt.opts); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameTruncation(t *testing.T) {
	long := strings.Repeat("a", 300) + ".txt"

	got := SanitizeFilename(long, DefaultSanitizeOptions())
	if len(got) != 255 {
		t.Errorf("len = %d, want 255", len(got))
	}
	if !strings.HasSuffix(got, ".txt") || strings.Count(got, ".txt") != 1 {
		t.Errorf("extension not preserved: %q", got[240:])
	}

	got = SanitizeFilename(long, SanitizeOptions{MaxLen: 100})
	if got != strings.Repeat("a", 100) {
		t.Errorf("truncation without extension = %q", got)
	}

	// multi-byte characters are never split
	got = SanitizeFilename(strings.Repeat("ä", 200), SanitizeOptions{MaxLen: 255})
	if len(got) != 254 || !utf8.ValidString(got) {
		t.Errorf("len = %d, valid = %v", len(got), utf8.ValidString(got))
	}

	if got := SanitizeFilename("short.txt", DefaultSanitizeOptions()); got != "short.txt" {
		t.Errorf("short name changed to %q", got)
	}
}

func TestRegistryPath(t *testing.T) {
	r := NewRegistry("chats")

	tests := []struct {
		username string
		want     string
	}{
		{"alice", "chat alice.txt"},
		{"a:b", "chat a_b.txt"},
		{"a?b", "chat a_b (2).txt"},
		{"a_b", "chat a_b (3).txt"},
		{"con", "chat con.txt"},
		{"group@thread.skype", "chat group@thread.skype.txt"},
		{"alice", "chat alice (2).txt"},
	}

	for _, tt := range tests {
		if got, want := r.Path(tt.username), filepath.Join("chats", tt.want); got != want {
			t.Errorf("Path(%q) = %q, want %q", tt.username, got, want)
		}
	}
}

func TestRegistryPathLength(t *testing.T) {
	r := NewRegistry("")
	name := filepath.Base(r.Path(strings.Repeat("x", 400)))
	if len(name+".old") > 255-len(" (1234)") {
		t.Errorf("file name too long: %d bytes", len(name))
	}

	// the collision suffix still fits
	name = filepath.Base(r.Path(strings.Repeat("x", 400)))
	if !strings.HasSuffix(name, " (2).txt") || len(name+".old") > 255 {
		t.Errorf("unexpected collision name %q (%d bytes)", name, len(name))
	}
}
