package export

import (
	"path/filepath"
	"strconv"
)

// outputReserve is the room kept free in a file name for the prefix, the
// collision suffix, the extension and the backup extension
var outputReserve = len("chat " + " (1234)" + ".txt" + ".old")

// Registry assigns transcript paths to usernames. Usernames that sanitize to
// the same name get " (2)", " (3)" and so on, in the order they are
// requested. A Registry is not safe for concurrent use.
type Registry struct {
	dir    string
	counts map[string]int
}

// NewRegistry creates a registry for transcripts written to dir
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:    dir,
		counts: make(map[string]int),
	}
}

// Path returns the transcript path for username. Every call counts as a use,
// so asking twice for the same username yields two different paths.
func (r *Registry) Path(username string) string {
	name := SanitizeFilename(username, SanitizeOptions{
		MaxLen: 255 - outputReserve,
	})

	r.counts[name]++
	base := "chat " + name
	if n := r.counts[name]; n > 1 {
		base += " (" + strconv.Itoa(n) + ")"
	}
	return filepath.Join(r.dir, base+".txt")
}
