package archive

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/neilberkman/skypetext/internal/skype"
)

// DefaultMember is the name of the messages document inside a Skype export tar
const DefaultMember = "messages.json"

// ErrUnknownFormat is returned for inputs that are neither .json nor .tar
var ErrUnknownFormat = errors.New("unknown file format")

var utf8BOM = []byte("\xef\xbb\xbf")

// Format reports how path will be read: "tar" or "json"
func Format(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tar":
		return "tar", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
	}
}

// Loader reads Skype exports
type Loader struct {
	member string
	logger *slog.Logger
}

// NewLoader creates a loader looking for member inside tar archives
func NewLoader(member string, logger *slog.Logger) *Loader {
	if member == "" {
		member = DefaultMember
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{member: member, logger: logger}
}

// Load reads the export at path. A missing file, or a tar without the
// messages member, yields an empty export rather than an error.
func (l *Loader) Load(path string) (*skype.Export, error) {
	format, err := Format(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var data []byte
	var found bool
	if format == "tar" {
		data, found, err = l.readMember(path)
	} else {
		data, found, err = readFile(path)
	}
	if err != nil {
		return nil, err
	}
	if !found {
		l.logger.Warn("No messages found in input", "path", path)
		return &skype.Export{}, nil
	}
	l.logger.Debug("Read input file",
		"path", path,
		"size", humanize.Bytes(uint64(len(data))),
		"elapsed", time.Since(start))

	start = time.Now()
	export, err := Parse(data)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Decoded export",
		"conversations", len(export.Conversations),
		"elapsed", time.Since(start))

	return export, nil
}

func readFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read file: %w", err)
	}
	return data, true, nil
}

func (l *Loader) readMember(name string) ([]byte, bool, error) {
	file, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	tr := tar.NewReader(file)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to read archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg || path.Clean(header.Name) != l.member {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read %s from archive: %w", l.member, err)
		}
		return data, true, nil
	}
}

// Parse decodes a messages document. Byte sequences that are not valid UTF-8
// are dropped before decoding.
func Parse(data []byte) (*skype.Export, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.ToValidUTF8(data, nil)

	var export skype.Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return &export, nil
}
