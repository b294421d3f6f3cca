package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// BOM is the UTF-8 byte order mark written at the start of transcripts
const BOM = "\ufeff"

// WriterOptions configures a Writer
type WriterOptions struct {
	// Backup keeps the previous version of a file as <name>.old
	Backup bool
	BOM    bool
	// LineEnding replaces "\n" in written text; empty means the host convention
	LineEnding string
	MaxTries   int
	RetryDelay time.Duration
}

// DefaultWriterOptions returns the options used when nothing is configured
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		Backup:     true,
		BOM:        true,
		MaxTries:   20,
		RetryDelay: 5 * time.Second,
	}
}

// Writer saves transcripts so that a reader never sees a partially written
// file: text goes to <path>.tmp first and is then renamed into place.
type Writer struct {
	opts   WriterOptions
	logger *slog.Logger

	// replaced in tests
	rename func(oldpath, newpath string) error
	remove func(path string) error
}

// NewWriter creates a writer
func NewWriter(opts WriterOptions, logger *slog.Logger) *Writer {
	if opts.MaxTries < 1 {
		opts.MaxTries = 1
	}
	if opts.LineEnding == "" {
		opts.LineEnding = hostLineEnding()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		opts:   opts,
		logger: logger,
		rename: os.Rename,
		remove: os.Remove,
	}
}

func hostLineEnding() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Write stores text at path, creating the directory if needed
func (w *Writer) Write(ctx context.Context, path, text string) error {
	start := time.Now()

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if w.opts.LineEnding != "\n" {
		text = strings.ReplaceAll(text, "\n", w.opts.LineEnding)
	}
	if w.opts.BOM {
		text = BOM + text
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := w.replace(ctx, path); err != nil {
		return err
	}

	w.logger.Debug("Saved transcript",
		"path", path,
		"size", humanize.Bytes(uint64(len(text))),
		"elapsed", time.Since(start))
	return nil
}

// replace moves <path>.tmp over path, retrying failed attempts
func (w *Writer) replace(ctx context.Context, path string) error {
	for try := 1; ; try++ {
		err := w.replaceOnce(path)
		if err == nil {
			return nil
		}
		if try >= w.opts.MaxTries {
			return fmt.Errorf("failed to rename temp file after %d tries: %w", try, err)
		}

		w.logger.Warn("Retrying temp file rename", "path", path, "try", try, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.opts.RetryDelay):
		}
	}
}

func (w *Writer) replaceOnce(path string) error {
	// Windows cannot rename over an existing file
	overwrite := runtime.GOOS != "windows"

	if w.opts.Backup {
		if _, err := os.Stat(path); err == nil {
			backup := path + ".old"
			if !overwrite {
				if err := w.removeFile(backup); err != nil {
					return err
				}
			}
			if err := w.rename(path, backup); err != nil {
				return fmt.Errorf("failed to back up %s: %w", path, err)
			}
		}
	}

	if !overwrite {
		if err := w.removeFile(path); err != nil {
			return err
		}
	}
	return w.rename(path+".tmp", path)
}

// removeFile deletes path if it exists, refusing to delete anything but a
// regular file
func (w *Writer) removeFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a file", path)
	}
	return w.remove(path)
}
