package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/pkg/platform"
)

// ExportFile represents a discovered Skype export file
type ExportFile struct {
	Path         string
	Format       string // "tar" or "json"
	Size         int64
	ModTime      time.Time
	IsValid      bool
	ErrorMessage string
	Preview      *ExportPreview
}

// ExportPreview contains basic info about the export
type ExportPreview struct {
	UserID            string
	ConversationCount int
	MessageCount      int
	DateRange         string
	Usernames         []string
}

// Scanner handles discovery of Skype export files
type Scanner struct {
	searchPaths []string
	loader      *archive.Loader
}

// NewScanner creates a scanner over the Downloads and Desktop directories
func NewScanner(loader *archive.Loader) *Scanner {
	s := &Scanner{loader: loader}
	for _, locate := range []func() (string, error){platform.GetDownloadsDir, platform.GetDesktopDir} {
		dir, err := locate()
		if err != nil {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			s.AddSearchPath(dir)
		}
	}
	return s
}

// AddSearchPath adds an additional directory to search. Directories already
// present are ignored.
func (s *Scanner) AddSearchPath(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	for _, existing := range s.searchPaths {
		if existing == path {
			return
		}
	}
	s.searchPaths = append(s.searchPaths, path)
}

// GetSearchPaths returns the list of paths that will be searched
func (s *Scanner) GetSearchPaths() []string {
	return s.searchPaths
}

// ScanForExports finds Skype export files in the configured paths, newest
// first
func (s *Scanner) ScanForExports() ([]*ExportFile, error) {
	var exports []*ExportFile

	for _, searchPath := range s.searchPaths {
		files, err := s.scanDirectory(searchPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to scan %s: %v\n", searchPath, err)
			continue
		}
		exports = append(exports, files...)
	}

	sort.SliceStable(exports, func(i, j int) bool {
		return exports[i].ModTime.After(exports[j].ModTime)
	})

	return exports, nil
}

// GetRecentExports returns exports modified within the specified duration
func (s *Scanner) GetRecentExports(since time.Duration) ([]*ExportFile, error) {
	exports, err := s.ScanForExports()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-since)
	var recent []*ExportFile
	for _, export := range exports {
		if export.ModTime.After(cutoff) {
			recent = append(recent, export)
		}
	}
	return recent, nil
}

func (s *Scanner) scanDirectory(dir string) ([]*ExportFile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var exports []*ExportFile
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		// unpacked exports keep messages.json in a folder of their own
		if entry.IsDir() {
			path = filepath.Join(path, archive.DefaultMember)
		} else if !isLikelyExport(entry.Name()) {
			continue
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		format, _ := archive.Format(path)
		export := &ExportFile{
			Path:    path,
			Format:  format,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		export.IsValid, export.ErrorMessage, export.Preview = s.validateAndPreview(path)
		exports = append(exports, export)
	}
	return exports, nil
}

// isLikelyExport matches the names Skype gives its downloads
// (8_live_<name>_export.tar) and bare messages.json files
func isLikelyExport(name string) bool {
	lower := strings.ToLower(name)
	switch filepath.Ext(lower) {
	case ".tar":
		return strings.Contains(lower, "export") || strings.Contains(lower, "skype")
	case ".json":
		return strings.HasPrefix(lower, "messages")
	}
	return false
}

func (s *Scanner) validateAndPreview(path string) (bool, string, *ExportPreview) {
	export, err := s.loader.Load(path)
	if err != nil {
		return false, fmt.Sprintf("Cannot read export: %v", err), nil
	}
	if len(export.Conversations) == 0 {
		return false, "No conversations found in export", nil
	}

	summary := archive.Summarize(export)
	preview := &ExportPreview{
		UserID:            summary.UserID,
		ConversationCount: len(summary.Conversations),
		MessageCount:      summary.Messages,
		DateRange:         dateRange(summary.First, summary.Last),
	}
	for _, conv := range summary.Conversations {
		preview.Usernames = append(preview.Usernames, conv.Username)
	}
	return true, "", preview
}

func dateRange(first, last time.Time) string {
	if first.IsZero() || last.IsZero() {
		return ""
	}
	if first.Year() == last.Year() && first.Month() == last.Month() {
		return first.Format("Jan 2006")
	}
	return first.Format("Jan 2006") + " - " + last.Format("Jan 2006")
}
