package tui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/internal/config"
	"github.com/neilberkman/skypetext/internal/db"
	"github.com/neilberkman/skypetext/internal/discovery"
	"github.com/neilberkman/skypetext/internal/logging"
	"github.com/neilberkman/skypetext/internal/rendering"
	"github.com/neilberkman/skypetext/internal/search"
	"github.com/neilberkman/skypetext/internal/skype"
)

// watchInterval is how often --watch rescans for exports
const watchInterval = 2 * time.Minute

// mainModel wraps the browser and reports new exports when watching
type mainModel struct {
	browser          tea.Model
	scanner          *discovery.Scanner
	notification     string
	notificationTime time.Time
}

func newMainModel(engine *search.Engine, clock *skype.Clock, initialQuery string, scanner *discovery.Scanner) mainModel {
	browser := newBrowseModel(engine, clock)
	if initialQuery != "" {
		browser.filter(initialQuery)
	}
	return mainModel{browser: browser, scanner: scanner}
}

// checkExportsMsg triggers a rescan for exports
type checkExportsMsg struct{}

// newExportsFoundMsg reports exports modified since the last scan
type newExportsFoundMsg struct {
	count int
}

func scheduleCheck() tea.Cmd {
	return tea.Tick(watchInterval, func(time.Time) tea.Msg {
		return checkExportsMsg{}
	})
}

func (m mainModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.browser.Init()}
	if m.scanner != nil {
		cmds = append(cmds, scheduleCheck())
	}
	return tea.Batch(cmds...)
}

func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case checkExportsMsg:
		if m.scanner == nil {
			return m, nil
		}
		scanner := m.scanner
		return m, tea.Batch(
			func() tea.Msg {
				exports, err := scanner.GetRecentExports(watchInterval)
				if err != nil || len(exports) == 0 {
					return nil
				}
				return newExportsFoundMsg{count: len(exports)}
			},
			scheduleCheck(),
		)

	case newExportsFoundMsg:
		m.notification = fmt.Sprintf("Found %d new Skype export(s), run 'skypetext index' to add them", msg.count)
		m.notificationTime = time.Now()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.browser, cmd = m.browser.Update(msg)
	return m, cmd
}

func (m mainModel) View() string {
	view := m.browser.View()
	if m.notification != "" && time.Since(m.notificationTime) < 10*time.Second {
		view += "\n" + NotificationStyle.Render(m.notification)
	}
	return view
}

// transcriptModel shows a single transcript and quits when closed
type transcriptModel struct {
	view conversationView
}

func (m transcriptModel) Init() tea.Cmd {
	return nil
}

func (m transcriptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q", "esc":
			if !m.view.findActive {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m transcriptModel) View() string {
	return m.view.View()
}

// RunTranscript opens a full-screen viewer over one transcript. A non-nil
// md renders message bodies as markdown.
func RunTranscript(title, subtitle string, entries []rendering.Entry, md *rendering.MarkdownRenderer) error {
	model := transcriptModel{view: newConversationView(title, subtitle, entries, md, 80, 24)}
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}

var watchFiles bool

// TuiCmd browses the search index interactively
var TuiCmd = &cobra.Command{
	Use:   "tui [query]",
	Short: "Browse indexed conversations interactively",
	Long: `Browse the conversations in the search index in a terminal UI.

Press / to narrow the list to conversations whose messages match a search,
enter to read a transcript.

Examples:
  # Browse everything
  skypetext tui

  # Start with conversations mentioning a word
  skypetext tui birthday`,
	RunE: runTUI,
}

func init() {
	TuiCmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "watch Downloads and Desktop for new Skype exports")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	clock, err := skype.NewClock(cfg.Output.Timezone)
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	// the alt screen owns the terminal, so log to a file while it runs
	logFile, err := tea.LogToFile(filepath.Join(config.GetDirs().Data, "tui.log"), "tui")
	if err == nil {
		defer func() {
			if err := logFile.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}()
		if handler, err := logging.NewHandler(cfg.Log.Level, cfg.Log.Format, logFile); err == nil {
			slog.SetDefault(slog.New(handler))
		}
	}

	var scanner *discovery.Scanner
	if watchFiles {
		scanner = discovery.NewScanner(archive.NewLoader(cfg.Archive.Member, slog.Default()))
	}

	model := newMainModel(search.NewEngine(database), clock, strings.Join(args, " "), scanner)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
