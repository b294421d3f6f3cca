package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/neilberkman/skypetext/internal/rendering"
)

// conversationView shows one transcript with find and copy
type conversationView struct {
	viewport  viewport.Model
	textInput textinput.Model
	title     string
	subtitle  string
	entries   []rendering.Entry
	markdown  *rendering.MarkdownRenderer
	width     int
	height    int

	findQuery    string
	findActive   bool
	findMatches  []int // line numbers that match findQuery
	currentMatch int

	notification      string
	notificationTimer int // ticks until the notification disappears
}

func newConversationView(title, subtitle string, entries []rendering.Entry, md *rendering.MarkdownRenderer, width, height int) conversationView {
	ti := textinput.New()
	ti.Placeholder = "Find in transcript..."
	ti.CharLimit = 100
	ti.Width = 50

	cv := conversationView{
		viewport:  viewport.New(width, height-3),
		textInput: ti,
		title:     title,
		subtitle:  subtitle,
		entries:   entries,
		markdown:  md,
		width:     width,
		height:    height,
	}
	cv.updateContent()
	cv.viewport.GotoTop()
	return cv
}

func (cv conversationView) Init() tea.Cmd {
	return nil
}

// tickMsg counts down the notification timer
type tickMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (cv conversationView) Update(msg tea.Msg) (conversationView, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tickMsg:
		if cv.notificationTimer > 0 {
			cv.notificationTimer--
			if cv.notificationTimer == 0 {
				cv.notification = ""
			} else {
				cmds = append(cmds, tick())
			}
		}

	case tea.WindowSizeMsg:
		cv.width = msg.Width
		cv.height = msg.Height
		cv.viewport.Width = msg.Width
		cv.viewport.Height = msg.Height - 3
		cv.updateContent()

	case tea.KeyMsg:
		if cv.findActive {
			switch msg.String() {
			case "enter":
				if cv.textInput.Value() != "" {
					cv.findQuery = cv.textInput.Value()
					cv.findMatches = cv.find(cv.findQuery)
					cv.currentMatch = 0
					if len(cv.findMatches) > 0 {
						cv.viewport.SetYOffset(cv.findMatches[0])
					}
				}
				cv.findActive = false
				cv.textInput.Blur()
			case "esc":
				cv.findActive = false
				cv.findQuery = ""
				cv.findMatches = nil
				cv.textInput.SetValue("")
				cv.textInput.Blur()
			default:
				ti, cmd := cv.textInput.Update(msg)
				cv.textInput = ti
				cmds = append(cmds, cmd)
			}
			break
		}

		switch msg.String() {
		case "/", "f":
			cv.findActive = true
			cv.textInput.SetValue("")
			cv.textInput.Focus()
			cmds = append(cmds, textinput.Blink)
		case "n":
			if len(cv.findMatches) > 0 {
				cv.currentMatch = (cv.currentMatch + 1) % len(cv.findMatches)
				cv.viewport.SetYOffset(cv.findMatches[cv.currentMatch])
			}
		case "N":
			if len(cv.findMatches) > 0 {
				cv.currentMatch = (cv.currentMatch - 1 + len(cv.findMatches)) % len(cv.findMatches)
				cv.viewport.SetYOffset(cv.findMatches[cv.currentMatch])
			}
		case "g":
			cv.viewport.GotoTop()
		case "G":
			cv.viewport.GotoBottom()
		case "c":
			cv.copyTranscript()
			cmds = append(cmds, tick())
		default:
			vp, cmd := cv.viewport.Update(msg)
			cv.viewport = vp
			cmds = append(cmds, cmd)
		}
	}

	return cv, tea.Batch(cmds...)
}

func (cv conversationView) View() string {
	content := cv.viewport.View()

	var findBar string
	if cv.findActive {
		findBar = TitleStyle.Render("Find: ") + cv.textInput.View() + "\n"
	} else if cv.findQuery != "" {
		if len(cv.findMatches) > 0 {
			findBar = HelpStyle.Render(fmt.Sprintf("Found %d matches for '%s' • Match %d/%d • n: next • N: prev",
				len(cv.findMatches), cv.findQuery, cv.currentMatch+1, len(cv.findMatches))) + "\n"
		} else {
			findBar = HelpStyle.Render(fmt.Sprintf("No matches found for '%s' • Press / to search again", cv.findQuery)) + "\n"
		}
	}

	var help string
	if cv.findActive {
		help = HelpStyle.Render("enter: search • esc: cancel")
	} else {
		help = HelpStyle.Render("↑/↓: scroll • g/G: top/bottom • /f: find • n/N: next/prev match • c: copy • esc/q: close")
	}

	if cv.notification != "" {
		notification := NotificationStyle.Align(lipgloss.Center).Render(cv.notification)
		lines := strings.Split(content, "\n")
		if len(lines) > 3 {
			lines[2] = lipgloss.PlaceHorizontal(cv.width, lipgloss.Center, notification)
		}
		content = strings.Join(lines, "\n")
	}

	return findBar + content + "\n" + help
}

func (cv *conversationView) render() string {
	return renderTranscript(cv.title, cv.subtitle, cv.entries, cv.width, cv.markdown)
}

func (cv *conversationView) updateContent() {
	cv.viewport.SetContent(cv.render())
}

// find returns the rendered lines containing query, ignoring case
func (cv conversationView) find(query string) []int {
	if query == "" || len(cv.entries) == 0 {
		return nil
	}

	var matches []int
	queryLower := strings.ToLower(query)
	for i, line := range strings.Split(cv.render(), "\n") {
		if strings.Contains(strings.ToLower(line), queryLower) {
			matches = append(matches, i)
		}
	}
	return matches
}

// copyTranscript puts the plain transcript on the clipboard
func (cv *conversationView) copyTranscript() {
	if err := writeToClipboard(rendering.PlainText(cv.title, cv.entries)); err != nil {
		cv.notification = fmt.Sprintf("Copy failed: %v", err)
		cv.notificationTimer = 30
		return
	}
	cv.notification = "✓ Copied transcript to clipboard"
	cv.notificationTimer = 20
}
