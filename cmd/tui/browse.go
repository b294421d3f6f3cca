package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/neilberkman/skypetext/internal/models"
	"github.com/neilberkman/skypetext/internal/search"
	"github.com/neilberkman/skypetext/internal/skype"
)

// Mode is the screen the browser is on
type Mode int

const (
	ModeList Mode = iota
	ModeConversation
)

// searchLimit caps the hits scanned when filtering by a query
const searchLimit = 1000

// conversationItem implements list.Item for conversations
type conversationItem struct {
	conv *models.Conversation
}

func (i conversationItem) Title() string {
	if i.conv.DisplayName != "" && i.conv.DisplayName != i.conv.Username {
		return fmt.Sprintf("%s (%s)", i.conv.DisplayName, i.conv.Username)
	}
	return i.conv.Username
}

func (i conversationItem) Description() string {
	if i.conv.LastMessageAt.IsZero() {
		return fmt.Sprintf("%s messages", humanize.Comma(int64(i.conv.MessageCount)))
	}
	return fmt.Sprintf("%s messages • Last message %s",
		humanize.Comma(int64(i.conv.MessageCount)),
		humanize.Time(i.conv.LastMessageAt))
}

func (i conversationItem) FilterValue() string {
	return i.conv.Username + " " + i.conv.DisplayName
}

// browseModel lists indexed conversations and opens their transcripts
type browseModel struct {
	engine        *search.Engine
	clock         *skype.Clock
	conversations []*models.Conversation
	list          list.Model
	textInput     textinput.Model
	mode          Mode
	searching     bool
	query         string
	status        string
	width         int
	height        int
	view          conversationView
}

func newBrowseModel(engine *search.Engine, clock *skype.Clock) browseModel {
	if clock == nil {
		clock = skype.UTCClock()
	}
	conversations, err := engine.GetAllConversations(-1, 0)

	delegate := list.NewDefaultDelegate()
	l := list.New(conversationItems(conversations), delegate, 80, 20)
	l.Title = "Skype Conversations"
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	ti := textinput.New()
	ti.Placeholder = "Search messages..."
	ti.CharLimit = 100
	ti.Width = 50

	m := browseModel{
		engine:        engine,
		clock:         clock,
		conversations: conversations,
		list:          l,
		textInput:     ti,
		mode:          ModeList,
	}
	if err != nil {
		m.status = fmt.Sprintf("Failed to load conversations: %v", err)
	}
	return m
}

func conversationItems(conversations []*models.Conversation) []list.Item {
	items := make([]list.Item, len(conversations))
	for i, c := range conversations {
		items[i] = conversationItem{conv: c}
	}
	return items
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-5)
		if m.mode == ModeConversation {
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tickMsg:
		if m.mode == ModeConversation {
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			if m.searching {
				switch msg.String() {
				case "enter":
					m.filter(m.textInput.Value())
					m.searching = false
					m.textInput.Blur()
				case "esc":
					m.searching = false
					m.textInput.SetValue("")
					m.textInput.Blur()
				default:
					ti, cmd := m.textInput.Update(msg)
					m.textInput = ti
					cmds = append(cmds, cmd)
				}
				break
			}

			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "/":
				m.searching = true
				m.textInput.SetValue(m.query)
				m.textInput.Focus()
				cmds = append(cmds, textinput.Blink)
			case "esc":
				if m.query != "" {
					m.filter("")
				}
			case "enter":
				if i, ok := m.list.SelectedItem().(conversationItem); ok {
					m.open(i.conv.Username)
				}
			default:
				l, cmd := m.list.Update(msg)
				m.list = l
				cmds = append(cmds, cmd)
			}

		case ModeConversation:
			if !m.view.findActive && (msg.String() == "q" || msg.String() == "esc") {
				m.mode = ModeList
				break
			}
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// filter narrows the list to conversations with messages matching query.
// An empty query shows every conversation.
func (m *browseModel) filter(query string) {
	m.query = query
	m.status = ""
	if query == "" {
		m.list.Title = "Skype Conversations"
		m.list.SetItems(conversationItems(m.conversations))
		return
	}

	results, err := m.engine.Search(search.SearchOptions{
		Query:  query,
		Limit:  searchLimit,
		SortBy: "relevance",
	})
	if err != nil {
		m.status = err.Error()
		return
	}

	hits := make(map[string]int)
	var matched []*models.Conversation
	for _, r := range results {
		hits[r.Username]++
	}
	for _, c := range m.conversations {
		if hits[c.Username] > 0 {
			matched = append(matched, c)
		}
	}

	m.list.Title = fmt.Sprintf("%d conversations matching '%s'", len(matched), query)
	m.list.SetItems(conversationItems(matched))
}

// open loads a conversation from the index and shows it
func (m *browseModel) open(username string) {
	conv, messages, err := m.engine.GetConversation(username)
	if err != nil {
		m.status = fmt.Sprintf("Failed to load %s: %v", username, err)
		return
	}

	subtitle := fmt.Sprintf("%s messages", humanize.Comma(int64(len(messages))))
	if !conv.LastMessageAt.IsZero() {
		subtitle += " • Last message " + m.clock.Format(conv.LastMessageAt)
	}

	m.view = newConversationView(conv.Title(), subtitle, EntriesFromMessages(messages, m.clock), nil, m.width, m.height)
	m.mode = ModeConversation
	m.status = ""
}

func (m browseModel) View() string {
	switch m.mode {
	case ModeList:
		var searchBar string
		switch {
		case m.searching:
			searchBar = TitleStyle.Render("Search: ") + m.textInput.View() + "\n"
		case m.status != "":
			searchBar = HelpStyle.Render(m.status) + "\n"
		case m.query != "":
			searchBar = HelpStyle.Render("Press / to refine • esc: show all") + "\n"
		default:
			searchBar = HelpStyle.Render("Press / to search messages") + "\n"
		}

		help := HelpStyle.Render("↑/↓: navigate • enter: view • /: search • q: quit")
		return searchBar + m.list.View() + "\n" + help

	case ModeConversation:
		return m.view.View()
	}

	return ""
}
