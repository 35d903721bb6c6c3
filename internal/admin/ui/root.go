package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/notepid/lexcircle/internal/app"
)

type screen int

const (
	screenHome screen = iota
	screenAccounts
	screenGroups
	screenRedaction
)

// subModel is a screen reachable from the home menu.
type subModel interface {
	Update(tea.Msg) tea.Cmd
	View() string
	SetSize(w, h int)
	Finished() bool
}

type rootModel struct {
	app *app.App

	width  int
	height int

	active screen

	homeList list.Model
	err      error

	current subModel
}

type menuItem struct {
	title string
	desc  string
	to    screen
}

func (m menuItem) Title() string       { return m.title }
func (m menuItem) Description() string { return m.desc }
func (m menuItem) FilterValue() string { return m.title }

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func NewRootModel(a *app.App) tea.Model {
	items := []list.Item{
		menuItem{title: "Accounts", desc: "Manage accounts, roles and deletions", to: screenAccounts},
		menuItem{title: "Groups", desc: "Inspect members, ledgers and visible history", to: screenGroups},
		menuItem{title: "Redaction", desc: "Queued redaction jobs and reconcile passes", to: screenRedaction},
		menuItem{title: "Quit", desc: "Exit", to: -1},
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "lexcircle admin"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)

	return &rootModel{
		app:      a,
		active:   screenHome,
		homeList: l,
	}
}

func (m *rootModel) Init() tea.Cmd {
	return nil
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.homeList.SetSize(msg.Width, msg.Height-2)
		if m.current != nil {
			m.current.SetSize(msg.Width, msg.Height)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}

	if m.active == screenHome || m.current == nil {
		return m.updateHome(msg)
	}

	cmd := m.current.Update(msg)
	if m.current.Finished() {
		m.active = screenHome
		m.current = nil
	}
	return m, cmd
}

func (m *rootModel) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.homeList, cmd = m.homeList.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if it, ok := m.homeList.SelectedItem().(menuItem); ok {
				if it.to == -1 {
					return m, tea.Quit
				}
				m.activate(it.to)
				return m, nil
			}
		}
	}

	return m, cmd
}

func (m *rootModel) activate(s screen) {
	m.active = s

	switch s {
	case screenAccounts:
		m.current = newAccountsModel(m.app)
	case screenGroups:
		m.current = newGroupsModel(m.app)
	case screenRedaction:
		m.current = newRedactionModel(m.app)
	default:
		m.current = nil
		return
	}
	m.current.SetSize(m.width, m.height)
}

func (m *rootModel) View() string {
	if m.err != nil {
		return errStyle.Render("Error: ") + m.err.Error()
	}

	if m.active == screenHome {
		return m.homeList.View()
	}
	if m.current == nil {
		return titleStyle.Render("Unknown screen") + "\n" + fmt.Sprint(m.active)
	}
	return m.current.View()
}

func newList(items []list.Item, w, h int, filter bool) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), w, h)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(filter)
	l.SetShowHelp(true)
	return l
}

// item is the list entry shared by the screens. kind tells the screen what
// enter does; id and aux identify the row.
type item struct {
	id    string
	aux   string
	title string
	desc  string
	kind  string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }
