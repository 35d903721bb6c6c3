package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/huh"

	"github.com/notepid/lexcircle/internal/app"
	"github.com/notepid/lexcircle/internal/conversation"
	"github.com/notepid/lexcircle/internal/group"
)

type groupsModel struct {
	app *app.App

	width  int
	height int

	done bool

	state groupsState
	list  list.Model
	err   error

	selectedGroup *group.Group
	viewer        string

	form         *huh.Form
	clearConfirm bool
	clearEntry   item
}

type groupsState int

const (
	groupsStateList groupsState = iota
	groupsStateDetail
	groupsStateClear
	groupsStateMessages
)

func newGroupsModel(a *app.App) *groupsModel {
	m := &groupsModel{app: a, state: groupsStateList}
	m.reloadGroups()
	return m
}

func (m *groupsModel) Finished() bool { return m.done }

func (m *groupsModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *groupsModel) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			if msg.String() == "esc" || msg.String() == "q" || msg.String() == "enter" {
				m.err = nil
				m.state = groupsStateList
				m.form = nil
				m.reloadGroups()
			}
		}
		return nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			if m.state == groupsStateList {
				m.done = true
				return nil
			}
		case "esc":
			m.back()
			return nil
		}
	}

	if m.state == groupsStateClear {
		return m.updateClear(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			it, ok := m.list.SelectedItem().(item)
			if !ok {
				return cmd
			}
			switch it.kind {
			case "group":
				m.openGroup(it.id)
			case "member":
				m.viewer = it.id
				m.state = groupsStateMessages
				m.reloadMessages()
			case "ledger":
				m.clearEntry = it
				m.state = groupsStateClear
				m.form = confirmForm(fmt.Sprintf("Clear %s entry for %s?", it.aux, it.id), &m.clearConfirm)
			}
			return nil
		}
	}

	return cmd
}

func (m *groupsModel) updateClear(msg tea.Msg) tea.Cmd {
	form, cmd, completed, err := stepForm(m.form, msg)
	if err != nil {
		m.err = err
		return nil
	}
	m.form = form
	if !completed {
		return cmd
	}
	if m.clearConfirm {
		_, err := m.app.Groups.ClearLedgerEntry(context.Background(),
			m.selectedGroup.ID, m.clearEntry.id, group.LedgerKind(m.clearEntry.aux))
		if err != nil {
			m.err = err
			return nil
		}
	}
	m.form = nil
	m.openGroup(m.selectedGroup.ID)
	return nil
}

func (m *groupsModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Groups error: %v\n\nPress Enter/Esc to go back.", m.err)
	}

	switch m.state {
	case groupsStateList:
		m.list.Title = "Groups"
		return m.list.View() + "\n(q to quit, enter to select)"
	case groupsStateDetail:
		m.list.Title = fmt.Sprintf("Group %s", m.selectedGroup.Name)
		return m.list.View() + "\n(enter on a member shows their view, on a ledger entry clears it; esc back)"
	case groupsStateClear:
		return m.form.View() + "\n\n(esc to go back)"
	case groupsStateMessages:
		m.list.Title = fmt.Sprintf("%s as seen by %s", m.selectedGroup.Name, m.viewer)
		return m.list.View() + "\n(esc back)"
	default:
		return "Groups"
	}
}

func (m *groupsModel) reloadGroups() {
	groups, err := m.app.Groups.List(context.Background())
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(groups))
	for _, g := range groups {
		desc := fmt.Sprintf("%d members", g.MemberCount)
		items = append(items, item{id: g.ID, title: g.Name, desc: desc, kind: "group"})
	}
	m.list = newList(items, m.width, m.height-2, true)
}

func (m *groupsModel) openGroup(id string) {
	g, err := m.app.Groups.Get(context.Background(), id)
	if err != nil {
		m.err = err
		return
	}
	m.selectedGroup = g
	m.state = groupsStateDetail

	members := make([]string, 0, len(g.Members))
	for uid := range g.Members {
		members = append(members, uid)
	}
	sort.Strings(members)

	var items []list.Item
	for _, uid := range members {
		items = append(items, item{id: uid, title: "member " + uid, desc: "Show visible messages", kind: "member"})
	}
	ledger, err := m.app.Groups.Ledger(context.Background(), id)
	if err != nil {
		m.err = err
		return
	}
	for _, e := range ledger {
		items = append(items, item{
			id:    e.UserID,
			aux:   string(e.Kind),
			title: fmt.Sprintf("%s %s", e.Kind, e.UserID),
			desc:  e.At.Format("2006-01-02 15:04:05.000"),
			kind:  "ledger",
		})
	}
	m.list = newList(items, m.width, m.height-2, false)
}

func (m *groupsModel) reloadMessages() {
	msgs, err := m.app.Conversation.VisibleMessages(context.Background(), m.selectedGroup.ID, m.viewer, conversation.Page{Limit: 200})
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(msgs)+1)
	if cutoff, ok, err := m.app.Conversation.Cutoff(context.Background(), m.selectedGroup.ID, m.viewer); err == nil && ok {
		items = append(items, item{title: dimStyle.Render("cutoff"), desc: cutoff.Format("2006-01-02 15:04:05.000"), kind: "info"})
	}
	for _, msg := range msgs {
		title := strings.SplitN(msg.Content, "\n", 2)[0]
		desc := fmt.Sprintf("%s • %s", msg.AuthorName, msg.CreatedAt.Format("2006-01-02 15:04"))
		items = append(items, item{id: msg.ID, title: title, desc: desc, kind: "msg"})
	}
	m.list = newList(items, m.width, m.height-2, true)
}

func (m *groupsModel) back() {
	switch m.state {
	case groupsStateList:
		m.done = true
	case groupsStateDetail:
		m.state = groupsStateList
		m.selectedGroup = nil
		m.reloadGroups()
	case groupsStateClear, groupsStateMessages:
		m.form = nil
		m.openGroup(m.selectedGroup.ID)
	}
}
