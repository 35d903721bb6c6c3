package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/list"

	"github.com/notepid/lexcircle/internal/app"
)

type redactionModel struct {
	app *app.App

	width  int
	height int

	done bool

	list list.Model
	err  error

	lastRun string
}

func newRedactionModel(a *app.App) *redactionModel {
	m := &redactionModel{app: a}
	m.reload()
	return m
}

func (m *redactionModel) Finished() bool { return m.done }

func (m *redactionModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-4)
}

func (m *redactionModel) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "esc", "q", "enter":
				m.err = nil
				m.reload()
			}
		}
		return nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "esc":
			m.done = true
			return nil
		case "r":
			m.runOnce()
			return nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *redactionModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Redaction error: %v\n\nPress Enter/Esc to go back.", m.err)
	}
	out := m.list.View()
	if m.lastRun != "" {
		out += "\n" + m.lastRun
	}
	return out + "\n(r run reconcile pass, esc back)"
}

func (m *redactionModel) reload() {
	jobs, err := m.app.Jobs.Recent(context.Background(), 100)
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(jobs))
	for _, j := range jobs {
		desc := fmt.Sprintf("%s • attempts %d • requested %s",
			j.Status, j.Attempts, j.RequestedAt.Format("2006-01-02 15:04"))
		if j.LastError != "" {
			desc += " • " + j.LastError
		}
		items = append(items, item{id: fmt.Sprint(j.ID), title: j.AccountID, desc: desc, kind: "job"})
	}
	m.list = newList(items, m.width, m.height-4, true)
	m.list.Title = "Redaction jobs"
}

func (m *redactionModel) runOnce() {
	s, err := m.app.Reconciler.RunOnce(context.Background())
	if err != nil {
		m.err = err
		return
	}
	m.lastRun = fmt.Sprintf("Last pass: %d accounts, %d completed, %d failed, %d messages, %d comments and %d posts rewritten",
		s.Accounts, s.Completed, s.Failed, s.MessagesRewritten, s.CommentsRewritten, s.PostsRewritten)
	m.reload()
}
