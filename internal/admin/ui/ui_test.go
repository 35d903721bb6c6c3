package ui

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notepid/lexcircle/internal/app"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("paths:\n  data: "+dir+"\n  database: "+filepath.Join(dir, "admin.db")+"\n"), 0o644))
	a, cleanup, err := app.New(cfgPath, app.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return a
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRootNavigatesToScreens(t *testing.T) {
	a := newTestApp(t)
	m := NewRootModel(a).(*rootModel)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	m.Update(key("enter"))
	require.Equal(t, screenAccounts, m.active)
	assert.Contains(t, m.View(), "Accounts")

	m.Update(key("esc"))
	assert.Equal(t, screenHome, m.active)

	m.Update(key("down"))
	m.Update(key("down"))
	m.Update(key("enter"))
	require.Equal(t, screenRedaction, m.active)
	assert.Contains(t, m.View(), "reconcile")
}

func TestGroupsScreenShowsLedgerAndMemberView(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	_, err := a.DB.Exec(`INSERT INTO accounts (id, username, created_at, updated_at) VALUES ('u', 'u_one', 0, 0)`)
	require.NoError(t, err)
	g, err := a.Groups.Create(ctx, "Immigration", "u")
	require.NoError(t, err)
	_, err = a.Messages.Send(ctx, g.ID, "u", "before hide")
	require.NoError(t, err)
	_, err = a.Conversation.Hide(ctx, g.ID, "u")
	require.NoError(t, err)

	m := newGroupsModel(a)
	m.SetSize(100, 40)
	m.openGroup(g.ID)
	require.NoError(t, m.err)
	require.Equal(t, groupsStateDetail, m.state)

	var kinds []string
	for _, li := range m.list.Items() {
		kinds = append(kinds, li.(item).kind)
	}
	assert.Equal(t, []string{"member", "ledger"}, kinds)

	m.viewer = "u"
	m.state = groupsStateMessages
	m.reloadMessages()
	require.NoError(t, m.err)
	for _, li := range m.list.Items() {
		assert.NotEqual(t, "msg", li.(item).kind, "hidden history must not be listed")
	}

	m.back()
	assert.Equal(t, groupsStateDetail, m.state)
}
