package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/huh"

	"github.com/notepid/lexcircle/internal/account"
	"github.com/notepid/lexcircle/internal/app"
	"github.com/notepid/lexcircle/internal/redaction"
)

type accountsModel struct {
	app *app.App

	width  int
	height int

	done bool

	state accountsState

	list   list.Model
	err    error
	notice string

	selected *account.Account

	form *huh.Form

	createUsername    string
	createPassword    string
	createDisplayName string
	createSave        bool

	editDisplayName string
	editSave        bool

	newPassword string
	pwConfirm   string
	pwSave      bool

	roleChoice []string
	roleSave   bool

	hideSuggestions bool
	hideSave        bool

	redactConfirm bool
}

type accountsState int

const (
	accountsStateList accountsState = iota
	accountsStateDetail
	accountsStateCreate
	accountsStateEditProfile
	accountsStateResetPassword
	accountsStateSetRoles
	accountsStateSuggestions
	accountsStateRedact
)

func newAccountsModel(a *app.App) *accountsModel {
	m := &accountsModel{app: a, state: accountsStateList}
	m.reloadList()
	return m
}

func (m *accountsModel) Finished() bool { return m.done }

func (m *accountsModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *accountsModel) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			if msg.String() == "esc" || msg.String() == "q" || msg.String() == "enter" {
				m.err = nil
				m.state = accountsStateList
				m.form = nil
				m.selected = nil
				m.reloadList()
			}
		}
		return nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			if m.state == accountsStateList {
				m.done = true
				return nil
			}
		case "esc":
			m.back()
			return nil
		}
	}

	switch m.state {
	case accountsStateList:
		return m.updateList(msg)
	case accountsStateDetail:
		return m.updateDetail(msg)
	default:
		return m.updateForm(msg)
	}
}

func (m *accountsModel) updateList(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			it, ok := m.list.SelectedItem().(item)
			if !ok {
				return cmd
			}
			if it.kind == "create" {
				m.startCreate()
				return nil
			}

			a, err := m.app.Accounts.GetByID(context.Background(), it.id)
			if err != nil {
				m.err = err
				return nil
			}
			m.selected = a
			m.notice = ""
			m.state = accountsStateDetail
			m.list = m.newActionList()
			return nil
		}
	}

	return cmd
}

func (m *accountsModel) updateDetail(msg tea.Msg) tea.Cmd {
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
			case "edit_profile":
				m.startEditProfile()
			case "set_roles":
				m.startSetRoles()
			case "suggestions":
				m.startSuggestions()
			case "reset_password":
				m.startResetPassword()
			case "redact":
				m.state = accountsStateRedact
				m.form = confirmForm(fmt.Sprintf("Delete %s and rewrite their content to %q?",
					m.selected.Username, account.SentinelDisplayName), &m.redactConfirm)
			case "back":
				m.back()
			}
			return nil
		}
	}

	return cmd
}

func (m *accountsModel) updateForm(msg tea.Msg) tea.Cmd {
	form, cmd, completed, err := stepForm(m.form, msg)
	if err != nil {
		m.err = err
		return nil
	}
	m.form = form
	if !completed {
		return cmd
	}

	ctx := context.Background()
	switch m.state {
	case accountsStateCreate:
		if m.createSave {
			if _, err := m.app.Accounts.Create(ctx, m.createUsername, m.createPassword, m.createDisplayName); err != nil {
				m.err = err
				return nil
			}
		}
		m.form = nil
		m.state = accountsStateList
		m.reloadList()
		return nil
	case accountsStateEditProfile:
		if m.editSave {
			err = m.app.Accounts.UpdateProfile(ctx, m.selected.ID, m.editDisplayName)
		}
	case accountsStateResetPassword:
		if m.pwSave {
			err = m.app.Accounts.UpdatePassword(ctx, m.selected.ID, m.newPassword)
		}
	case accountsStateSetRoles:
		if m.roleSave {
			roles := make([]account.Role, 0, len(m.roleChoice))
			for _, r := range m.roleChoice {
				roles = append(roles, account.Role(r))
			}
			err = m.app.Accounts.SetRoles(ctx, m.selected.ID, roles...)
		}
	case accountsStateSuggestions:
		if m.hideSave {
			err = m.app.Accounts.SetHideFromSuggestions(ctx, m.selected.ID, m.hideSuggestions)
		}
	case accountsStateRedact:
		if m.redactConfirm {
			err = m.redact(ctx)
		}
	}
	if err != nil {
		m.err = err
		return nil
	}

	m.refreshSelected()
	m.form = nil
	m.state = accountsStateDetail
	m.list = m.newActionList()
	return nil
}

func (m *accountsModel) redact(ctx context.Context) error {
	report, err := m.app.Redaction.RedactAccount(ctx, m.selected.ID)
	if qerr := m.app.Jobs.Record(ctx, report, err); qerr != nil {
		return qerr
	}
	if errors.Is(err, redaction.ErrPartialRedaction) {
		m.notice = fmt.Sprintf("Redaction interrupted and queued: %v", err)
		return nil
	}
	if err != nil {
		return err
	}
	m.notice = fmt.Sprintf("Redacted: %d messages, %d comments, %d posts rewritten, %d remaining",
		report.MessagesRewritten, report.CommentsRewritten, report.PostsRewritten, report.Remaining)
	return nil
}

func (m *accountsModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Accounts error: %v\n\nPress Enter/Esc to go back.", m.err)
	}

	switch m.state {
	case accountsStateList:
		m.list.Title = "Accounts"
		return m.list.View() + "\n(q to quit, enter to select)"
	case accountsStateDetail:
		if m.selected == nil {
			return "No account selected\n\n(esc to go back)"
		}
		a := m.selected
		header := titleStyle.Render(fmt.Sprintf("Account: %s (%s)", a.Username, a.ID)) + "\n"
		meta := fmt.Sprintf("Display name: %s\nRoles: %s\nDeleted: %v  Can log in: %v  Hidden from suggestions: %v\nCreated: %s\n",
			a.DisplayName, a.Roles.String(), a.IsDeleted, a.CanLogin, a.HideFromSuggestions,
			a.CreatedAt.Format("2006-01-02 15:04"))
		if m.notice != "" {
			meta += "\n" + m.notice + "\n"
		}
		m.list.Title = "Actions"
		return header + meta + "\n" + m.list.View() + "\n(esc to go back)"
	default:
		return m.form.View() + "\n\n(esc to go back)"
	}
}

func (m *accountsModel) reloadList() {
	accounts, err := m.app.Accounts.List(context.Background())
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(accounts)+1)
	items = append(items, item{title: "+ Create new account", desc: "Add a new account", kind: "create"})
	for _, a := range accounts {
		desc := a.Roles.String()
		switch {
		case a.IsSentinel:
			desc = "sentinel"
		case a.IsDeleted:
			desc += " • deleted"
		}
		items = append(items, item{id: a.ID, title: a.Username, desc: desc, kind: "account"})
	}

	m.list = newList(items, m.width, m.height-2, true)
	m.list.Title = "Accounts"
}

func (m *accountsModel) newActionList() list.Model {
	var items []list.Item
	if m.selected != nil && !m.selected.IsSentinel && !m.selected.IsDeleted {
		items = append(items,
			item{title: "Edit profile", desc: "Display name", kind: "edit_profile"},
			item{title: "Set roles", desc: strings.Join(roleNames(), ", "), kind: "set_roles"},
			item{title: "Suggestions", desc: "Show or hide in member suggestions", kind: "suggestions"},
			item{title: "Reset password", desc: "Set a new password", kind: "reset_password"},
		)
	}
	if m.selected != nil && !m.selected.IsSentinel {
		items = append(items, item{title: "Delete and redact", desc: "Flag deleted and rewrite authored content", kind: "redact"})
	}
	items = append(items, item{title: "Back", desc: "Return to accounts list", kind: "back"})
	return newList(items, m.width, m.height-8, false)
}

func (m *accountsModel) startCreate() {
	m.state = accountsStateCreate
	m.createUsername = ""
	m.createPassword = ""
	m.createDisplayName = ""
	m.createSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&m.createUsername).Validate(nonEmpty("username")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&m.createPassword).Validate(nonEmpty("password")),
			huh.NewInput().Title("Display name").Value(&m.createDisplayName),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Create account?").Value(&m.createSave),
		),
	)
}

func (m *accountsModel) startEditProfile() {
	m.state = accountsStateEditProfile
	m.editDisplayName = m.selected.DisplayName
	m.editSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Display name").Value(&m.editDisplayName).Validate(nonEmpty("display name")),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Save changes?").Value(&m.editSave),
		),
	)
}

func (m *accountsModel) startResetPassword() {
	m.state = accountsStateResetPassword
	m.newPassword = ""
	m.pwConfirm = ""
	m.pwSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&m.newPassword).Validate(nonEmpty("password")),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&m.pwConfirm).Validate(func(s string) error {
				if s != m.newPassword {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Reset password?").Value(&m.pwSave),
		),
	)
}

func (m *accountsModel) startSetRoles() {
	m.state = accountsStateSetRoles
	m.roleChoice = m.roleChoice[:0]
	for _, r := range m.selected.Roles {
		m.roleChoice = append(m.roleChoice, string(r))
	}
	m.roleSave = true

	// "user" is always kept, so it is not offered.
	var options []huh.Option[string]
	for _, r := range roleNames() {
		if r == string(account.RoleUser) {
			continue
		}
		options = append(options, huh.NewOption(r, r))
	}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().Title("Roles").Options(options...).Value(&m.roleChoice),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Save roles?").Value(&m.roleSave),
		),
	)
}

func (m *accountsModel) startSuggestions() {
	m.state = accountsStateSuggestions
	m.hideSuggestions = m.selected.HideFromSuggestions
	m.hideSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Hide from suggestions").Value(&m.hideSuggestions),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Save preference?").Value(&m.hideSave),
		),
	)
}

func (m *accountsModel) back() {
	switch m.state {
	case accountsStateList:
		m.done = true
	case accountsStateDetail:
		m.state = accountsStateList
		m.selected = nil
		m.form = nil
		m.reloadList()
	default:
		m.state = accountsStateDetail
		m.form = nil
		m.list = m.newActionList()
	}
}

func (m *accountsModel) refreshSelected() {
	if m.selected == nil {
		return
	}
	a, err := m.app.Accounts.GetByID(context.Background(), m.selected.ID)
	if err == nil {
		m.selected = a
	}
}

func roleNames() []string {
	return strings.Split(account.NormalizeRoles(account.RoleUser, account.RolePremium,
		account.RoleModerator, account.RoleAdmin), account.RoleDelimiter)
}
