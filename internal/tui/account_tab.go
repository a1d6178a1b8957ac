package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/steamlink/steamlink/internal/auth/steam"
)

// accountTabModel shows the stored Steam profile and starts logins.
type accountTabModel struct {
	backend  Backend
	viewport viewport.Model
	profile  *steam.Profile
	loggedIn bool
	busy     bool
	confirm  bool
	status   string
	err      error
	width    int
	height   int
	ready    bool
}

type profileLoadedMsg struct {
	profile *steam.Profile
	err     error
}

type loginDoneMsg struct {
	ok  bool
	err error
}

type profileDeletedMsg struct {
	deleted bool
	err     error
}

func newAccountTabModel(backend Backend) accountTabModel {
	return accountTabModel{backend: backend}
}

func (m accountTabModel) Init() tea.Cmd {
	return m.loadProfile("")
}

func (m accountTabModel) loadProfile(steamID string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.backend.Profile(context.Background(), steamID)
		return profileLoadedMsg{profile: p, err: err}
	}
}

func (m accountTabModel) startLogin() tea.Cmd {
	return func() tea.Msg {
		ok, err := m.backend.Login(context.Background())
		return loginDoneMsg{ok: ok, err: err}
	}
}

func (m accountTabModel) deleteProfile(userID int64) tea.Cmd {
	return func() tea.Msg {
		deleted, err := m.backend.DeleteProfile(context.Background(), userID)
		return profileDeletedMsg{deleted: deleted, err: err}
	}
}

func (m accountTabModel) Update(msg tea.Msg) (accountTabModel, tea.Cmd) {
	switch msg := msg.(type) {
	case localeChangedMsg:
		m.refresh()
		return m, nil

	case profileLoadedMsg:
		m.profile, m.err = msg.profile, msg.err
		m.refresh()
		return m, nil

	case loginEventMsg:
		m.busy = false
		if msg.Success {
			m.loggedIn = true
			m.status = successStyle.Render(T("account_login_ok"))
			m.err = nil
			m.refresh()
			return m, m.loadProfile(msg.SubjectID)
		}
		m.status = errorStyle.Render(fmt.Sprintf("%s: %s", T("account_login_fail"), msg.Error))
		m.refresh()
		return m, nil

	case loginDoneMsg:
		// The outcome itself arrives as loginEventMsg; only attempts that never
		// started (already running, no primary) end up here with nothing else.
		if msg.err != nil && errors.Is(msg.err, steam.ErrLoginInProgress) {
			m.status = warningStyle.Render(steam.GetUserFriendlyMessage(msg.err))
			m.refresh()
		}
		return m, nil

	case profileDeletedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else if msg.deleted {
			m.status = successStyle.Render(T("account_deleted"))
			m.profile = nil
			m.loggedIn = false
		}
		m.refresh()
		return m, m.loadProfile("")

	case tea.KeyMsg:
		if m.confirm {
			m.confirm = false
			if msg.String() == "y" && m.profile != nil {
				return m, m.deleteProfile(m.profile.UserID)
			}
			m.refresh()
			return m, nil
		}
		switch msg.String() {
		case "l":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = warningStyle.Render(T("account_logging_in"))
			m.refresh()
			return m, m.startLogin()
		case "r":
			return m, m.loadProfile("")
		case "d":
			if m.profile != nil {
				m.confirm = true
				m.refresh()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *accountTabModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if !m.ready {
		m.viewport = viewport.New(w, h)
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = h
	}
	m.refresh()
}

func (m *accountTabModel) refresh() {
	if m.ready {
		m.viewport.SetContent(m.render())
	}
}

func (m accountTabModel) View() string {
	if !m.ready {
		return T("loading")
	}
	return m.viewport.View()
}

func (m accountTabModel) render() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(T("account_title")))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(T("account_help")))
	sb.WriteString("\n\n")

	if m.status != "" {
		sb.WriteString(m.status)
		sb.WriteString("\n\n")
	}
	if m.err != nil {
		sb.WriteString(errorStyle.Render(T("error_prefix") + ": " + m.err.Error()))
		sb.WriteString("\n\n")
	}
	if m.confirm {
		sb.WriteString(warningStyle.Render(T("account_confirm_del")))
		sb.WriteString("\n\n")
	}
	if m.profile == nil {
		sb.WriteString(subtitleStyle.Render(T("account_none")))
		return sb.String()
	}

	p := m.profile
	visibility := T("visibility_private")
	if p.IsPublic() {
		visibility = T("visibility_public")
	}
	country := strings.Trim(strings.Join([]string{p.LocCountryCode, p.LocStateCode}, "/"), "/")
	rows := [][2]string{
		{T("account_persona"), p.PersonaName},
		{T("account_steamid"), p.SteamID64},
		{T("account_real_name"), p.RealName},
		{T("account_profile_url"), p.ProfileURL},
		{T("account_visibility"), visibility},
		{T("account_country"), country},
	}
	if p.UpdatedAt > 0 {
		rows = append(rows, [2]string{T("account_updated"), time.Unix(p.UpdatedAt, 0).Format(time.DateTime)})
	}

	var body strings.Builder
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		body.WriteString(labelStyle.Render(row[0]))
		body.WriteString(valueStyle.Render(row[1]))
		body.WriteString("\n")
	}
	sb.WriteString(sectionStyle.Render(strings.TrimRight(body.String(), "\n")))
	return sb.String()
}
