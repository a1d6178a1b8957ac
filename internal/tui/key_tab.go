package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/steamlink/steamlink/internal/util"
)

// keyTabModel edits the stored Steam Web API key.
type keyTabModel struct {
	backend Backend
	input   textinput.Model
	current string
	hasKey  bool
	status  string
	err     error
	width   int
}

type apiKeyLoadedMsg struct {
	key string
	ok  bool
	err error
}

type apiKeySavedMsg struct {
	key string
	err error
}

func newKeyTabModel(backend Backend) keyTabModel {
	ti := textinput.New()
	ti.CharLimit = 128
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.Focus()
	m := keyTabModel{backend: backend, input: ti}
	m.setPrompt()
	return m
}

func (m keyTabModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadKey)
}

func (m keyTabModel) loadKey() tea.Msg {
	key, ok, err := m.backend.APIKey(context.Background())
	return apiKeyLoadedMsg{key: key, ok: ok, err: err}
}

func (m keyTabModel) saveKey(key string) tea.Cmd {
	return func() tea.Msg {
		return apiKeySavedMsg{key: key, err: m.backend.SaveAPIKey(context.Background(), key)}
	}
}

func (m keyTabModel) Update(msg tea.Msg) (keyTabModel, tea.Cmd) {
	switch msg := msg.(type) {
	case localeChangedMsg:
		m.setPrompt()
		return m, nil
	case apiKeyLoadedMsg:
		m.current, m.hasKey, m.err = msg.key, msg.ok, msg.err
		return m, nil
	case apiKeySavedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.err = nil
		m.current, m.hasKey = msg.key, true
		m.status = T("key_saved")
		m.input.SetValue("")
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			key := strings.TrimSpace(m.input.Value())
			if key == "" {
				m.status = ""
				m.err = errors.New(T("key_empty"))
				return m, nil
			}
			return m, m.saveKey(key)
		case "esc":
			m.input.SetValue("")
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *keyTabModel) SetSize(w, _ int) {
	m.width = w
	if w > 6 {
		m.input.Width = w - 6
	}
}

func (m *keyTabModel) setPrompt() {
	m.input.Prompt = fmt.Sprintf("  %s: ", T("key_prompt"))
}

func (m keyTabModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(T("key_title")))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(T("key_help")))
	sb.WriteString("\n\n")

	current := T("key_none")
	if m.hasKey {
		current = util.HideAPIKey(m.current)
	}
	sb.WriteString(labelStyle.Render(T("key_current")))
	sb.WriteString(valueStyle.Render(current))
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	if m.err != nil {
		sb.WriteString(errorStyle.Render(T("error_prefix") + ": " + m.err.Error()))
	} else if m.status != "" {
		sb.WriteString(successStyle.Render(m.status))
	}
	return sb.String()
}
