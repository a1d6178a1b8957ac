// Package tui provides the terminal front end of steamlink: the primary
// surface that starts logins, shows the stored profile and edits the API key.
package tui

import (
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Tab identifiers
const (
	tabAccount = iota
	tabAPIKey
	tabLogs
)

// App is the root bubbletea model that contains all tab sub-models.
type App struct {
	activeTab int
	tabs      []string

	logsEnabled bool

	account accountTabModel
	key     keyTabModel
	logs    logsTabModel

	width  int
	height int
	ready  bool
}

// NewApp creates the root TUI application model. A nil hook hides the logs tab.
func NewApp(backend Backend, hook *LogHook) App {
	app := App{
		activeTab:   tabAccount,
		logsEnabled: hook != nil,
		account:     newAccountTabModel(backend),
		key:         newKeyTabModel(backend),
		logs:        newLogsTabModel(hook),
	}
	app.refreshTabs()
	return app
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.account.Init(), a.key.Init()}
	if a.logsEnabled {
		cmds = append(cmds, a.logs.Init())
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		contentH := a.height - 4 // tab bar + status bar
		if contentH < 1 {
			contentH = 1
		}
		a.account.SetSize(a.width, contentH)
		a.key.SetSize(a.width, contentH)
		a.logs.SetSize(a.width, contentH)
		return a, nil

	case loginEventMsg, loginDoneMsg, profileLoadedMsg, profileDeletedMsg:
		var cmd tea.Cmd
		a.account, cmd = a.account.Update(msg)
		return a, cmd

	case apiKeyLoadedMsg, apiKeySavedMsg:
		var cmd tea.Cmd
		a.key, cmd = a.key.Update(msg)
		return a, cmd

	case logLineMsg:
		var cmd tea.Cmd
		a.logs, cmd = a.logs.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			// 'q' is text on the key tab.
			if a.activeTab != tabAPIKey {
				return a, tea.Quit
			}
		case "L":
			if a.activeTab != tabAPIKey {
				ToggleLocale()
				a.refreshTabs()
				return a.broadcastToAllTabs(localeChangedMsg{})
			}
		case "tab":
			a.activeTab = (a.activeTab + 1) % len(a.tabs)
			return a, nil
		case "shift+tab":
			a.activeTab = (a.activeTab - 1 + len(a.tabs)) % len(a.tabs)
			return a, nil
		}
	}

	// Route msg to active tab
	var cmd tea.Cmd
	switch a.activeTab {
	case tabAccount:
		a.account, cmd = a.account.Update(msg)
	case tabAPIKey:
		a.key, cmd = a.key.Update(msg)
	case tabLogs:
		a.logs, cmd = a.logs.Update(msg)
	}
	return a, cmd
}

// localeChangedMsg is broadcast to all tabs when the user toggles locale.
type localeChangedMsg struct{}

func (a *App) refreshTabs() {
	names := TabNames()
	if a.logsEnabled {
		a.tabs = names
	} else {
		a.tabs = names[:tabLogs]
	}
	if a.activeTab >= len(a.tabs) {
		a.activeTab = len(a.tabs) - 1
	}
}

func (a App) View() string {
	if !a.ready {
		return T("initializing_tui")
	}

	var sb strings.Builder
	sb.WriteString(a.renderTabBar())
	sb.WriteString("\n")

	switch a.activeTab {
	case tabAccount:
		sb.WriteString(a.account.View())
	case tabAPIKey:
		sb.WriteString(a.key.View())
	case tabLogs:
		sb.WriteString(a.logs.View())
	}

	sb.WriteString("\n")
	sb.WriteString(a.renderStatusBar())
	return sb.String()
}

func (a App) renderTabBar() string {
	var tabs []string
	for i, name := range a.tabs {
		if i == a.activeTab {
			tabs = append(tabs, tabActiveStyle.Render(name))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(name))
		}
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return tabBarStyle.Width(a.width).Render(tabBar)
}

func (a App) renderStatusBar() string {
	left := strings.TrimRight(T("status_left"), " ")
	right := strings.TrimRight(T("status_right"), " ")

	width := a.width
	if width < 1 {
		width = 1
	}

	// statusBarStyle has left/right padding(1), so content area is width-2.
	contentWidth := max(width-2, 0)

	if lipgloss.Width(left) > contentWidth {
		left = fitStringWidth(left, contentWidth)
		right = ""
	}
	remaining := max(contentWidth-lipgloss.Width(left), 0)
	if lipgloss.Width(right) > remaining {
		right = fitStringWidth(right, remaining)
	}
	gap := max(contentWidth-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return statusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func fitStringWidth(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= maxWidth {
		return text
	}

	out := ""
	for _, r := range text {
		next := out + string(r)
		if lipgloss.Width(next) > maxWidth {
			break
		}
		out = next
	}
	return out
}

func (a App) broadcastToAllTabs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	a.account, cmd = a.account.Update(msg)
	cmds = append(cmds, cmd)
	a.key, cmd = a.key.Update(msg)
	cmds = append(cmds, cmd)
	a.logs, cmd = a.logs.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// NewProgram builds the bubbletea program for backend.
// output specifies where bubbletea renders. If nil, defaults to os.Stdout.
// Register NewProgramPrimary(p) as the login primary surface before Run.
func NewProgram(backend Backend, hook *LogHook, output io.Writer) *tea.Program {
	if output == nil {
		output = os.Stdout
	}
	return tea.NewProgram(NewApp(backend, hook), tea.WithAltScreen(), tea.WithOutput(output))
}
