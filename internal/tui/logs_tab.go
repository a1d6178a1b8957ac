package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
)

// logsTabModel displays log lines captured by the LogHook.
type logsTabModel struct {
	hook       *LogHook
	viewport   viewport.Model
	lines      []LogLine
	maxLines   int
	autoScroll bool
	width      int
	height     int
	ready      bool
	// minLevel is the least severe level shown.
	minLevel log.Level
	// lastAttempt is the most recent login attempt seen in the log.
	lastAttempt string
	// followAttempt hides lines outside lastAttempt.
	followAttempt bool
}

type logLineMsg LogLine

func newLogsTabModel(hook *LogHook) logsTabModel {
	return logsTabModel{
		hook:       hook,
		maxLines:   2000,
		autoScroll: true,
		minLevel:   log.TraceLevel,
	}
}

func (m logsTabModel) Init() tea.Cmd {
	if m.hook == nil {
		return nil
	}
	return m.waitForLog
}

func (m logsTabModel) waitForLog() tea.Msg {
	line, ok := <-m.hook.Chan()
	if !ok {
		return nil
	}
	return logLineMsg(line)
}

func (m logsTabModel) Update(msg tea.Msg) (logsTabModel, tea.Cmd) {
	switch msg := msg.(type) {
	case localeChangedMsg:
		m.setContent()
		return m, nil
	case logLineMsg:
		line := LogLine(msg)
		if line.AttemptID != "" {
			m.lastAttempt = line.AttemptID
		}
		m.lines = append(m.lines, line)
		if len(m.lines) > m.maxLines {
			m.lines = m.lines[len(m.lines)-m.maxLines:]
		}
		m.setContent()
		if m.autoScroll && m.ready {
			m.viewport.GotoBottom()
		}
		return m, m.waitForLog
	case tea.KeyMsg:
		switch msg.String() {
		case "a":
			m.autoScroll = !m.autoScroll
			if m.autoScroll {
				m.viewport.GotoBottom()
			}
			return m, nil
		case "c":
			m.lines = nil
			m.setContent()
			return m, nil
		case "1", "2", "3", "4":
			m.minLevel = filterLevels[msg.String()]
			m.setContent()
			return m, nil
		case "f":
			m.followAttempt = !m.followAttempt
			m.setContent()
			return m, nil
		default:
			wasAtBottom := m.viewport.AtBottom()
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			// If user scrolls up, disable auto-scroll
			if !m.viewport.AtBottom() && wasAtBottom {
				m.autoScroll = false
			}
			// If user scrolls to bottom, re-enable auto-scroll
			if m.viewport.AtBottom() {
				m.autoScroll = true
			}
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *logsTabModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if !m.ready {
		m.viewport = viewport.New(w, h)
		m.viewport.SetContent(m.renderLogs())
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = h
	}
}

func (m *logsTabModel) setContent() {
	if m.ready {
		m.viewport.SetContent(m.renderLogs())
	}
}

func (m logsTabModel) View() string {
	if !m.ready {
		return T("loading")
	}
	return m.viewport.View()
}

func (m logsTabModel) renderLogs() string {
	var sb strings.Builder

	scrollStatus := successStyle.Render(T("logs_auto_scroll"))
	if !m.autoScroll {
		scrollStatus = warningStyle.Render(T("logs_paused"))
	}
	filterLabel := "ALL"
	if m.minLevel < log.TraceLevel {
		filterLabel = strings.ToUpper(levelName(m.minLevel)) + "+"
	}
	if m.followAttempt && m.lastAttempt != "" {
		filterLabel += " #" + m.lastAttempt
	}

	header := fmt.Sprintf(" %s  %s  %s: %s  %s: %d",
		T("logs_title"), scrollStatus, T("logs_filter"), filterLabel, T("logs_lines"), len(m.lines))
	sb.WriteString(titleStyle.Render(header))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(T("logs_help")))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	if len(m.lines) == 0 {
		sb.WriteString(subtitleStyle.Render(T("logs_waiting")))
		return sb.String()
	}

	for _, line := range m.lines {
		if !m.visible(line) {
			continue
		}
		sb.WriteString(styleLine(line))
		sb.WriteString("\n")
	}

	return sb.String()
}

// filterLevels maps the filter keys to the least severe level they show.
var filterLevels = map[string]log.Level{
	"1": log.TraceLevel,
	"2": log.InfoLevel,
	"3": log.WarnLevel,
	"4": log.ErrorLevel,
}

func (m logsTabModel) visible(line LogLine) bool {
	if line.Level > m.minLevel {
		return false
	}
	if m.followAttempt && m.lastAttempt != "" {
		return line.AttemptID == m.lastAttempt
	}
	return true
}

func levelName(level log.Level) string {
	if level == log.WarnLevel {
		return "warn"
	}
	return level.String()
}

func styleLine(line LogLine) string {
	switch {
	case line.Level <= log.ErrorLevel:
		return logErrorStyle.Render(line.Text)
	case line.Level == log.WarnLevel:
		return logWarnStyle.Render(line.Text)
	case line.Level == log.InfoLevel:
		return logInfoStyle.Render(line.Text)
	case line.Level >= log.DebugLevel:
		return logDebugStyle.Render(line.Text)
	}
	return line.Text
}
