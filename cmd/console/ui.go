package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Dreyzab/grenzwanderer-sub000/internal/handlers"
)

const scanPlaceholder = "Enter a QR code payload..."

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	selectedChoiceStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("86")).
				Bold(true)

	blockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	markerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// consoleUI is the BubbleTea model that runs the play client.
type consoleUI struct {
	api     *apiClient
	session *handlers.SessionResponse

	selected int
	scanning bool
	input    textinput.Model

	notice string
	err    error
	width  int
	height int
}

type sessionMsg struct {
	session *handlers.SessionResponse
	notice  string
	err     error
}

func newConsoleUI(api *apiClient, session *handlers.SessionResponse) *consoleUI {
	ti := textinput.New()
	ti.Placeholder = scanPlaceholder
	ti.CharLimit = 64

	return &consoleUI{
		api:     api,
		session: session,
		input:   ti,
	}
}

func (m *consoleUI) Init() tea.Cmd {
	return nil
}

func (m *consoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionMsg:
		m.err = msg.err
		m.notice = msg.notice
		if msg.session != nil {
			m.session = msg.session
			m.selected = 0
		}
		return m, nil

	case tea.KeyMsg:
		if m.scanning {
			return m.updateScanning(msg)
		}
		return m.updateBrowsing(msg)
	}

	return m, nil
}

func (m *consoleUI) updateScanning(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.scanning = false
		m.input.Blur()
		return m, nil
	case "enter":
		code := strings.TrimSpace(m.input.Value())
		m.scanning = false
		m.input.SetValue("")
		m.input.Blur()
		if code == "" {
			return m, nil
		}
		return m, m.scanCmd(code)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *consoleUI) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	choices := 0
	if m.session.Scene != nil {
		choices = len(m.session.Scene.Choices)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < choices-1 {
			m.selected++
		}

	case "enter":
		if choices > 0 {
			return m, m.chooseCmd(m.selected)
		}

	case "s":
		m.scanning = true
		m.input.Focus()
		return m, textinput.Blink

	case "r":
		return m, m.resetCmd()

	case "y":
		if err := clipboard.WriteAll(m.session.ID); err != nil {
			m.err = err
		} else {
			m.notice = "Session ID copied to clipboard"
		}
	}

	return m, nil
}

func (m *consoleUI) chooseCmd(index int) tea.Cmd {
	return func() tea.Msg {
		res, err := m.api.resolveChoice(m.session.ID, index)
		if err != nil {
			return sessionMsg{err: err}
		}
		notice := ""
		switch res.Outcome.Kind {
		case "blocked":
			notice = res.Outcome.Reason
			if notice == "" {
				notice = "You can't do that yet."
			}
			return sessionMsg{notice: notice}
		case "exit":
			notice = "Dialogue ended."
		}
		return sessionMsg{session: &res.Session, notice: notice}
	}
}

func (m *consoleUI) scanCmd(code string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.api.scanCode(m.session.ID, code)
		if err != nil {
			return sessionMsg{err: err}
		}
		notice := "Code recognized."
		if res.Result.Committed {
			notice = fmt.Sprintf("Quest advanced: %s -> %s", res.Result.From, res.Result.To)
		}
		return sessionMsg{session: &res.Session, notice: notice}
	}
}

func (m *consoleUI) resetCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := m.api.resetSession(m.session.ID)
		if err != nil {
			return sessionMsg{err: err}
		}
		return sessionMsg{session: res, notice: "New game started."}
	}
}

func (m *consoleUI) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	wrap := width - 4
	if wrap > 76 {
		wrap = 76
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Grenzwanderer"))
	b.WriteString(statusStyle.Render(fmt.Sprintf("  quest: %s", m.session.QuestState)))
	b.WriteString("\n\n")

	if len(m.session.VisibleMarkers) > 0 {
		b.WriteString(markerStyle.Render("Markers: " + strings.Join(m.session.VisibleMarkers, ", ")))
		b.WriteString("\n\n")
	}

	if m.session.Scene != nil {
		if m.session.Scene.Title != "" {
			b.WriteString(speakerStyle.Render(m.session.Scene.Title))
			b.WriteString("\n")
		}
		for _, line := range m.session.Scene.Lines {
			if line.Speaker != "" {
				b.WriteString(speakerStyle.Render(line.Speaker + ": "))
			}
			b.WriteString(textStyle.Render(wordwrap.String(line.Text, wrap)))
			b.WriteString("\n")
		}
		b.WriteString("\n")

		for i, c := range m.session.Scene.Choices {
			cursor := "  "
			style := choiceStyle
			if i == m.selected {
				cursor = "> "
				style = selectedChoiceStyle
			}
			b.WriteString(style.Render(fmt.Sprintf("%s%d. %s", cursor, i+1, c.Text)))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(statusStyle.Render("No active dialogue. Scan a code to begin."))
		b.WriteString("\n")
	}

	b.WriteString("\n")

	if m.scanning {
		b.WriteString("Scan: " + m.input.View())
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(blockedStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render("\n[enter] choose  [s] scan code  [r] new game  [y] copy session id  [q] quit"))

	return b.String()
}
