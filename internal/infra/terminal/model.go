package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voice-chat/internal/domain"
	"voice-chat/internal/infra/surface"
)

const screenWidth = 36

type stateMsg domain.ConversationState

type conversationClosedMsg struct{}

type styles struct {
	frame    lipgloss.Style
	title    lipgloss.Style
	status   lipgloss.Style
	reply    lipgloss.Style
	errorMsg lipgloss.Style
	help     lipgloss.Style
}

func defaultStyles() styles {
	accent := lipgloss.Color("#d97757")
	muted := lipgloss.Color("#8a8a8a")
	return styles{
		frame: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2).
			Width(screenWidth),
		title:    lipgloss.NewStyle().Foreground(accent).Bold(true),
		status:   lipgloss.NewStyle().Bold(true),
		reply:    lipgloss.NewStyle().Width(screenWidth - 4),
		errorMsg: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Width(screenWidth - 4),
		help:     lipgloss.NewStyle().Foreground(muted),
	}
}

// Model renders the conversation state on a small round-ish screen and maps
// keys onto the surface intents.
type Model struct {
	conversation surface.Conversation
	states       <-chan domain.ConversationState
	state        domain.ConversationState
	spinner      spinner.Model
	styles       styles
}

func NewModel(conversation surface.Conversation, states <-chan domain.ConversationState) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		conversation: conversation,
		states:       states,
		state:        conversation.State(),
		spinner:      sp,
		styles:       defaultStyles(),
	}
}

func waitForState(states <-chan domain.ConversationState) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return conversationClosedMsg{}
		}
		return stateMsg(state)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.states), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case " ", "m":
			m.conversation.MicTap()
		case "r":
			m.conversation.Retry()
		case "n":
			m.conversation.AskAnother()
		case "c":
			m.conversation.Reset()
		case "q", "ctrl+c", "esc":
			m.conversation.Stop()
			return m, tea.Quit
		}
		return m, nil

	case stateMsg:
		m.state = domain.ConversationState(msg)
		return m, waitForState(m.states)

	case conversationClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("voice chat"))
	b.WriteString("\n\n")

	switch m.state.Phase {
	case domain.PhaseIdle:
		b.WriteString(m.styles.status.Render("Tap to ask"))
		b.WriteString("\n\n")
		b.WriteString(m.styles.help.Render("space: speak"))
	case domain.PhaseListening:
		b.WriteString(m.styles.status.Render("Listening..."))
	case domain.PhaseLoading:
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), m.styles.status.Render("Thinking...")))
	case domain.PhaseResponded:
		b.WriteString(m.styles.reply.Render(m.state.Text))
		b.WriteString("\n\n")
		b.WriteString(m.styles.help.Render("n: new question  r: ask again"))
	case domain.PhaseFailed:
		b.WriteString(m.styles.errorMsg.Render(m.state.Text))
		b.WriteString("\n\n")
		b.WriteString(m.styles.help.Render("r: retry  space: speak"))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("c: clear  q: quit"))
	return m.styles.frame.Render(b.String()) + "\n"
}
