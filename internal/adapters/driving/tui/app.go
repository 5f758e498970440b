// Package tui provides the interactive chat interface, built on
// bubbletea's Elm architecture.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driving"
)

// entry is one rendered line group in the transcript.
type entry struct {
	role    string // "user", "assistant", "error"
	text    string
	sources int
}

// answerMsg carries the result of an asynchronous Ask call.
type answerMsg struct {
	answer *domain.Answer
	err    error
}

// Model is the bubbletea model for the chat view.
type Model struct {
	chat      driving.Chat
	sessionID string
	styles    *Styles

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	entries []entry
	waiting bool
	ready   bool
	width   int
	height  int
}

// NewModel creates the chat model. An empty sessionID opens a new
// session on the first question.
func NewModel(chat driving.Chat, sessionID string) Model {
	input := textinput.New()
	input.Placeholder = "Ask a question..."
	input.Focus()
	input.CharLimit = 2000

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		chat:      chat,
		sessionID: sessionID,
		styles:    DefaultStyles(),
		input:     input,
		spin:      spin,
	}
}

// Init starts the input cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6
		vpHeight := msg.Height - 6
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.entries = append(m.entries, entry{role: "error", text: msg.err.Error()})
		} else {
			if msg.answer.SessionID != "" {
				m.sessionID = msg.answer.SessionID
			}
			m.entries = append(m.entries, entry{
				role:    "assistant",
				text:    msg.answer.Text,
				sources: len(msg.answer.ChunkIDs),
			})
		}
		m.refreshTranscript()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit sends the current input as a question.
func (m Model) submit() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" || m.waiting {
		return m, nil
	}

	m.entries = append(m.entries, entry{role: "user", text: question})
	m.input.Reset()
	m.waiting = true
	m.refreshTranscript()

	return m, tea.Batch(m.spin.Tick, m.askCmd(question))
}

// askCmd runs the orchestrator turn off the UI loop.
func (m Model) askCmd(question string) tea.Cmd {
	chat := m.chat
	sessionID := m.sessionID
	return func() tea.Msg {
		answer, err := chat.Ask(context.Background(), sessionID, question)
		return answerMsg{answer: answer, err: err}
	}
}

// refreshTranscript re-renders the viewport content and scrolls to
// the bottom.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	var b strings.Builder
	for _, e := range m.entries {
		switch e.role {
		case "user":
			b.WriteString(m.styles.User.Render("You: "))
			b.WriteString(e.text)
		case "assistant":
			b.WriteString(m.styles.Assistant.Render(e.text))
			if e.sources > 0 {
				b.WriteString("\n")
				b.WriteString(m.styles.Muted.Render(fmt.Sprintf("(%d source chunks)", e.sources)))
			}
		case "error":
			b.WriteString(m.styles.Error.Render("Error: " + e.text))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := m.styles.Title.Render("LocalMind")
	if m.waiting {
		title += " " + m.spin.View() + m.styles.Muted.Render("thinking...")
	}

	hint := m.styles.Muted.Render("enter: send • esc: quit")
	inputBox := m.styles.Input.Width(m.width - 2).Render(m.input.View())

	return title + "\n" + m.viewport.View() + "\n" + inputBox + "\n" + hint
}

// Run starts the chat interface and blocks until the user quits.
func Run(chat driving.Chat, sessionID string) error {
	p := tea.NewProgram(NewModel(chat, sessionID), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
