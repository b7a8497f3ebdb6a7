// Package tui is the terminal chat surface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"medinsight/internal/app"
	"medinsight/internal/model"
)

// Asker runs one chat turn on a session. *app.ChatService implements it.
type Asker interface {
	Ask(ctx context.Context, session *model.Session, question string) (*app.TurnResult, error)
}

type entry struct {
	message model.Message
	sources []app.Source
}

// turnMsg carries a finished turn back into Update.
type turnMsg struct {
	result *app.TurnResult
	err    error
}

// Model is the Bubble Tea model for the chat screen. While a turn is in
// flight the session belongs to the running command and input is ignored.
type Model struct {
	asker   Asker
	session *model.Session

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	entries  []entry
	summary  string
	status   string
	pending  bool
	ready    bool
}

func New(asker Asker, session *model.Session, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a medical question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		asker:    asker,
		session:  session,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Ready.",
	}
	for _, msg := range session.History() {
		m.entries = append(m.entries, entry{message: msg})
	}
	return m
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, hh := historyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header and summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-hh)
		m.refresh()
		return m, nil

	case turnMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.entries = append(m.entries, entry{message: msg.result.Assistant, sources: msg.result.Sources})
			m.status = "Ready."
			if msg.result.Failed {
				m.status = "The last answer failed, you can keep asking."
			}
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyCtrlL:
			if !m.pending {
				m.session.Messages = nil
				m.entries = nil
				m.status = "Conversation cleared."
				m.refresh()
			}
			return m, nil
		case tea.KeyEnter:
			if m.pending {
				return m, nil
			}
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.pending = true
			m.status = "Generating response..."
			m.entries = append(m.entries, entry{message: model.Message{Role: model.RoleUser, Content: question}})
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.ask(question))
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	asker, session := m.asker, m.session
	return func() tea.Msg {
		result, err := asker.Ask(context.Background(), session, question)
		return turnMsg{result: result, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("MedInsight")
	summary := dimStyle.Render(m.summary)
	history := historyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.pending {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" + history + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	if len(m.entries) == 0 {
		return dimStyle.Render("No messages yet. Ask something like \"What are the symptoms of glaucoma?\"")
	}
	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.message.Role == model.RoleUser {
			b.WriteString(userStyle.Render("You"))
		} else {
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(e.message.Content))
		for _, src := range e.sources {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("  • %s (%s) %.2f", src.Document.Title, src.Document.Source, src.Score)))
		}
	}
	return b.String()
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
