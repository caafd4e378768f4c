package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 80
	defaultHeight = 20
	// header, input and help lines around the transcript
	chromeHeight = 5
	eventBuffer  = 64
)

type (
	incomingMsg string
	stateMsg    string
	systemMsg   string
)

type lineKind int

const (
	lineSelf lineKind = iota
	linePeer
	lineSystem
)

type chatLine struct {
	kind lineKind
	text string
}

// ChatUI is the interactive chat screen. Incoming, SetState and Notice are
// safe to call from any goroutine once Run has been started.
type ChatUI struct {
	model  *chatModel
	events chan tea.Msg
	done   chan struct{}
}

// NewChatUI builds the chat screen for a room. send is called on the UI
// goroutine for every submitted line, in submission order.
func NewChatUI(roomID string, send func(string) error) *ChatUI {
	events := make(chan tea.Msg, eventBuffer)
	return &ChatUI{
		model:  newChatModel(roomID, send, events),
		events: events,
		done:   make(chan struct{}),
	}
}

// Run blocks until the user quits or ctx is cancelled.
func (c *ChatUI) Run(ctx context.Context) error {
	defer close(c.done)

	program := tea.NewProgram(c.model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	stop := context.AfterFunc(ctx, program.Quit)
	defer stop()

	_, err := program.Run()
	return err
}

func (c *ChatUI) Incoming(text string) { c.post(incomingMsg(text)) }

func (c *ChatUI) SetState(state string) { c.post(stateMsg(state)) }

// Notice adds a system line to the transcript.
func (c *ChatUI) Notice(text string) { c.post(systemMsg(text)) }

func (c *ChatUI) post(msg tea.Msg) {
	select {
	case c.events <- msg:
	case <-c.done:
	}
}

type chatModel struct {
	roomID   string
	state    string
	send     func(string) error
	events   <-chan tea.Msg
	lines    []chatLine
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	quitting bool
}

func newChatModel(roomID string, send func(string) error, events <-chan tea.Msg) *chatModel {
	in := textinput.New()
	in.Placeholder = "Type a message"
	in.Prompt = "› "
	in.CharLimit = 4096
	in.Width = defaultWidth - 4
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &chatModel{
		roomID:   roomID,
		state:    "new",
		send:     send,
		events:   events,
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		input:    in,
		spinner:  s,
	}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m *chatModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, waitForEvent(m.events))
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit()
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case incomingMsg:
		m.appendLine(linePeer, string(msg))
		return m, waitForEvent(m.events)

	case systemMsg:
		m.appendLine(lineSystem, string(msg))
		return m, waitForEvent(m.events)

	case stateMsg:
		if m.state != string(msg) {
			m.state = string(msg)
			m.appendLine(lineSystem, "connection "+m.state)
		}
		return m, waitForEvent(m.events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) submit() {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return
	}
	m.input.Reset()

	if err := m.send(text); err != nil {
		m.appendLine(lineSystem, fmt.Sprintf("not sent: %v", err))
		return
	}
	m.appendLine(lineSelf, text)
}

func (m *chatModel) appendLine(kind lineKind, text string) {
	m.lines = append(m.lines, chatLine{kind: kind, text: text})
	m.refresh()
}

func (m *chatModel) refresh() {
	rendered := make([]string, len(m.lines))
	for i, l := range m.lines {
		rendered[i] = renderLine(l)
	}
	wrap := lipgloss.NewStyle().Width(m.viewport.Width)
	m.viewport.SetContent(wrap.Render(strings.Join(rendered, "\n")))
	m.viewport.GotoBottom()
}

func renderLine(l chatLine) string {
	switch l.kind {
	case lineSelf:
		return SelfStyle.Render("you") + "  " + l.text
	case linePeer:
		return PeerStyle.Render("peer") + " " + l.text
	default:
		return SystemStyle.Render("· " + l.text)
	}
}

func (m *chatModel) View() string {
	if m.quitting {
		return ""
	}

	status := StateStyle(m.state).Render(m.state)
	if m.state != "connected" {
		status = m.spinner.View() + " " + status
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		TitleStyle.UnsetMarginBottom().Render(fmt.Sprintf("%s %s", IconChat, m.roomID)),
		"  ",
		status,
	)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("enter send • pgup/pgdown scroll • esc quit"))
	return b.String()
}
