package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeText(m *chatModel, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestChatModel_SubmitSendsInOrder(t *testing.T) {
	var sent []string
	m := newChatModel("brave-quiet-otter", func(text string) error {
		sent = append(sent, text)
		return nil
	}, make(chan tea.Msg))

	for _, text := range []string{"one", "two", "three"} {
		typeText(m, text)
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}

	if got := strings.Join(sent, ","); got != "one,two,three" {
		t.Fatalf("sent %q", got)
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}
	if len(m.lines) != 3 || m.lines[2].kind != lineSelf || m.lines[2].text != "three" {
		t.Fatalf("unexpected transcript: %+v", m.lines)
	}
}

func TestChatModel_EmptyInputIgnored(t *testing.T) {
	calls := 0
	m := newChatModel("room", func(string) error { calls++; return nil }, make(chan tea.Msg))

	typeText(m, "   ")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if calls != 0 || len(m.lines) != 0 {
		t.Fatalf("blank line was submitted: calls=%d lines=%d", calls, len(m.lines))
	}
}

func TestChatModel_SendErrorShownAsNotice(t *testing.T) {
	m := newChatModel("room", func(string) error { return errors.New("data channel is not open") }, make(chan tea.Msg))

	typeText(m, "early")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.lines) != 1 || m.lines[0].kind != lineSystem {
		t.Fatalf("expected one system line, got %+v", m.lines)
	}
	if !strings.Contains(m.lines[0].text, "not open") {
		t.Fatalf("notice lost the error: %q", m.lines[0].text)
	}
}

func TestChatModel_IncomingAndState(t *testing.T) {
	m := newChatModel("room", func(string) error { return nil }, make(chan tea.Msg))

	if _, cmd := m.Update(stateMsg("connecting")); cmd == nil {
		t.Fatal("state update must keep listening for events")
	}
	m.Update(stateMsg("connecting"))
	m.Update(stateMsg("connected"))
	m.Update(incomingMsg("hi there"))

	want := []chatLine{
		{lineSystem, "connection connecting"},
		{lineSystem, "connection connected"},
		{linePeer, "hi there"},
	}
	if len(m.lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %+v", len(m.lines), len(want), m.lines)
	}
	for i := range want {
		if m.lines[i] != want[i] {
			t.Errorf("line %d: got %+v, want %+v", i, m.lines[i], want[i])
		}
	}

	view := m.View()
	if !strings.Contains(view, "hi there") || !strings.Contains(view, "connected") {
		t.Fatalf("view missing content:\n%s", view)
	}
}

func TestChatModel_QuitKeys(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		m := newChatModel("room", func(string) error { return nil }, make(chan tea.Msg))
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		if cmd == nil {
			t.Fatalf("%v: no quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%v: expected QuitMsg", key)
		}
		if m.View() != "" {
			t.Fatalf("%v: view should be empty after quitting", key)
		}
	}
}

func TestChatModel_WindowResize(t *testing.T) {
	m := newChatModel("room", func(string) error { return nil }, make(chan tea.Msg))
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	if m.viewport.Width != 120 || m.viewport.Height != 40-chromeHeight {
		t.Fatalf("viewport %dx%d", m.viewport.Width, m.viewport.Height)
	}

	m.Update(tea.WindowSizeMsg{Width: 20, Height: 2})
	if m.viewport.Height != 1 {
		t.Fatalf("viewport height should clamp to 1, got %d", m.viewport.Height)
	}
}

func TestWaitForEvent(t *testing.T) {
	events := make(chan tea.Msg, 1)
	events <- incomingMsg("queued")
	if got := waitForEvent(events)(); got != incomingMsg("queued") {
		t.Fatalf("got %#v", got)
	}
}
