package main

import (
	stderrors "errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/multisock/socket"
)

func TestEchoModel_TracksConnections(t *testing.T) {
	m := newEchoModel([]socket.Address{socket.UnixAddress("/tmp/echo.sock")}, nil)

	m.Update(connEvent{id: 1, peer: "127.0.0.1:5000", listener: 3, opened: true})
	m.Update(connEvent{id: 2, peer: "[::1]:5001", listener: 4, opened: true})
	m.Update(connEvent{id: 1, bytes: 10})
	m.Update(connEvent{id: 1, bytes: 12, closed: true})
	m.Update(connEvent{id: 2, closed: true, err: stderrors.New("reset")})

	if m.accepted != 2 || m.echoed != 12 {
		t.Errorf("accepted=%d echoed=%d", m.accepted, m.echoed)
	}
	if m.byID[1].open || m.byID[1].bytes != 12 {
		t.Errorf("conn 1 = %+v", m.byID[1])
	}

	view := m.View()
	for _, want := range []string{"unix:/tmp/echo.sock", "127.0.0.1:5000", "error: reset"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if len(m.rows) != 0 {
		t.Errorf("clear kept %d closed rows", len(m.rows))
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}
