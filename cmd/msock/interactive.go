package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/multisock/socket"
)

type connRow struct {
	err      error
	peer     string
	listener socket.FD
	id       int
	bytes    int64
	open     bool
}

type echoModel struct {
	events   <-chan connEvent
	byID     map[int]*connRow
	listen   []socket.Address
	rows     []*connRow
	table    table.Model
	accepted int
	echoed   int64
}

func newEchoModel(listen []socket.Address, events <-chan connEvent) *echoModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 5},
			{Title: "Peer", Width: 30},
			{Title: "Listener", Width: 9},
			{Title: "Bytes", Width: 10},
			{Title: "State", Width: 24},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return &echoModel{
		events: events,
		byID:   make(map[int]*connRow),
		listen: listen,
		table:  t,
	}
}

func waitForEvent(events <-chan connEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return e
	}
}

func (m *echoModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m *echoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "c":
			m.clearClosed()
			return m, nil
		}

	case tea.WindowSizeMsg:
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}

	case connEvent:
		m.apply(msg)
		return m, waitForEvent(m.events)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *echoModel) apply(e connEvent) {
	row, ok := m.byID[e.id]
	if !ok {
		row = &connRow{id: e.id}
		m.byID[e.id] = row
		m.rows = append(m.rows, row)
	}

	switch {
	case e.opened:
		m.accepted++
		row.peer = e.peer
		row.listener = e.listener
		row.open = true
	case e.closed:
		row.open = false
		row.err = e.err
	}
	if e.bytes > row.bytes {
		m.echoed += e.bytes - row.bytes
		row.bytes = e.bytes
	}
	m.refresh()
}

func (m *echoModel) clearClosed() {
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.open {
			kept = append(kept, r)
			continue
		}
		delete(m.byID, r.id)
	}
	m.rows = kept
	m.refresh()
}

func (m *echoModel) refresh() {
	rows := make([]table.Row, 0, len(m.rows))
	for _, r := range m.rows {
		state := "open"
		switch {
		case r.err != nil:
			state = "error: " + r.err.Error()
		case !r.open:
			state = "closed"
		}
		rows = append(rows, table.Row{
			strconv.Itoa(r.id),
			r.peer,
			strconv.Itoa(int(r.listener)),
			strconv.FormatInt(r.bytes, 10),
			state,
		})
	}
	m.table.SetRows(rows)
}

func (m *echoModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("msock echo"))
	for _, a := range m.listen {
		b.WriteString(" ")
		b.WriteString(addrStyle.Render(a.String()))
	}
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	open := 0
	for _, r := range m.rows {
		if r.open {
			open++
		}
	}
	b.WriteString(fmt.Sprintf("%s accepted • %s open • %s bytes echoed\n",
		familyStyle.Render(strconv.Itoa(m.accepted)),
		familyStyle.Render(strconv.Itoa(open)),
		familyStyle.Render(strconv.FormatInt(m.echoed, 10))))
	b.WriteString(helpStyle.Render("↑/↓ scroll • c clear closed • q quit"))

	return b.String()
}
