package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hmbacher/genius-gateway/internal/packet"
)

// DefaultMaxEntries bounds the packet list.
const DefaultMaxEntries = 200

// ConnectionMsg reports a change of the gateway connection.
type ConnectionMsg struct {
	Connected bool
}

// PacketMsg delivers one received radio frame.
type PacketMsg struct {
	Packet packet.Packet
	At     time.Time
}

// AlarmMsg delivers the gateway's alarm state.
type AlarmMsg struct {
	State packet.AlarmState
}

// monitorKeyMap defines key bindings for the monitor screen
type monitorKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Details key.Binding
	Clear   key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Details, k.Clear, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Details},
		{k.Clear, k.Quit},
	}
}

func defaultMonitorKeys() monitorKeyMap {
	return monitorKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Details: key.NewBinding(
			key.WithKeys("enter", "d"),
			key.WithHelp("enter", "details"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// entry is a distinct frame and how often it was received.
type entry struct {
	pkt   packet.Packet
	hash  uint64
	count int
	first time.Time
	last  time.Time
}

// MonitorModel is the live packet view. Identical frames are folded into
// one row with a counter; the newest row is on top.
type MonitorModel struct {
	url         string
	connected   bool
	disconnects int
	alarming    bool

	entries    []*entry
	byHash     map[uint64]*entry
	maxEntries int
	selected   int
	details    bool

	width  int
	height int

	spinner spinner.Model
	help    help.Model
	keys    monitorKeyMap
}

// NewMonitorModel creates a monitor for the gateway at url.
func NewMonitorModel(url string) MonitorModel {
	width, height := GetTerminalSize()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = DisconnectedStyle

	return MonitorModel{
		url:        url,
		byHash:     make(map[uint64]*entry),
		maxEntries: DefaultMaxEntries,
		width:      width,
		height:     height,
		spinner:    s,
		help:       help.New(),
		keys:       defaultMonitorKeys(),
	}
}

// Init implements tea.Model
func (m MonitorModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		m.height = msg.Height
		m.help.Width = m.width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.entries)-1 {
				m.selected++
			}
		case key.Matches(msg, m.keys.Details):
			m.details = !m.details
		case key.Matches(msg, m.keys.Clear):
			m.entries = nil
			m.byHash = make(map[uint64]*entry)
			m.selected = 0
		}
		return m, nil

	case ConnectionMsg:
		if m.connected && !msg.Connected {
			m.disconnects++
		}
		m.connected = msg.Connected
		return m, nil

	case AlarmMsg:
		m.alarming = msg.State.IsAlarming
		return m, nil

	case PacketMsg:
		m.record(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// record folds msg into the list and moves its row to the top.
func (m *MonitorModel) record(msg PacketMsg) {
	h := msg.Packet.Hash()

	if e, ok := m.byHash[h]; ok {
		e.count++
		e.last = msg.At
		m.moveToTop(e)
		return
	}

	e := &entry{pkt: msg.Packet, hash: h, count: 1, first: msg.At, last: msg.At}
	m.byHash[h] = e
	m.entries = append([]*entry{e}, m.entries...)
	if len(m.entries) > 1 && m.selected > 0 {
		m.selected++
	}

	if len(m.entries) > m.maxEntries {
		oldest := m.entries[len(m.entries)-1]
		delete(m.byHash, oldest.hash)
		m.entries = m.entries[:len(m.entries)-1]
		if m.selected >= len(m.entries) {
			m.selected = len(m.entries) - 1
		}
	}
}

func (m *MonitorModel) moveToTop(e *entry) {
	for i, cur := range m.entries {
		if cur != e {
			continue
		}
		copy(m.entries[1:i+1], m.entries[:i])
		m.entries[0] = e
		switch {
		case m.selected == i:
			m.selected = 0
		case m.selected > 0 && m.selected < i:
			m.selected++
		}
		return
	}
}

// View implements tea.Model
func (m MonitorModel) View() string {
	var sections []string

	sections = append(sections, m.renderStatus())
	if m.alarming {
		sections = append(sections, AlarmBannerStyle.Render("ALARM ACTIVE"))
	}

	var details string
	if m.details && m.selected < len(m.entries) {
		details = RenderPacket(m.entries[m.selected].pkt, m.width)
	}
	helpView := HelpStyle.Render(m.help.View(m.keys))

	used := len(sections) + 2 + lipgloss.Height(helpView)
	if details != "" {
		used += lipgloss.Height(details)
	}
	sections = append(sections, "", m.renderRows(m.height-used))
	if details != "" {
		sections = append(sections, details)
	}
	sections = append(sections, "", helpView)

	return strings.Join(sections, "\n")
}

func (m MonitorModel) renderStatus() string {
	title := HeaderTitleStyle.Render("GENIUS MONITOR")
	var state string
	if m.connected {
		state = ConnectedStyle.Render(ConnectedMarker + " connected")
	} else {
		state = m.spinner.View() + DisconnectedStyle.Render(" connecting")
	}
	status := fmt.Sprintf("%s  %s  %s", title, state, HexStyle.Render(m.url))
	if m.disconnects > 0 {
		status += CountStyle.Render(fmt.Sprintf("  (%d reconnects)", m.disconnects))
	}
	return status
}

func (m MonitorModel) renderRows(rows int) string {
	if len(m.entries) == 0 {
		return HelpStyle.Render("Waiting for packets...")
	}
	if rows < 1 {
		rows = 1
	}

	// Scroll so the selection stays visible.
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	end := start + rows
	if end > len(m.entries) {
		end = len(m.entries)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(m.entries[i], i == m.selected))
	}
	return strings.Join(lines, "\n")
}

const nameColumn = 20

func (m MonitorModel) renderRow(e *entry, selected bool) string {
	class := ""
	if e.pkt.Type != nil {
		class = e.pkt.Type.Class
	}

	cursor := "  "
	if selected {
		cursor = SelectedRowStyle.Render("→ ")
	}
	name := PacketNameStyle(class).Width(nameColumn).Render(e.pkt.Name())
	count := CountStyle.Width(6).Render(fmt.Sprintf("×%d", e.count))
	prefix := fmt.Sprintf("%s%s  %s %s ", cursor, RowStyle.Render(e.last.Format("15:04:05")), name, count)

	hex := truncate(e.pkt.Data.Hex(), m.width-lipgloss.Width(prefix))
	return prefix + HexStyle.Render(hex)
}

// truncate shortens an ASCII string to width, marking the cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return s[:width-1] + "…"
}
