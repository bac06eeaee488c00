package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hmbacher/genius-gateway/internal/packet"
)

func update(m MonitorModel, msg tea.Msg) MonitorModel {
	next, _ := m.Update(msg)
	return next.(MonitorModel)
}

func newTestMonitor() MonitorModel {
	return update(NewMonitorModel("ws://gw/ws/events"), tea.WindowSizeMsg{Width: 100, Height: 40})
}

func alarmFrame(source byte) []byte {
	data := make([]byte, packet.LenAlarm)
	data[28] = 0x01
	data[35] = source
	return data
}

func packetMsg(data []byte, at time.Time) PacketMsg {
	return PacketMsg{Packet: packet.Interpret(data, packet.GeniusTable()), At: at}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMonitor_FoldsIdenticalFrames(t *testing.T) {
	m := newTestMonitor()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)

	m = update(m, packetMsg(alarmFrame(1), t0))
	m = update(m, packetMsg(alarmFrame(2), t0.Add(time.Second)))
	m = update(m, packetMsg(alarmFrame(1), t0.Add(2*time.Second)))

	if len(m.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(m.entries))
	}
	top := m.entries[0]
	if top.count != 2 {
		t.Errorf("top count = %d, want 2", top.count)
	}
	if !top.first.Equal(t0) || !top.last.Equal(t0.Add(2*time.Second)) {
		t.Errorf("first/last = %v/%v", top.first, top.last)
	}
	if !strings.Contains(m.View(), "×2") {
		t.Error("View() should show the fold counter")
	}
}

func TestMonitor_EvictsOldest(t *testing.T) {
	m := newTestMonitor()
	m.maxEntries = 3

	for i := 0; i < 5; i++ {
		m = update(m, packetMsg(alarmFrame(byte(i)), time.Now()))
	}

	if len(m.entries) != 3 || len(m.byHash) != 3 {
		t.Fatalf("entries = %d, byHash = %d, want 3", len(m.entries), len(m.byHash))
	}
	oldest := packet.Interpret(alarmFrame(0), packet.GeniusTable())
	if _, ok := m.byHash[oldest.Hash()]; ok {
		t.Error("oldest frame should have been evicted")
	}
}

func TestMonitor_SelectionFollowsRow(t *testing.T) {
	m := newTestMonitor()
	for i := 0; i < 3; i++ {
		m = update(m, packetMsg(alarmFrame(byte(i)), time.Now()))
	}
	// Rows: 2, 1, 0. Select the middle one.
	m = update(m, runes("j"))
	if m.selected != 1 {
		t.Fatalf("selected = %d, want 1", m.selected)
	}

	m = update(m, packetMsg(alarmFrame(9), time.Now()))
	if got := m.entries[m.selected].pkt.Data[35]; got != 1 {
		t.Errorf("selection moved to frame %d, want 1", got)
	}

	m = update(m, packetMsg(alarmFrame(1), time.Now()))
	if m.selected != 0 {
		t.Errorf("selected = %d, want 0 after the selected row moved to the top", m.selected)
	}
}

func TestMonitor_Keys(t *testing.T) {
	m := newTestMonitor()
	m = update(m, packetMsg(alarmFrame(1), time.Now()))
	m = update(m, packetMsg(alarmFrame(2), time.Now()))

	m = update(m, tea.KeyMsg{Type: tea.KeyUp})
	if m.selected != 0 {
		t.Errorf("up at the top: selected = %d", m.selected)
	}
	m = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Errorf("down past the end: selected = %d, want 1", m.selected)
	}

	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.details || !strings.Contains(m.View(), "Source detector") {
		t.Error("enter should show packet details")
	}

	m = update(m, runes("c"))
	if len(m.entries) != 0 || m.selected != 0 {
		t.Error("c should clear the list")
	}

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestMonitor_ConnectionAndAlarm(t *testing.T) {
	m := newTestMonitor()

	if !strings.Contains(m.View(), "connecting") {
		t.Error("View() should show connecting before the first open")
	}
	if !strings.Contains(m.View(), "Waiting for packets") {
		t.Error("View() should show the empty state")
	}

	m = update(m, ConnectionMsg{Connected: true})
	if !strings.Contains(m.View(), "connected") {
		t.Error("View() should show connected")
	}

	m = update(m, ConnectionMsg{Connected: false})
	m = update(m, ConnectionMsg{Connected: true})
	if m.disconnects != 1 || !strings.Contains(m.View(), "(1 reconnects)") {
		t.Errorf("disconnects = %d", m.disconnects)
	}

	m = update(m, AlarmMsg{State: packet.AlarmState{IsAlarming: true}})
	if !strings.Contains(m.View(), "ALARM ACTIVE") {
		t.Error("View() should show the alarm banner")
	}
	m = update(m, AlarmMsg{State: packet.AlarmState{IsAlarming: false}})
	if strings.Contains(m.View(), "ALARM ACTIVE") {
		t.Error("alarm banner should disappear")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"0A FF", 10, "0A FF"},
		{"0A FF 00", 5, "0A F…"},
		{"0A", 1, "…"},
		{"0A", 0, ""},
	}

	for _, tt := range tests {
		if got := truncate(tt.s, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}
