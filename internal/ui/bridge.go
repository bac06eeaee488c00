package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hmbacher/genius-gateway/internal/packet"
	"github.com/hmbacher/genius-gateway/internal/socket"
)

// Sender receives monitor messages. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Attach forwards connectivity changes and the gateway's packet and alarm
// events to p. Frames are interpreted against table. The returned function
// removes every listener Attach added.
//
// Send blocks until the program's event loop runs, so call Attach from a
// goroutine started alongside tea.Program.Run.
func Attach(p Sender, s *socket.Socket, table packet.Table) (detach func()) {
	stopStatus := s.Status().Watch(func(connected bool) {
		p.Send(ConnectionMsg{Connected: connected})
	})
	stopPackets := socket.Subscribe(s, packet.EventPacket, func(f packet.RadioFrame) {
		p.Send(PacketMsg{
			Packet: packet.Interpret(f.Data, table),
			At:     f.Time(time.Now()),
		})
	})
	stopAlarm := socket.Subscribe(s, packet.EventAlarm, func(state packet.AlarmState) {
		p.Send(AlarmMsg{State: state})
	})

	return func() {
		stopStatus()
		stopPackets()
		stopAlarm()
	}
}
