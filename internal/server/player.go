package server

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hmbacher/genius-gateway/internal/logging"
	"github.com/hmbacher/genius-gateway/internal/packet"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is the pause between played frames. It stays below
	// the client's default liveness window.
	DefaultInterval = 1 * time.Second

	// DefaultAlarmStateInterval is how often the current alarm state is
	// re-emitted, as the gateway does.
	DefaultAlarmStateInterval = 1 * time.Second
)

// Emitter delivers events to subscribed clients. *Server satisfies it.
type Emitter interface {
	Emit(event string, data any) int
}

// Player replays radio frames the way the gateway forwards them: each frame
// becomes a packet event, and alarm start/stop frames also change the alarm
// state.
type Player struct {
	Emitter  Emitter
	Table    packet.Table
	Frames   [][]byte
	Interval time.Duration
	Loop     bool

	alarming atomic.Bool
}

// Alarming reports the alarm state set by the last played alarm frame.
func (p *Player) Alarming() bool { return p.alarming.Load() }

// RunAlarmState emits the current alarm state every interval until ctx is
// cancelled. Subscribed clients thereby hear from the gateway even while no
// frames are played.
func (p *Player) RunAlarmState(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAlarmStateInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Emitter.Emit(packet.EventAlarm, packet.AlarmState{IsAlarming: p.Alarming()})
		}
	}
}

// Run plays the frames until they are exhausted, or forever with Loop set.
// It returns nil when ctx is cancelled.
func (p *Player) Run(ctx context.Context) error {
	if len(p.Frames) == 0 {
		return errors.New("no frames to play")
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, frame := range p.Frames {
			p.play(frame)
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		if !p.Loop {
			return nil
		}
	}
}

func (p *Player) play(frame []byte) {
	pkt := packet.Interpret(frame, p.Table)
	n := p.Emitter.Emit(packet.EventPacket, packet.RadioFrame{
		Data:      frame,
		Timestamp: time.Now().UnixMilli(),
	})
	logging.Debug("Frame played",
		zap.String("packet", pkt.Name()),
		zap.Int("subscribers", n),
	)

	if pkt.Type == nil {
		return
	}
	switch pkt.Type.Kind {
	case packet.KindAlarmStart:
		p.alarming.Store(true)
		p.Emitter.Emit(packet.EventAlarm, packet.AlarmState{IsAlarming: true})
	case packet.KindAlarmStop:
		p.alarming.Store(false)
		p.Emitter.Emit(packet.EventAlarm, packet.AlarmState{IsAlarming: false})
	}
}

// ReadFrames parses one hex frame per line. Blank lines and lines starting
// with # are skipped.
func ReadFrames(r io.Reader) ([][]byte, error) {
	var frames [][]byte
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		frame, err := packet.ParseHex(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errors.New("no frames found")
	}
	return frames, nil
}

// LoadFrames reads a frame file, see ReadFrames.
func LoadFrames(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame file: %w", err)
	}
	defer f.Close()
	return ReadFrames(f)
}

// Module IDs used by DemoFrames.
const (
	demoDetector  uint32 = 0x00A1B2C3
	demoNeighbour uint32 = 0x00A1B2C4
	demoLine      uint32 = 0x1F2E3D4C
)

// DemoFrames builds one frame per descriptor of table, in table order, with
// plausible module IDs filled in.
func DemoFrames(table packet.Table) [][]byte {
	frames := make([][]byte, 0, len(table))
	for _, d := range table {
		if d.Length <= 0 {
			continue
		}
		frame := make([]byte, d.Length)
		if d.Length >= 23 {
			binary.BigEndian.PutUint32(frame[9:], demoDetector)
			binary.BigEndian.PutUint32(frame[14:], demoNeighbour)
			binary.BigEndian.PutUint32(frame[18:], demoLine)
			frame[22] = 0x0E // one hop
		}
		switch d.Kind {
		case packet.KindCommissioning:
			if d.Length >= 35 {
				binary.BigEndian.PutUint32(frame[28:], demoLine+1)
				frame[32], frame[33], frame[34] = 12, 30, 0
			}
		case packet.KindAlarmStart, packet.KindAlarmStop:
			if d.Length >= 36 {
				binary.BigEndian.PutUint32(frame[32:], demoDetector)
			}
		}
		for _, id := range d.Identifiers {
			if id.Offset >= 0 && id.Offset < len(frame) {
				frame[id.Offset] = id.Value
			}
		}
		frames = append(frames, frame)
	}
	return frames
}
