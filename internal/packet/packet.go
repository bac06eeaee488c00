package packet

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Field offsets shared by all Genius frames.
const (
	posOriginID = 9
	posSenderID = 14
	posLineID   = 18
	posHops     = 22

	posCommissioningLineID = 28
	posCommissioningHour   = 32
	posCommissioningMinute = 33
	posCommissioningSecond = 34

	posAlarmSourceID = 32
)

// hopsFirst is the hop byte of a frame sent by its origin. Each relay
// decrements it.
const hopsFirst = 0x0F

// GatewayID is the radio module id the gateway uses for its own frames.
const GatewayID uint32 = 0xFFFFFFFE

// GeneralInfo holds the fields present in every recognized Genius frame.
type GeneralInfo struct {
	OriginID uint32 `json:"originId" msgpack:"originId"`
	SenderID uint32 `json:"senderId" msgpack:"senderId"`
	LineID   uint32 `json:"lineId" msgpack:"lineId"`
	Hops     int    `json:"hops" msgpack:"hops"`
}

// CommissioningInfo is decoded from Commissioning frames.
type CommissioningInfo struct {
	NewLineID uint32 `json:"newLineId" msgpack:"newLineId"`
	Time      string `json:"time" msgpack:"time"` // hh:mm:ss as sent by the commissioning device
}

// AlarmStartInfo is decoded from Start Alarm frames.
type AlarmStartInfo struct {
	SourceDetectorID uint32 `json:"sourceDetectorId" msgpack:"sourceDetectorId"`
}

// AlarmStopInfo is decoded from Stop Alarm frames.
type AlarmStopInfo struct {
	SilencingDetectorID uint32 `json:"silencingDetectorId" msgpack:"silencingDetectorId"`
}

// Packet is a classified and decoded frame.
type Packet struct {
	Type    *Descriptor  `json:"type"`
	Data    Bytes        `json:"data"`
	General *GeneralInfo `json:"general,omitempty"`

	// Specific is one of *CommissioningInfo, *AlarmStartInfo or
	// *AlarmStopInfo, or nil.
	Specific any `json:"specific,omitempty"`
}

// Interpret classifies data against table and decodes its fields. Frames
// that match no descriptor carry only their raw bytes.
func Interpret(data []byte, table Table) Packet {
	p := Packet{Data: Bytes(data)}

	d, ok := Classify(data, table)
	if !ok {
		return p
	}
	p.Type = d

	if len(data) > posHops {
		p.General = &GeneralInfo{
			OriginID: be32(data, posOriginID),
			SenderID: be32(data, posSenderID),
			LineID:   be32(data, posLineID),
			Hops:     hopsFirst - int(data[posHops]),
		}
	}

	switch d.Kind {
	case KindCommissioning:
		if len(data) > posCommissioningSecond {
			p.Specific = &CommissioningInfo{
				NewLineID: be32(data, posCommissioningLineID),
				Time: fmt.Sprintf("%02d:%02d:%02d",
					data[posCommissioningHour],
					data[posCommissioningMinute],
					data[posCommissioningSecond]),
			}
		}
	case KindAlarmStart:
		if len(data) >= posAlarmSourceID+4 {
			p.Specific = &AlarmStartInfo{SourceDetectorID: be32(data, posAlarmSourceID)}
		}
	case KindAlarmStop:
		if len(data) >= posAlarmSourceID+4 {
			p.Specific = &AlarmStopInfo{SilencingDetectorID: be32(data, posAlarmSourceID)}
		}
	}

	return p
}

// be32 reads a big-endian uint32 at pos, or 0 if data is too short.
func be32(data []byte, pos int) uint32 {
	if pos < 0 || pos+4 > len(data) {
		return 0
	}
	return binary.BigEndian.Uint32(data[pos : pos+4])
}

// Known reports whether the frame matched a descriptor.
func (p Packet) Known() bool { return p.Type != nil }

// Name returns the descriptor name or "Unknown".
func (p Packet) Name() string {
	if p.Type == nil {
		return "Unknown"
	}
	return p.Type.Name
}

// Hash identifies the frame's bytes so repeated receptions can be folded.
func (p Packet) Hash() uint64 {
	return xxhash.Sum64(p.Data)
}

func (p Packet) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s len=%d", p.Name(), len(p.Data))
	if p.General != nil {
		fmt.Fprintf(&b, " origin=%08X sender=%08X line=%08X hops=%d",
			p.General.OriginID, p.General.SenderID, p.General.LineID, p.General.Hops)
	}
	switch info := p.Specific.(type) {
	case *CommissioningInfo:
		fmt.Fprintf(&b, " new_line=%08X time=%s", info.NewLineID, info.Time)
	case *AlarmStartInfo:
		fmt.Fprintf(&b, " source=%08X", info.SourceDetectorID)
	case *AlarmStopInfo:
		fmt.Fprintf(&b, " silenced_by=%08X", info.SilencingDetectorID)
	}
	return b.String()
}
