package packet

import "fmt"

// Kind selects which specific fields Interpret decodes for a descriptor.
type Kind string

const (
	KindUnknown           Kind = ""
	KindCommissioning     Kind = "commissioning"
	KindDiscoveryRequest  Kind = "discovery-request"
	KindDiscoveryResponse Kind = "discovery-response"
	KindLineTestStart     Kind = "line-test-start"
	KindLineTestStop      Kind = "line-test-stop"
	KindAlarmStart        Kind = "alarm-start"
	KindAlarmStop         Kind = "alarm-stop"
)

// Identifier requires the byte at Offset to equal Value.
type Identifier struct {
	Offset int  `yaml:"offset" json:"offset"`
	Value  byte `yaml:"value" json:"value"`
}

// Descriptor is one recognizable frame shape.
type Descriptor struct {
	Name        string       `yaml:"name" json:"name"`
	Kind        Kind         `yaml:"kind,omitempty" json:"kind,omitempty"`
	Class       string       `yaml:"class,omitempty" json:"class,omitempty"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Length      int          `yaml:"length" json:"length"`
	Identifiers []Identifier `yaml:"identifiers,omitempty" json:"identifiers,omitempty"`
}

// Matches reports whether data has exactly the descriptor's length and every
// identifier byte. An identifier outside data never matches.
func (d *Descriptor) Matches(data []byte) bool {
	if len(data) != d.Length {
		return false
	}
	for _, id := range d.Identifiers {
		if id.Offset < 0 || id.Offset >= len(data) {
			return false
		}
		if data[id.Offset] != id.Value {
			return false
		}
	}
	return true
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (%d bytes)", d.Name, d.Length)
}

// Table is an ordered list of descriptors. Earlier entries win.
type Table []Descriptor

// Classify returns the first descriptor in table that matches data.
// It never fails: an unrecognized frame yields (nil, false).
func Classify(data []byte, table Table) (*Descriptor, bool) {
	for i := range table {
		if table[i].Matches(data) {
			return &table[i], true
		}
	}
	return nil, false
}

// Find returns the descriptor with the given name.
func (t Table) Find(name string) (*Descriptor, bool) {
	for i := range t {
		if t[i].Name == name {
			return &t[i], true
		}
	}
	return nil, false
}

// Descriptor names of the built-in table.
const (
	NameCommissioning     = "Commissioning"
	NameDiscoveryRequest  = "Discovery Request"
	NameDiscoveryResponse = "Discovery Response"
	NameStartLineTest     = "Start Line Test"
	NameStopLineTest      = "Stop Line Test"
	NameStartAlarm        = "Start Alarm"
	NameStopAlarm         = "Stop Alarm"
)

// Frame lengths of the built-in table.
const (
	LenCommissioning     = 37
	LenDiscoveryRequest  = 28
	LenDiscoveryResponse = 32
	LenLineTest          = 29
	LenAlarm             = 36
)

// Identifier offsets of the built-in table.
const (
	posLineTestFlag    = 28
	posAlarmActiveFlag = 28
	posAlarmSilentFlag = 30
)

// GeniusTable returns a fresh copy of the built-in Hekatron Genius table.
func GeniusTable() Table {
	return Table{
		{
			Name:        NameCommissioning,
			Kind:        KindCommissioning,
			Class:       "type-comissioning",
			Description: "Commissioning of new alarm line.",
			Length:      LenCommissioning,
		},
		{
			Name:        NameDiscoveryRequest,
			Kind:        KindDiscoveryRequest,
			Class:       "type-discovery-request",
			Description: "Purpose unknown, possibly a device discovery request.",
			Length:      LenDiscoveryRequest,
		},
		{
			Name:        NameDiscoveryResponse,
			Kind:        KindDiscoveryResponse,
			Class:       "type-discovery-response",
			Description: "Purpose unknown, possibly a device discovery response.",
			Length:      LenDiscoveryResponse,
		},
		{
			Name:        NameStartLineTest,
			Kind:        KindLineTestStart,
			Class:       "type-linetest-start",
			Description: "Packets sent to initiate line test function.",
			Length:      LenLineTest,
			Identifiers: []Identifier{{Offset: posLineTestFlag, Value: 0x06}},
		},
		{
			Name:        NameStopLineTest,
			Kind:        KindLineTestStop,
			Class:       "type-linetest-stop",
			Description: "Packets sent to end line test function.",
			Length:      LenLineTest,
			Identifiers: []Identifier{{Offset: posLineTestFlag, Value: 0x00}},
		},
		{
			Name:        NameStartAlarm,
			Kind:        KindAlarmStart,
			Class:       "type-alarm-start",
			Description: "Packet sent to start/distribute an alarm.",
			Length:      LenAlarm,
			Identifiers: []Identifier{{Offset: posAlarmActiveFlag, Value: 0x01}},
		},
		{
			Name:        NameStopAlarm,
			Kind:        KindAlarmStop,
			Class:       "type-alarm-stop",
			Description: "Packet sent to stop/silence an alarm.",
			Length:      LenAlarm,
			Identifiers: []Identifier{{Offset: posAlarmSilentFlag, Value: 0x01}},
		},
	}
}
