package packet

import "time"

// Gateway socket events carrying packet data.
const (
	EventPacket = "packet"
	EventAlarm  = "alarm"
)

// RadioFrame is the payload of the "packet" event: one frame as received
// by the gateway's radio.
type RadioFrame struct {
	Data Bytes `json:"data" msgpack:"data"`

	// Timestamp is the gateway's receive time in Unix milliseconds. Zero
	// when the gateway has no synchronized clock.
	Timestamp int64 `json:"timestamp,omitempty" msgpack:"timestamp,omitempty"`
}

// Time returns the receive time, or fallback when the frame carries none.
func (f RadioFrame) Time(fallback time.Time) time.Time {
	if f.Timestamp == 0 {
		return fallback
	}
	return time.UnixMilli(f.Timestamp)
}

// AlarmState is the payload of the "alarm" event.
type AlarmState struct {
	IsAlarming bool `json:"isAlarming" msgpack:"isAlarming"`
}
