package socket

import "fmt"

// Local transport events. They describe the connection itself and are never
// mirrored to the gateway as subscriptions.
const (
	EventOpen         = "open"
	EventClose        = "close"
	EventError        = "error"
	EventMessage      = "message"
	EventUnresponsive = "unresponsive"
)

// Control events understood by the gateway's event socket.
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
)

// Close reasons reported in CloseInfo.
const (
	ReasonClose        = "close"
	ReasonUnresponsive = "unresponsive"
)

var reservedEvents = map[string]struct{}{
	EventOpen:         {},
	EventClose:        {},
	EventError:        {},
	EventMessage:      {},
	EventUnresponsive: {},
}

// IsReserved reports whether event is a local transport event.
func IsReserved(event string) bool {
	_, ok := reservedEvents[event]
	return ok
}

// Envelope is the only message shape placed on the wire.
type Envelope struct {
	Event string `json:"event" msgpack:"event"`
	Data  any    `json:"data" msgpack:"data"`
}

func (e Envelope) String() string {
	return fmt.Sprintf("Envelope{event=%q, data=%T}", e.Event, e.Data)
}

// CloseInfo is the payload delivered to "close" listeners.
type CloseInfo struct {
	Reason string `json:"reason" msgpack:"reason"`
	Code   int    `json:"code,omitempty" msgpack:"code,omitempty"`
}

// closeInfo builds the reason tag for a close carrying the given code.
// A zero code yields the generic "close" reason.
func closeInfo(code int) CloseInfo {
	if code == 0 {
		return CloseInfo{Reason: ReasonClose}
	}
	return CloseInfo{Reason: fmt.Sprintf("%s:%d", ReasonClose, code), Code: code}
}
