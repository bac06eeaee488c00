// Package socket implements the client side of the gateway event socket.
//
// A Socket keeps one long-lived WebSocket connection to the gateway and
// multiplexes any number of logical event subscriptions over it. Every frame
// on the wire is an Envelope:
//
//	{"event": "alarm", "data": {...}}
//
// # Encodings
//
// The encoding is chosen once per socket:
//   - EncodingBinary: MessagePack maps in binary frames (default)
//   - EncodingText: JSON objects in text frames
//
// Listeners never see the difference.
//
// # Subscriptions
//
// Registering the first listener for an event sends
// {"event":"subscribe","data":"<event>"}; removing the last one sends
// "unsubscribe". The local events open, close, error, message and
// unresponsive describe the connection itself and are never mirrored.
//
//	stop := s.On("alarm", func(data any) { ... })
//	defer stop()
//
// # Connection Lifecycle
//
//   - open: connected becomes true, the liveness countdown starts
//   - any inbound frame: the liveness countdown restarts
//   - liveness expiry: the connection is dropped with reason "unresponsive"
//   - close: connected becomes false, close listeners get "close:<code>"
//   - after every close a reconnect is attempted after a constant delay
//
// Delivery is at-most-once. Nothing is buffered while disconnected; after a
// reconnect the live subscriptions are sent again.
//
// # Usage Example
//
//	s, err := socket.New("ws://genius-gateway.local/ws/events",
//	    socket.WithEncoding(socket.EncodingBinary),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := s.Start(ctx); err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	socket.Subscribe(s, "alarm", func(state AlarmState) {
//	    fmt.Println("alarming:", state.IsAlarming)
//	})
//
// # Thread Safety
//
// Lifecycle handling, inbound dispatch and both timers run on one event-loop
// goroutine. On, Off and Send are safe from any goroutine, including from
// inside a listener.
package socket
