// Package server simulates a Genius Gateway event socket.
//
// It serves the same protocol genius-monitor consumes: clients send
// {"event":"subscribe","data":"<event>"} (or unsubscribe) and receive every
// emitted event they are subscribed to. Each client is answered in the
// encoding of its last frame: text frames are JSON, binary frames are
// MessagePack. Clients that have not sent anything yet get Config.Encoding.
//
// A Player replays radio frames through the server as "packet" events and
// follows alarm start/stop frames with "alarm" state changes, which makes it
// possible to exercise the monitor without gateway hardware.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Addr: ":8080"})
//	if err != nil {
//	    return err
//	}
//	player := &server.Player{
//	    Emitter:  srv,
//	    Table:    packet.GeniusTable(),
//	    Frames:   server.DemoFrames(packet.GeniusTable()),
//	    Interval: time.Second,
//	    Loop:     true,
//	}
//	go player.Run(ctx)
//	return srv.Start(ctx) // blocks until ctx is cancelled
//
// # TLS
//
// Setting CertPath and KeyPath serves wss. TLS 1.2 is the minimum version.
//
// # Thread Safety
//
// Emit may be called from any goroutine. Each connection runs in its own
// goroutine and writes to a connection are serialized.
package server
