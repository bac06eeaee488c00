// Package logging provides structured logging for the gateway client.
//
// It wraps a package-level zap logger with convenience functions for the
// events the transport and the monitor care about: connection lifecycle,
// socket frames in both directions, and raw radio packets.
//
// # Log Levels
//
//   - Debug: frame hex dumps, timer rearms, subscribe/unsubscribe mirroring
//   - Info: connection opened/closed, reconnect attempts
//   - Warn: unresponsive gateway, sends while disconnected, dropped frames
//   - Error: listener panics, encode failures
//
// # Configuration
//
// Logging is silent unless a level is given explicitly or through the
// GENIUS_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Connection Logging
//
//	logging.LogConnection("ws://genius-gateway.local/ws/events", "open")
//	logging.LogSocketMessage(url, "received", websocket.BinaryMessage, payload)
//
// All functions are safe for concurrent use.
package logging
