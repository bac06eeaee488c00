// Package config manages the genius-monitor configuration file.
//
// The file is YAML and holds the gateway event socket address, the wire
// encoding, transport timings, an optional custom packet table and the
// gateways found by discovery. Command line flags override file values.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/genius-gateway/config.yaml or $HOME/.config/genius-gateway/config.yaml
//   - macOS: $HOME/.config/genius-gateway/config.yaml
//   - Windows: %LOCALAPPDATA%\genius-gateway\config.yaml
//
// # Example
//
//	version: 1
//	gateway:
//	  url: ws://genius-gateway.local/ws/events
//	  encoding: binary
//	  liveness_window: 2s
//	  reconnect_delay: 1s
//	packets:
//	  table: /etc/genius/packets.yaml
//	logging:
//	  level: info
//	metrics:
//	  addr: 127.0.0.1:9464
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts, err := cfg.SocketOptions()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sock, err := socket.New(cfg.Gateway.URL, opts...)
//
// Missing files are not an error: Load returns Default().
package config
