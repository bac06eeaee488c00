package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/hmbacher/genius-gateway/internal/logging"
	"github.com/hmbacher/genius-gateway/internal/packet"
	"github.com/hmbacher/genius-gateway/internal/socket"
)

// CurrentVersion is the configuration file format version.
const CurrentVersion = 1

// DefaultGatewayURL is the event socket of a gateway reachable by its
// default mDNS name.
const DefaultGatewayURL = "ws://genius-gateway.local/ws/events"

// DefaultDiscoveryTimeout bounds an mDNS browse.
const DefaultDiscoveryTimeout = 5 * time.Second

// Config represents the entire configuration file.
type Config struct {
	Version   int       `yaml:"version"`
	Gateway   Gateway   `yaml:"gateway"`
	Packets   Packets   `yaml:"packets,omitempty"`
	Logging   Logging   `yaml:"logging,omitempty"`
	Metrics   Metrics   `yaml:"metrics,omitempty"`
	Discovery Discovery `yaml:"discovery,omitempty"`

	// Known gateways keyed by mDNS hostname.
	Known map[string]*KnownGateway `yaml:"known_gateways,omitempty"`
}

// Gateway configures the event socket connection.
type Gateway struct {
	URL            string        `yaml:"url"`
	Encoding       string        `yaml:"encoding"` // binary (msgpack) or text (json)
	LivenessWindow time.Duration `yaml:"liveness_window"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// Packets selects the packet table. An empty Table uses the built-in one.
type Packets struct {
	Table string `yaml:"table,omitempty"`
}

type Logging struct {
	Level string `yaml:"level,omitempty"`
}

// Metrics configures the Prometheus endpoint. Empty Addr disables it.
type Metrics struct {
	Addr string `yaml:"addr,omitempty"`
}

type Discovery struct {
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	HostPattern string        `yaml:"host_pattern,omitempty"` // regexp; first group is the gateway name
}

// KnownGateway is a gateway seen by discovery.
type KnownGateway struct {
	URL      string    `yaml:"url"`
	LastIP   string    `yaml:"last_ip,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Gateway: Gateway{
			URL:            DefaultGatewayURL,
			Encoding:       socket.EncodingBinary.String(),
			LivenessWindow: socket.DefaultLivenessWindow,
			ReconnectDelay: socket.DefaultReconnectDelay,
		},
		Discovery: Discovery{
			Timeout: DefaultDiscoveryTimeout,
		},
		Known: make(map[string]*KnownGateway),
	}
}

// applyDefaults fills fields left empty in a loaded file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Gateway.URL == "" {
		c.Gateway.URL = d.Gateway.URL
	}
	if c.Gateway.Encoding == "" {
		c.Gateway.Encoding = d.Gateway.Encoding
	}
	if c.Gateway.LivenessWindow == 0 {
		c.Gateway.LivenessWindow = d.Gateway.LivenessWindow
	}
	if c.Gateway.ReconnectDelay == 0 {
		c.Gateway.ReconnectDelay = d.Gateway.ReconnectDelay
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = d.Discovery.Timeout
	}
	if c.Known == nil {
		c.Known = make(map[string]*KnownGateway)
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	if c.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion))
	}
	if err := validateURL(c.Gateway.URL); err != nil {
		errs = append(errs, err)
	}
	if _, err := socket.ParseEncoding(c.Gateway.Encoding); err != nil {
		errs = append(errs, err)
	}
	if c.Gateway.LivenessWindow <= 0 {
		errs = append(errs, fmt.Errorf("gateway.liveness_window must be positive, got %s", c.Gateway.LivenessWindow))
	}
	if c.Gateway.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("gateway.reconnect_delay must be positive, got %s", c.Gateway.ReconnectDelay))
	}
	if c.Logging.Level != "" {
		if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Discovery.HostPattern != "" {
		if _, err := regexp.Compile(c.Discovery.HostPattern); err != nil {
			errs = append(errs, fmt.Errorf("discovery.host_pattern: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("gateway.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("gateway.url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("gateway.url: missing host")
	}
	return nil
}

// SocketOptions translates the gateway section into socket options.
func (c *Config) SocketOptions() ([]socket.Option, error) {
	enc, err := socket.ParseEncoding(c.Gateway.Encoding)
	if err != nil {
		return nil, err
	}
	return []socket.Option{
		socket.WithEncoding(enc),
		socket.WithLivenessWindow(c.Gateway.LivenessWindow),
		socket.WithReconnectDelay(c.Gateway.ReconnectDelay),
	}, nil
}

// PacketTable loads the configured packet table or returns the built-in one.
func (c *Config) PacketTable() (packet.Table, error) {
	if c.Packets.Table == "" {
		return packet.GeniusTable(), nil
	}
	return packet.LoadTable(c.Packets.Table)
}

// RememberGateway records a discovered gateway.
func (c *Config) RememberGateway(hostname, url, ip string) {
	if c.Known == nil {
		c.Known = make(map[string]*KnownGateway)
	}
	c.Known[hostname] = &KnownGateway{
		URL:      url,
		LastIP:   ip,
		LastSeen: time.Now(),
	}
}
