package discovery

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// DefaultEventPath is the gateway's event socket endpoint.
const DefaultEventPath = "/ws/events"

// Gateway represents a discovered Genius gateway
type Gateway struct {
	// Name is the hostname label matched by the host pattern (e.g., "genius-gateway-a1b2")
	Name string

	// Hostname is the mDNS hostname (e.g., "genius-gateway-a1b2.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Metadata contains the mDNS TXT records
	Metadata map[string]string

	// DiscoveredAt is when the gateway was discovered
	DiscoveredAt time.Time
}

func (g *Gateway) String() string {
	return fmt.Sprintf("Genius Gateway %s (%s) at %s", g.Name, g.Hostname, g.hostPort())
}

func (g *Gateway) hostPort() string {
	return net.JoinHostPort(g.IP, strconv.Itoa(g.Port))
}

// BaseURL returns the HTTP base URL for the gateway.
func (g *Gateway) BaseURL() string {
	return "http://" + g.hostPort()
}

// EventURL returns the event socket URL. A "ws_path" TXT record overrides
// DefaultEventPath.
func (g *Gateway) EventURL() string {
	path := g.GetMetadata("ws_path")
	if path == "" {
		path = DefaultEventPath
	}
	u := url.URL{Scheme: "ws", Host: g.hostPort(), Path: path}
	return u.String()
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (g *Gateway) GetMetadata(key string) string {
	if g.Metadata == nil {
		return ""
	}
	return g.Metadata[key]
}
