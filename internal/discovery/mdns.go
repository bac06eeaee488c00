package discovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/hmbacher/genius-gateway/internal/logging"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type gateways advertise
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for gateway discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the default HTTP port for gateways
	DefaultPort = 80

	// DefaultHostPattern matches gateway hostnames (e.g., "genius-gateway-a1b2.local.")
	DefaultHostPattern = `(?i)^(genius[\w-]*)\.local\.?$`
)

var defaultHostPattern = regexp.MustCompile(DefaultHostPattern)

// Scanner handles mDNS gateway discovery
type Scanner struct {
	// Timeout is the maximum time to wait for gateway discovery
	Timeout time.Duration

	// HostPattern selects gateway hostnames. The first capture group, if
	// any, becomes Gateway.Name.
	HostPattern *regexp.Regexp
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout:     DefaultScanTimeout,
		HostPattern: defaultHostPattern,
	}
}

// WithHostPattern replaces the hostname pattern. An empty pattern keeps the default.
func (s *Scanner) WithHostPattern(pattern string) (*Scanner, error) {
	if pattern == "" {
		return s, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid host pattern: %w", err)
	}
	s.HostPattern = re
	return s, nil
}

// Scan browses for the scanner's timeout and returns every gateway seen,
// sorted by name.
func (s *Scanner) Scan(ctx context.Context) ([]*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]*Gateway)

	err := s.browse(ctx, func(gw *Gateway) bool {
		mu.Lock()
		defer mu.Unlock()
		seen[gw.Hostname] = gw
		return true
	})
	if err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return sortGateways(seen), nil
}

// First returns the first gateway found, or an error once the timeout expires.
func (s *Scanner) First(ctx context.Context) (*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	found := make(chan *Gateway, 1)
	err := s.browse(ctx, func(gw *Gateway) bool {
		select {
		case found <- gw:
		default:
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	select {
	case gw := <-found:
		return gw, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no gateway found within %s", s.Timeout)
	}
}

// browse feeds matching entries to fn until ctx ends or fn returns false.
func (s *Scanner) browse(ctx context.Context, fn func(*Gateway) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				gw := s.parseServiceEntry(entry)
				if gw == nil {
					continue
				}
				logging.Debug("Discovered gateway",
					zap.String("hostname", gw.Hostname),
					zap.String("ip", gw.IP),
				)
				if !fn(gw) {
					return
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Gateway.
// Returns nil if the entry is not a gateway.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Gateway {
	hostname := entry.HostName
	if hostname == "" {
		return nil
	}

	pattern := s.HostPattern
	if pattern == nil {
		pattern = defaultHostPattern
	}
	matches := pattern.FindStringSubmatch(hostname)
	if matches == nil {
		return nil
	}
	name := strings.TrimSuffix(strings.TrimSuffix(hostname, "."), ".local")
	if len(matches) > 1 && matches[1] != "" {
		name = matches[1]
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Gateway{
		Name:         name,
		Hostname:     hostname,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func sortGateways(seen map[string]*Gateway) []*Gateway {
	gateways := make([]*Gateway, 0, len(seen))
	for _, gw := range seen {
		gateways = append(gateways, gw)
	}
	sort.Slice(gateways, func(i, j int) bool {
		if gateways[i].Name != gateways[j].Name {
			return gateways[i].Name < gateways[j].Name
		}
		return gateways[i].Hostname < gateways[j].Hostname
	})
	return gateways
}
