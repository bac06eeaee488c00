// Package discovery finds Genius gateways on the local network with mDNS.
//
// Gateways advertise their web interface as an "_http._tcp" service. The
// scanner browses that service type and keeps entries whose hostname matches
// a gateway pattern (by default "genius*.local"). Each result carries
// the event socket URL the monitor connects to.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	gateways, err := scanner.Scan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, gw := range gateways {
//	    fmt.Println(gw.Name, gw.EventURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Gateways must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
