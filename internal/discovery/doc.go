// Package discovery finds chargers on the local network.
//
// Chargers do not advertise a dedicated mDNS service, so discovery runs in
// two phases:
//  1. Browse "_http._tcp" services for a fixed time and collect every unique
//     IPv4 address as a candidate
//  2. Probe each candidate's info endpoint, one at a time, and keep the ones
//     whose device name matches the configured vendor
//
// Probing is sequential: a charger cannot serve overlapping requests, and a
// host may advertise several services on the same address.
//
// # Usage Example
//
//	scanner := discovery.NewScanner(cfg, logger)
//	scanner.Timeout = 5 * time.Second
//	chargers, err := scanner.Scan(ctx)
//	for _, c := range chargers {
//	    fmt.Println(c)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Chargers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
