package discovery

import (
	"fmt"
	"time"

	"github.com/voltra/chargerfw/internal/device"
)

// Candidate is a host that answered the mDNS browse.
type Candidate struct {
	// Instance is the advertised service instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "charger-22.local.")
	Hostname string

	// IP is the IPv4 address
	IP string

	// Port is the advertised HTTP port, not necessarily the update API port
	Port int

	// Metadata contains the mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the candidate was first seen
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the candidate
func (c *Candidate) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", c.Instance, c.Hostname, c.IP, c.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (c *Candidate) GetMetadata(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}

// Charger is a candidate confirmed by the probe.
type Charger struct {
	*device.Identity
	Candidate *Candidate
}

// String returns a one-line description of the charger
func (c *Charger) String() string {
	return c.Identity.Summary()
}

// Model returns the model advertised in the TXT record, if any
func (c *Charger) Model() string {
	if c.Candidate == nil {
		return ""
	}
	return c.Candidate.GetMetadata("model")
}
