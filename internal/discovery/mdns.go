package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/voltra/chargerfw/internal/config"
	"github.com/voltra/chargerfw/internal/device"
)

const (
	// ServiceType is browsed for candidates; chargers expose a plain HTTP API
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default browse duration
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is assumed when an entry advertises no port
	DefaultPort = 80
)

// Scanner discovers chargers with mDNS and the device probe.
type Scanner struct {
	// Timeout is how long to browse before probing
	Timeout time.Duration

	// NewClient builds the client used to probe a candidate.
	// Defaults to device.NewClient on the profile's port.
	NewClient func(ip string) *device.Client

	// OnProbe, if set, is called before each candidate is probed
	OnProbe func(c *Candidate)

	cfg    config.UpdateConfig
	logger *zap.Logger
}

// NewScanner creates a new scanner with default settings
func NewScanner(cfg config.UpdateConfig, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scanner{
		Timeout: DefaultScanTimeout,
		cfg:     cfg,
		logger:  logger,
	}
	s.NewClient = func(ip string) *device.Client {
		return device.NewClient(ip, s.cfg, s.logger)
	}
	return s
}

// Scan browses for candidates, then probes each one in turn.
// Candidates that fail the probe are dropped silently.
func (s *Scanner) Scan(ctx context.Context) ([]*Charger, error) {
	candidates, err := s.Browse(ctx)
	if err != nil {
		return nil, err
	}
	return s.ProbeAll(ctx, candidates), nil
}

// Browse collects unique IPv4 candidates for the scanner's Timeout
func (s *Scanner) Browse(ctx context.Context) ([]*Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []*Candidate, 1)

	go func() {
		done <- s.collect(ctx, entries)
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	candidates := <-done
	s.logger.Info("mDNS browse finished", zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// collect reads entries until ctx ends or the channel closes.
func (s *Scanner) collect(ctx context.Context, entries <-chan *zeroconf.ServiceEntry) []*Candidate {
	var candidates []*Candidate
	seen := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return candidates
		case entry, ok := <-entries:
			if !ok {
				return candidates
			}
			candidate := parseServiceEntry(entry)
			if candidate == nil || seen[candidate.IP] {
				continue
			}
			seen[candidate.IP] = true
			s.logger.Debug("mDNS candidate", zap.String("candidate", candidate.String()))
			candidates = append(candidates, candidate)
		}
	}
}

// ProbeAll probes candidates sequentially and returns the confirmed chargers
func (s *Scanner) ProbeAll(ctx context.Context, candidates []*Candidate) []*Charger {
	var chargers []*Charger
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		if s.OnProbe != nil {
			s.OnProbe(candidate)
		}
		identity := s.NewClient(candidate.IP).Probe(ctx)
		if identity == nil {
			continue
		}
		chargers = append(chargers, &Charger{Identity: identity, Candidate: candidate})
	}
	return chargers
}

// parseServiceEntry converts a zeroconf entry to a candidate.
// Returns nil for entries without an IPv4 address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Candidate {
	if entry == nil || len(entry.AddrIPv4) == 0 {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Candidate{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           entry.AddrIPv4[0].String(),
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
