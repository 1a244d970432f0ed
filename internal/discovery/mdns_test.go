package discovery

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/voltra/chargerfw/internal/config"
	"github.com/voltra/chargerfw/internal/device"
	"github.com/voltra/chargerfw/internal/devicesim"
)

func testConfig() config.UpdateConfig {
	return config.UpdateConfig{
		Port:           8000,
		VendorMatch:    "voltra",
		ProbeTimeout:   time.Second,
		InfoPath:       "/api/v2/device/info",
		MainUploadPath: "/api/v2/device/firmware_charger",
		RearUploadPath: "/api/v2/device/firmware_rear",
		RebootPath:     "/api/v2/device/reboot",
	}
}

func newEntry(instance, host string, port int, v4 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	entry.HostName = host
	entry.Port = port
	entry.AddrIPv4 = v4
	entry.Text = txt
	return entry
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name:     "IPv4 entry",
			entry:    newEntry("Voltra Home", "charger-22.local.", 80, []net.IP{net.ParseIP("192.168.4.16")}, "path=/"),
			wantIP:   "192.168.4.16",
			wantPort: 80,
		},
		{
			name:     "custom port",
			entry:    newEntry("web", "printer.local.", 631, []net.IP{net.ParseIP("10.0.0.5")}),
			wantIP:   "10.0.0.5",
			wantPort: 631,
		},
		{
			name:     "no port defaults to 80",
			entry:    newEntry("web", "host.local.", 0, []net.IP{net.ParseIP("172.16.0.1")}),
			wantIP:   "172.16.0.1",
			wantPort: 80,
		},
		{
			name:     "first IPv4 address wins",
			entry:    newEntry("web", "host.local.", 80, []net.IP{net.ParseIP("192.168.1.50"), net.ParseIP("192.168.1.51")}),
			wantIP:   "192.168.1.50",
			wantPort: 80,
		},
		{
			name: "IPv6 only",
			entry: func() *zeroconf.ServiceEntry {
				e := newEntry("web", "host.local.", 80, nil)
				e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
				return e
			}(),
			wantNil: true,
		},
		{
			name:    "no address",
			entry:   newEntry("web", "host.local.", 80, nil),
			wantNil: true,
		},
		{
			name:    "nil entry",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if candidate != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", candidate)
				}
				return
			}
			if candidate == nil {
				t.Fatal("parseServiceEntry() = nil, want candidate")
			}
			if candidate.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", candidate.IP, tt.wantIP)
			}
			if candidate.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", candidate.Port, tt.wantPort)
			}
			if candidate.Hostname != tt.entry.HostName || candidate.Instance != tt.entry.Instance {
				t.Errorf("candidate = %+v", candidate)
			}
			if time.Since(candidate.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt is not recent: %v", candidate.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := newEntry("Voltra", "charger.local.", 80, []net.IP{net.ParseIP("192.168.4.16")},
		"path=/", "model=VH22", "flag", "version=1.0")

	candidate := parseServiceEntry(entry)

	expected := map[string]string{
		"path":    "/",
		"model":   "VH22",
		"flag":    "",
		"version": "1.0",
	}
	if len(candidate.Metadata) != len(expected) {
		t.Errorf("Metadata has %d entries, want %d", len(candidate.Metadata), len(expected))
	}
	for key, want := range expected {
		if got, ok := candidate.Metadata[key]; !ok || got != want {
			t.Errorf("Metadata[%q] = %q, want %q", key, got, want)
		}
	}
}

func TestScanner_collect_Dedupes(t *testing.T) {
	scanner := NewScanner(testConfig(), nil)
	entries := make(chan *zeroconf.ServiceEntry, 4)
	entries <- newEntry("web", "a.local.", 80, []net.IP{net.ParseIP("10.0.0.1")})
	entries <- newEntry("api", "a.local.", 8000, []net.IP{net.ParseIP("10.0.0.1")})
	entries <- newEntry("v6", "b.local.", 80, nil)
	entries <- newEntry("web", "c.local.", 80, []net.IP{net.ParseIP("10.0.0.3")})
	close(entries)

	candidates := scanner.collect(context.Background(), entries)

	if len(candidates) != 2 {
		t.Fatalf("candidates = %v, want 2", candidates)
	}
	if candidates[0].IP != "10.0.0.1" || candidates[0].Instance != "web" || candidates[1].IP != "10.0.0.3" {
		t.Errorf("candidates = %v", candidates)
	}
}

func TestScanner_ProbeAll(t *testing.T) {
	cfg := testConfig()

	charger := devicesim.New(devicesim.Config{DeviceName: "VOLTRA Home", FirmwareVersion: "2.1", SerialNumber: "SN1", Paths: cfg}, nil)
	other := devicesim.New(devicesim.Config{DeviceName: "Acme NAS", FirmwareVersion: "7", Paths: cfg}, nil)
	chargerServer := httptest.NewServer(charger.Handler())
	defer chargerServer.Close()
	otherServer := httptest.NewServer(other.Handler())
	defer otherServer.Close()

	urls := map[string]string{
		"10.0.0.1": otherServer.URL,
		"10.0.0.2": chargerServer.URL,
		"10.0.0.3": "http://127.0.0.1:1",
	}

	scanner := NewScanner(cfg, nil)
	scanner.NewClient = func(ip string) *device.Client {
		return device.NewClientWithURL(urls[ip], cfg, nil)
	}
	var probed []string
	scanner.OnProbe = func(c *Candidate) { probed = append(probed, c.IP) }

	candidates := []*Candidate{{IP: "10.0.0.1"}, {IP: "10.0.0.2"}, {IP: "10.0.0.3"}}
	chargers := scanner.ProbeAll(context.Background(), candidates)

	if len(probed) != 3 {
		t.Errorf("probed = %v, want all three candidates", probed)
	}
	if len(chargers) != 1 {
		t.Fatalf("chargers = %v, want 1", chargers)
	}
	if chargers[0].SerialNumber != "SN1" || chargers[0].Candidate != candidates[1] {
		t.Errorf("charger = %+v", chargers[0])
	}
}

func TestScanner_ProbeAll_Cancelled(t *testing.T) {
	scanner := NewScanner(testConfig(), nil)
	scanner.NewClient = func(ip string) *device.Client {
		t.Errorf("unexpected probe of %s", ip)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if chargers := scanner.ProbeAll(ctx, []*Candidate{{IP: "10.0.0.1"}}); len(chargers) != 0 {
		t.Errorf("chargers = %v, want none", chargers)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner(testConfig(), nil)

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
	if client := scanner.NewClient("192.168.1.7"); client.BaseURL != "http://192.168.1.7:8000" {
		t.Errorf("BaseURL = %s, want the profile port", client.BaseURL)
	}
}

// Live mDNS browsing needs a multicast-capable network and is not covered here.
