package discovery

import (
	"testing"

	"github.com/voltra/chargerfw/internal/device"
)

func TestCandidate_String(t *testing.T) {
	c := &Candidate{
		Instance: "Voltra Home",
		Hostname: "charger-22.local.",
		IP:       "192.168.4.16",
		Port:     80,
	}

	expected := "Voltra Home (charger-22.local.) at 192.168.4.16:80"
	if c.String() != expected {
		t.Errorf("Candidate.String() = %v, want %v", c.String(), expected)
	}
}

func TestCandidate_GetMetadata(t *testing.T) {
	c := &Candidate{Metadata: map[string]string{"path": "/"}}

	if got := c.GetMetadata("path"); got != "/" {
		t.Errorf("GetMetadata(path) = %q, want /", got)
	}
	if got := c.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %q, want empty", got)
	}
	if got := (&Candidate{}).GetMetadata("anything"); got != "" {
		t.Errorf("GetMetadata() with nil map = %q, want empty", got)
	}
}

func TestCharger_String(t *testing.T) {
	c := &Charger{
		Identity: &device.Identity{
			IP:              "192.168.4.16",
			DeviceName:      "Voltra Home",
			FirmwareVersion: "4.2.1",
			SerialNumber:    "SN1",
		},
	}

	expected := "Voltra Home @ 192.168.4.16 (FW: 4.2.1, S/N: SN1)"
	if c.String() != expected {
		t.Errorf("Charger.String() = %v, want %v", c.String(), expected)
	}
}

func TestCharger_Model(t *testing.T) {
	tests := []struct {
		name    string
		charger *Charger
		want    string
	}{
		{
			name:    "model in TXT record",
			charger: &Charger{Candidate: &Candidate{Metadata: map[string]string{"model": "VH22"}}},
			want:    "VH22",
		},
		{
			name:    "no model key",
			charger: &Charger{Candidate: &Candidate{Metadata: map[string]string{"path": "/"}}},
		},
		{
			name:    "no candidate",
			charger: &Charger{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.charger.Model(); got != tt.want {
				t.Errorf("Model() = %q, want %q", got, tt.want)
			}
		})
	}
}
