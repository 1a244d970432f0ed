package config

import (
	"fmt"
	"time"
)

// Profile is the YAML representation of a device family.
type Profile struct {
	Name           string    `yaml:"name"`
	Description    string    `yaml:"description"`
	VendorMatch    string    `yaml:"vendor_match"`
	Port           int       `yaml:"port"`
	ProbeTimeoutMS int       `yaml:"probe_timeout_ms"`
	Waits          Waits     `yaml:"waits"`
	Endpoints      Endpoints `yaml:"endpoints"`
}

// Waits holds the fixed delays of the update sequence, in milliseconds.
type Waits struct {
	MainProcessingMS int `yaml:"main_processing_ms"`
	RearProcessingMS int `yaml:"rear_processing_ms"`
	RebootSignalMS   int `yaml:"reboot_signal_ms"`
	RearRebootMS     int `yaml:"rear_reboot_ms"`
}

// Endpoints holds the device API paths.
type Endpoints struct {
	Info       string `yaml:"info"`
	MainUpload string `yaml:"main_upload"`
	RearUpload string `yaml:"rear_upload"`
	Reboot     string `yaml:"reboot"`
}

// UpdateConfig is the immutable configuration of one chargerfw process.
// It is built once by Load and passed by value to every component.
type UpdateConfig struct {
	// Port is the device HTTP port.
	Port int

	// VendorMatch is the substring a device name must contain
	// (case-insensitively) to be accepted by the prober.
	VendorMatch string

	// ProbeTimeout bounds the discovery probe request only.
	ProbeTimeout time.Duration

	// MainProcessingWait follows the main board upload.
	MainProcessingWait time.Duration

	// RearProcessingWait follows the rear board upload.
	RearProcessingWait time.Duration

	// RebootSignalWait follows the main board reboot request.
	RebootSignalWait time.Duration

	// RearRebootWait follows the rear board reboot request.
	RearRebootWait time.Duration

	InfoPath       string
	MainUploadPath string
	RearUploadPath string
	RebootPath     string
}

// UpdateConfig converts a profile into its runtime form.
func (p *Profile) UpdateConfig() UpdateConfig {
	return UpdateConfig{
		Port:               p.Port,
		VendorMatch:        p.VendorMatch,
		ProbeTimeout:       ms(p.ProbeTimeoutMS),
		MainProcessingWait: ms(p.Waits.MainProcessingMS),
		RearProcessingWait: ms(p.Waits.RearProcessingMS),
		RebootSignalWait:   ms(p.Waits.RebootSignalMS),
		RearRebootWait:     ms(p.Waits.RearRebootMS),
		InfoPath:           p.Endpoints.Info,
		MainUploadPath:     p.Endpoints.MainUpload,
		RearUploadPath:     p.Endpoints.RearUpload,
		RebootPath:         p.Endpoints.Reboot,
	}
}

// Validate checks that every value the update sequence depends on is present.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}
	if p.VendorMatch == "" {
		return fmt.Errorf("profile %q: vendor_match is required", p.Name)
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("profile %q: port %d out of range", p.Name, p.Port)
	}
	if p.ProbeTimeoutMS <= 0 {
		return fmt.Errorf("profile %q: probe_timeout_ms must be positive", p.Name)
	}

	waits := map[string]int{
		"main_processing_ms": p.Waits.MainProcessingMS,
		"rear_processing_ms": p.Waits.RearProcessingMS,
		"reboot_signal_ms":   p.Waits.RebootSignalMS,
		"rear_reboot_ms":     p.Waits.RearRebootMS,
	}
	for key, value := range waits {
		if value <= 0 {
			return fmt.Errorf("profile %q: waits.%s must be positive", p.Name, key)
		}
	}

	endpoints := map[string]string{
		"info":        p.Endpoints.Info,
		"main_upload": p.Endpoints.MainUpload,
		"rear_upload": p.Endpoints.RearUpload,
		"reboot":      p.Endpoints.Reboot,
	}
	for key, value := range endpoints {
		if value == "" || value[0] != '/' {
			return fmt.Errorf("profile %q: endpoints.%s must be an absolute path", p.Name, key)
		}
	}

	return nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
