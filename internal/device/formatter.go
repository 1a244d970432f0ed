package device

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the device
func (id *Identity) Summary() string {
	return fmt.Sprintf("%s @ %s (FW: %s, S/N: %s)", id.DeviceName, id.IP, id.FirmwareVersion, id.SerialNumber)
}

// FormatCompact returns a short multi-line format suitable for terminal display
func (id *Identity) FormatCompact() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Device:   %s (%s)\n", id.DeviceName, id.IP))
	b.WriteString(fmt.Sprintf("Firmware: %s\n", id.FirmwareVersion))

	return b.String()
}

// FormatDetailed returns the full device information block
func (id *Identity) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("=== Device Information ===\n")
	b.WriteString(fmt.Sprintf("Device Name:    %s\n", id.DeviceName))
	b.WriteString(fmt.Sprintf("IP Address:     %s\n", id.IP))
	b.WriteString(fmt.Sprintf("Firmware:       %s\n", valueOr(id.FirmwareVersion, "(not reported)")))
	b.WriteString(fmt.Sprintf("Serial Number:  %s\n", id.SerialNumber))

	return b.String()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
