package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (reset, unreachable, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeProtocol indicates the device answered with a non-200 status
	ErrTypeProtocol
	// ErrTypeParse indicates a malformed response body
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents an error that occurred during device communication
type DeviceError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (protocol errors only)
	DeviceIP   string    // Device IP address (for context)
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed DeviceError
func ClassifyNetworkError(err error, deviceIP string) *DeviceError {
	if err == nil {
		return nil
	}

	devErr := &DeviceError{
		Type:     ErrTypeNetwork,
		Message:  "Network error occurred",
		DeviceIP: deviceIP,
		Err:      err,
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError

	switch {
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		devErr.Type = ErrTypeTimeout
		devErr.Message = "Request timed out"
	case errors.As(err, &dnsErr):
		devErr.Type = ErrTypeDNS
		devErr.Message = fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name)
	case errors.Is(err, syscall.ECONNREFUSED):
		devErr.Type = ErrTypeConnectionRefused
		devErr.Message = "Device refused connection"
	case errors.Is(err, syscall.EHOSTUNREACH):
		devErr.Message = "Host unreachable"
	case errors.Is(err, syscall.ENETUNREACH):
		devErr.Message = "Network unreachable"
	case errors.Is(err, syscall.ECONNRESET):
		devErr.Message = "Connection reset by device"
	case errors.As(err, &opErr):
		devErr.Message = fmt.Sprintf("%s failed", opErr.Op)
	}

	return devErr
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message, deviceIP string, err error) *DeviceError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	classified := ClassifyNetworkError(err, deviceIP)
	if classified == nil {
		return &DeviceError{Type: ErrTypeNetwork, Message: message, DeviceIP: deviceIP}
	}
	classified.Message = message + ": " + strings.ToLower(classified.Message)
	return classified
}

// NewProtocolError creates an error for a non-200 answer at a required step
func NewProtocolError(statusCode int, deviceIP, message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeProtocol,
		Message:    message,
		StatusCode: statusCode,
		DeviceIP:   deviceIP,
	}
}

// NewParseError creates a parsing error
func NewParseError(message, deviceIP string, err error) *DeviceError {
	return &DeviceError{
		Type:     ErrTypeParse,
		Message:  message,
		DeviceIP: deviceIP,
		Err:      err,
	}
}

func errorType(err error) (ErrorType, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Type, true
	}
	return 0, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	t, ok := errorType(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeTimeout || t == ErrTypeConnectionRefused || t == ErrTypeDNS)
}

// IsProtocolError checks if an error is a non-200 device answer
func IsProtocolError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeProtocol
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeParse
}

// TroubleshootingHints returns user-facing advice for an error.
// Returns nil for errors that did not come from device communication.
func TroubleshootingHints(err error) []string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return nil
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return []string{
			"Check that the charger is powered on",
			"Verify this computer is on the same network as the charger",
			"The charger may still be rebooting, wait a minute and retry",
		}
	case ErrTypeConnectionRefused:
		return []string{
			"The charger's local API is not listening",
			"Verify the IP address belongs to the charger",
			"Power-cycle the charger and retry",
		}
	case ErrTypeDNS:
		return []string{
			"Use the charger's IP address instead of a hostname",
			"Run 'chargerfw scan' to find chargers on the network",
		}
	case ErrTypeProtocol:
		if devErr.StatusCode >= 500 {
			return []string{
				fmt.Sprintf("The charger reported an internal error (HTTP %d)", devErr.StatusCode),
				"Check that the firmware image matches this charger model",
				"Power-cycle the charger before retrying",
			}
		}
		return []string{
			fmt.Sprintf("The charger rejected the request (HTTP %d)", devErr.StatusCode),
			"The charger may not support this update API version",
		}
	case ErrTypeParse:
		return []string{
			"The charger answered with an unexpected body",
			"Verify the IP address belongs to a supported charger",
		}
	default:
		hints := []string{"Check your network connection"}
		if devErr.DeviceIP != "" {
			hints = append(hints, "Try pinging the charger: ping "+devErr.DeviceIP)
		}
		return hints
	}
}
