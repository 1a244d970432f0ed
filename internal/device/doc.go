// Package device provides an HTTP client for the charger's local update API.
//
// The charger exposes four endpoints on port 8000:
//
//	GET  /api/v2/device/info             device name, firmware version, serial
//	POST /api/v2/device/firmware_charger main board image (raw bytes)
//	POST /api/v2/device/firmware_rear    rear board image (raw bytes)
//	POST /api/v2/device/reboot?board=X   body is the board designation X
//
// # Probing versus fetching
//
// Probe is used for discovery and never fails: any problem, including a
// device of another vendor, yields nil. FetchInfo is used during an update
// and returns every failure as a *DeviceError so the update can abort.
//
// # Outcomes
//
// Upload and Reboot return an *Outcome for any HTTP answer. Only transport
// failures are errors; a non-200 status is an Outcome with OK false.
//
// # Usage Example
//
//	client := device.NewClient("192.168.1.100", cfg, logger)
//	identity := client.Probe(ctx)
//	if identity == nil {
//	    return errors.New("charger not found")
//	}
//	outcome, err := client.Upload(ctx, device.BoardMain, image)
//
// Requests are strictly sequential: the device firmware cannot serve
// overlapping requests.
package device
