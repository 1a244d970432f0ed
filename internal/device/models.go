package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Board designates one of the charger's boards. The designation is sent to
// the device verbatim, so its string value is part of the wire protocol.
type Board string

const (
	// BoardMain is the charger (main) board, always updated first
	BoardMain Board = "main"
	// BoardRear is the rear board, downstream of the main board
	BoardRear Board = "rear"
)

// Valid reports whether b is a known board
func (b Board) Valid() bool {
	return b == BoardMain || b == BoardRear
}

// Title returns "Main board" or "Rear board"
func (b Board) Title() string {
	switch b {
	case BoardMain:
		return "Main board"
	case BoardRear:
		return "Rear board"
	default:
		return fmt.Sprintf("Board %q", string(b))
	}
}

// UnknownSerial is reported when the device exposes neither a serial number nor a MAC address
const UnknownSerial = "Unknown"

// Identity is a point-in-time snapshot of a charger's info endpoint.
type Identity struct {
	IP              string `json:"ip"`
	DeviceName      string `json:"deviceName"`
	FirmwareVersion string `json:"firmwareVersion"`
	SerialNumber    string `json:"serialNumber"`
}

// infoPayload matches the JSON returned by the info endpoint.
// Older firmware reports "name" instead of "deviceName" and may omit the
// serial number, in which case the MAC address identifies the unit.
// Fields are kept raw because firmware builds disagree on their types.
type infoPayload struct {
	DeviceName      json.RawMessage `json:"deviceName"`
	Name            json.RawMessage `json:"name"`
	FirmwareVersion json.RawMessage `json:"firmwareVersion"`
	SerialNumber    json.RawMessage `json:"serialNumber"`
	Network         json.RawMessage `json:"network"`
}

// ParseIdentity decodes an info endpoint body. Only a body that is not a
// JSON object is an error; mistyped fields are read as text or ignored.
func ParseIdentity(ip string, data []byte) (*Identity, error) {
	var payload infoPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	identity := &Identity{
		IP:              ip,
		DeviceName:      scalarText(payload.DeviceName),
		FirmwareVersion: scalarText(payload.FirmwareVersion),
		SerialNumber:    scalarText(payload.SerialNumber),
	}

	if identity.DeviceName == "" {
		identity.DeviceName = scalarText(payload.Name)
	}

	if identity.SerialNumber == "" {
		identity.SerialNumber = networkMAC(payload.Network)
	}
	if identity.SerialNumber == "" {
		identity.SerialNumber = UnknownSerial
	}

	return identity, nil
}

// scalarText renders a JSON string, number or bool as text.
// Numbers keep their literal form. Null, objects and arrays give "".
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}

	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// networkMAC returns network.mac, or "" when network is not an object
func networkMAC(raw json.RawMessage) string {
	var network struct {
		MAC json.RawMessage `json:"mac"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &network) != nil {
		return ""
	}
	return scalarText(network.MAC)
}

// MatchesVendor reports whether the device name contains vendor, ignoring case
func (id *Identity) MatchesVendor(vendor string) bool {
	if vendor == "" {
		return false
	}
	return strings.Contains(strings.ToLower(id.DeviceName), strings.ToLower(vendor))
}

// Outcome is the result of one HTTP call to the device. A non-200 status is
// reported here rather than as an error; the caller decides whether to abort.
type Outcome struct {
	OK         bool   `json:"ok"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Body       string `json:"body"`
}

func newOutcome(resp *http.Response, body []byte) *Outcome {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &Outcome{
		OK:         resp.StatusCode == http.StatusOK,
		Status:     resp.StatusCode,
		StatusText: text,
		Body:       string(body),
	}
}

// String formats the outcome as "<status> <text>"
func (o *Outcome) String() string {
	return fmt.Sprintf("%d %s", o.Status, o.StatusText)
}
