package device

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voltra/chargerfw/internal/config"
)

const mockInfoResponse = `{"deviceName":"Voltra Home 22","firmwareVersion":"4.2.1","serialNumber":"VH22-000123"}`

func testConfig() config.UpdateConfig {
	return config.UpdateConfig{
		Port:               8000,
		VendorMatch:        "voltra",
		ProbeTimeout:       200 * time.Millisecond,
		MainProcessingWait: 7000 * time.Millisecond,
		RearProcessingWait: 7000 * time.Millisecond,
		RebootSignalWait:   1500 * time.Millisecond,
		RearRebootWait:     20000 * time.Millisecond,
		InfoPath:           "/api/v2/device/info",
		MainUploadPath:     "/api/v2/device/firmware_charger",
		RearUploadPath:     "/api/v2/device/firmware_rear",
		RebootPath:         "/api/v2/device/reboot",
	}
}

func newTestClient(url string) *Client {
	return NewClientWithURL(url, testConfig(), zap.NewNop())
}

func infoServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Request method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/v2/device/info" {
			t.Errorf("Request path = %s, want /api/v2/device/info", r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// closedURL returns the URL of a server that no longer listens.
func closedURL() string {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

func TestNewClient(t *testing.T) {
	client := NewClient("192.168.1.100", testConfig(), nil)

	if client.BaseURL != "http://192.168.1.100:8000" {
		t.Errorf("BaseURL = %s, want http://192.168.1.100:8000", client.BaseURL)
	}
	if client.IP != "192.168.1.100" {
		t.Errorf("IP = %s, want 192.168.1.100", client.IP)
	}
	if client.HTTPClient.Timeout != 0 {
		t.Errorf("HTTPClient.Timeout = %v, want none", client.HTTPClient.Timeout)
	}
}

func TestFetchInfo_Success(t *testing.T) {
	server := infoServer(t, http.StatusOK, mockInfoResponse)

	identity, err := newTestClient(server.URL).FetchInfo(context.Background())
	if err != nil {
		t.Fatalf("FetchInfo() error = %v, want nil", err)
	}

	if identity.DeviceName != "Voltra Home 22" {
		t.Errorf("DeviceName = %s, want Voltra Home 22", identity.DeviceName)
	}
	if identity.FirmwareVersion != "4.2.1" {
		t.Errorf("FirmwareVersion = %s, want 4.2.1", identity.FirmwareVersion)
	}
	if identity.SerialNumber != "VH22-000123" {
		t.Errorf("SerialNumber = %s, want VH22-000123", identity.SerialNumber)
	}
	if identity.IP != "127.0.0.1" {
		t.Errorf("IP = %s, want 127.0.0.1", identity.IP)
	}
}

func TestFetchInfo_MistypedFields(t *testing.T) {
	server := infoServer(t, http.StatusOK, `{"deviceName":"Voltra Home 22","firmwareVersion":4.2,"serialNumber":123456,"network":"eth0"}`)

	identity, err := newTestClient(server.URL).FetchInfo(context.Background())
	if err != nil {
		t.Fatalf("FetchInfo() error = %v, want nil", err)
	}
	if identity.FirmwareVersion != "4.2" {
		t.Errorf("FirmwareVersion = %s, want 4.2", identity.FirmwareVersion)
	}
	if identity.SerialNumber != "123456" {
		t.Errorf("SerialNumber = %s, want 123456", identity.SerialNumber)
	}
}

func TestFetchInfo_Errors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		server := infoServer(t, http.StatusServiceUnavailable, "busy")
		_, err := newTestClient(server.URL).FetchInfo(context.Background())
		if !IsProtocolError(err) {
			t.Fatalf("error = %v, want protocol error", err)
		}
		if err.(*DeviceError).StatusCode != http.StatusServiceUnavailable {
			t.Errorf("StatusCode = %d, want 503", err.(*DeviceError).StatusCode)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		server := infoServer(t, http.StatusOK, `{"deviceName":`)
		_, err := newTestClient(server.URL).FetchInfo(context.Background())
		if !IsParseError(err) {
			t.Errorf("error = %v, want parse error", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		_, err := newTestClient(closedURL()).FetchInfo(context.Background())
		if !IsNetworkError(err) {
			t.Errorf("error = %v, want network error", err)
		}
	})
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantSerial string
	}{
		{
			name:       "vendor in device name",
			status:     http.StatusOK,
			body:       mockInfoResponse,
			wantSerial: "VH22-000123",
		},
		{
			name:       "vendor in upper case under legacy name field",
			status:     http.StatusOK,
			body:       `{"name":"VOLTRA PRO","firmwareVersion":"3.0","network":{"mac":"AA:BB:CC:DD:EE:FF"}}`,
			wantSerial: "AA:BB:CC:DD:EE:FF",
		},
		{
			name:       "no serial and no MAC",
			status:     http.StatusOK,
			body:       `{"deviceName":"voltra mini"}`,
			wantSerial: UnknownSerial,
		},
		{
			name:       "numeric serial",
			status:     http.StatusOK,
			body:       `{"deviceName":"Voltra Home 22","firmwareVersion":"4.2.1","serialNumber":123456}`,
			wantSerial: "123456",
		},
		{
			name:       "numeric firmware version",
			status:     http.StatusOK,
			body:       `{"deviceName":"Voltra Home 22","firmwareVersion":4.2,"serialNumber":"SN9"}`,
			wantSerial: "SN9",
		},
		{
			name:       "network is a string",
			status:     http.StatusOK,
			body:       `{"deviceName":"Voltra Home 22","network":"eth0"}`,
			wantSerial: UnknownSerial,
		},
		{
			name:   "other vendor",
			status: http.StatusOK,
			body:   `{"deviceName":"Acme Router","serialNumber":"1"}`,
		},
		{
			name:   "malformed JSON",
			status: http.StatusOK,
			body:   `<html>hello</html>`,
		},
		{
			name:   "error status",
			status: http.StatusNotFound,
			body:   mockInfoResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := infoServer(t, tt.status, tt.body)
			identity := newTestClient(server.URL).Probe(context.Background())

			if tt.wantSerial == "" {
				if identity != nil {
					t.Errorf("Probe() = %+v, want nil", identity)
				}
				return
			}
			if identity == nil {
				t.Fatal("Probe() = nil, want identity")
			}
			if identity.SerialNumber != tt.wantSerial {
				t.Errorf("SerialNumber = %s, want %s", identity.SerialNumber, tt.wantSerial)
			}
		})
	}
}

func TestProbe_ConnectionRefused(t *testing.T) {
	if identity := newTestClient(closedURL()).Probe(context.Background()); identity != nil {
		t.Errorf("Probe() = %+v, want nil", identity)
	}
}

func TestProbe_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	identity := newTestClient(server.URL).Probe(context.Background())
	elapsed := time.Since(start)

	if identity != nil {
		t.Errorf("Probe() = %+v, want nil", identity)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Probe() took %v, want it bounded by the probe timeout", elapsed)
	}
}

type capturedRequest struct {
	method           string
	path             string
	query            string
	contentLength    int64
	contentLengthHdr string
	transferEncoding []string
	body             string
}

func captureServer(t *testing.T, status int, reply string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			method:           r.Method,
			path:             r.URL.Path,
			query:            r.URL.RawQuery,
			contentLength:    r.ContentLength,
			contentLengthHdr: r.Header.Get("Content-Length"),
			transferEncoding: r.TransferEncoding,
			body:             string(body),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func TestUpload(t *testing.T) {
	image := []byte(strings.Repeat("\x7fELF", 2500))

	tests := []struct {
		board    Board
		wantPath string
	}{
		{BoardMain, "/api/v2/device/firmware_charger"},
		{BoardRear, "/api/v2/device/firmware_rear"},
	}

	for _, tt := range tests {
		t.Run(string(tt.board), func(t *testing.T) {
			server, captured := captureServer(t, http.StatusOK, "flashing...\ndone\n")

			outcome, err := newTestClient(server.URL).Upload(context.Background(), tt.board, image)
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}
			if !outcome.OK || outcome.Status != http.StatusOK {
				t.Errorf("Outcome = %+v, want OK", outcome)
			}
			if outcome.Body != "flashing...\ndone\n" {
				t.Errorf("Body = %q", outcome.Body)
			}

			if len(*captured) != 1 {
				t.Fatalf("requests = %d, want 1", len(*captured))
			}
			req := (*captured)[0]
			if req.method != http.MethodPost || req.path != tt.wantPath {
				t.Errorf("request = %s %s, want POST %s", req.method, req.path, tt.wantPath)
			}
			if req.contentLength != int64(len(image)) {
				t.Errorf("ContentLength = %d, want %d", req.contentLength, len(image))
			}
			if len(req.transferEncoding) != 0 {
				t.Errorf("TransferEncoding = %v, want none", req.transferEncoding)
			}
			if req.body != string(image) {
				t.Error("uploaded body does not match the image")
			}
		})
	}
}

func TestUpload_NonOKIsNotAnError(t *testing.T) {
	server, _ := captureServer(t, http.StatusInternalServerError, "signature invalid")

	outcome, err := newTestClient(server.URL).Upload(context.Background(), BoardMain, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Upload() error = %v, want nil", err)
	}
	if outcome.OK {
		t.Error("OK = true, want false")
	}
	if outcome.Status != 500 || outcome.StatusText != "Internal Server Error" {
		t.Errorf("Outcome = %s, want 500 Internal Server Error", outcome)
	}
	if outcome.Body != "signature invalid" {
		t.Errorf("Body = %q", outcome.Body)
	}
}

func TestUpload_CreatedIsNotOK(t *testing.T) {
	server, _ := captureServer(t, http.StatusCreated, "")

	outcome, err := newTestClient(server.URL).Upload(context.Background(), BoardRear, []byte{1})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if outcome.OK {
		t.Error("only 200 counts as OK")
	}
}

func TestUpload_Errors(t *testing.T) {
	if _, err := newTestClient("http://127.0.0.1:1").Upload(context.Background(), Board("front"), []byte{1}); err == nil {
		t.Error("Upload() should reject unknown boards")
	}

	_, err := newTestClient(closedURL()).Upload(context.Background(), BoardMain, []byte{1})
	if !IsNetworkError(err) {
		t.Errorf("error = %v, want network error", err)
	}
}

func TestReboot(t *testing.T) {
	for _, board := range []Board{BoardMain, BoardRear} {
		t.Run(string(board), func(t *testing.T) {
			server, captured := captureServer(t, http.StatusOK, "rebooting")

			outcome, err := newTestClient(server.URL).Reboot(context.Background(), board)
			if err != nil {
				t.Fatalf("Reboot() error = %v", err)
			}
			if !outcome.OK {
				t.Errorf("Outcome = %s, want OK", outcome)
			}

			req := (*captured)[0]
			if req.path != "/api/v2/device/reboot" {
				t.Errorf("path = %s", req.path)
			}
			if req.query != "board="+string(board) {
				t.Errorf("query = %s, want board=%s", req.query, board)
			}
			if req.body != string(board) {
				t.Errorf("body = %q, want %q", req.body, board)
			}
			if req.contentLength != 4 || req.contentLengthHdr != "4" {
				t.Errorf("Content-Length = %d (%q), want 4", req.contentLength, req.contentLengthHdr)
			}
		})
	}
}

func TestReboot_UnknownBoard(t *testing.T) {
	server, captured := captureServer(t, http.StatusOK, "")
	client := newTestClient(server.URL)

	// Unknown boards are refused before any request is made.
	if _, err := client.Reboot(context.Background(), Board("auxiliary")); err == nil {
		t.Fatal("Reboot() should reject unknown boards")
	}
	if len(*captured) != 0 {
		t.Errorf("requests = %d, want 0", len(*captured))
	}
}
