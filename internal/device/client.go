package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/voltra/chargerfw/internal/config"
	"github.com/voltra/chargerfw/internal/logging"
	"github.com/voltra/chargerfw/internal/version"
)

// chunkSize bounds each read of a streamed response body.
const chunkSize = 4096

// Client talks to one charger's local HTTP API.
//
// Requests are issued one at a time; the device cannot serve overlapping
// requests, so a Client must not be shared between goroutines.
type Client struct {
	// IP is the device address, used for error context and identities
	IP string

	// BaseURL is the base URL for the device (e.g., "http://192.168.1.100:8000")
	BaseURL string

	// HTTPClient has no overall timeout: uploads and reboots may take as
	// long as the device needs. Only Probe bounds its request.
	HTTPClient *http.Client

	config config.UpdateConfig
	logger *zap.Logger
}

// NewClient creates a client for the device at ip on the configured port
func NewClient(ip string, cfg config.UpdateConfig, logger *zap.Logger) *Client {
	return NewClientWithURL(fmt.Sprintf("http://%s:%d", ip, cfg.Port), cfg, logger)
}

// NewClientWithURL creates a client with a full base URL
func NewClientWithURL(baseURL string, cfg config.UpdateConfig, logger *zap.Logger) *Client {
	ip := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		ip = u.Hostname()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		IP:         ip,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		config:     cfg,
		logger:     logger.With(zap.String("device_ip", ip)),
	}
}

// Probe checks whether the address hosts a supported charger.
//
// Probe never fails: timeouts, connection errors, malformed bodies and
// devices of another vendor all yield nil, distinguished only in the log.
func (c *Client) Probe(ctx context.Context) *Identity {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	identity, err := c.FetchInfo(ctx)
	if err != nil {
		switch {
		case IsParseError(err):
			c.logger.Info("Probe response is not valid device info", zap.Error(err))
		case IsProtocolError(err):
			c.logger.Info("Probe rejected by device", zap.Error(err))
		default:
			c.logger.Info("No device answered the probe", zap.Error(err))
		}
		return nil
	}

	if !identity.MatchesVendor(c.config.VendorMatch) {
		c.logger.Info("Device is not a supported charger",
			zap.String("device_name", identity.DeviceName),
			zap.String("expected", c.config.VendorMatch),
		)
		return nil
	}

	c.logger.Info("Charger found",
		zap.String("device_name", identity.DeviceName),
		zap.String("firmware", identity.FirmwareVersion),
		zap.String("serial", identity.SerialNumber),
	)
	return identity
}

// FetchInfo reads the device info endpoint. Unlike Probe, every failure is
// returned: network errors, non-200 statuses and malformed JSON.
func (c *Client) FetchInfo(ctx context.Context) (*Identity, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.config.InfoPath, nil, 0)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("info request failed", c.IP, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read info response", c.IP, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewProtocolError(resp.StatusCode, c.IP, fmt.Sprintf("info request returned %s", resp.Status))
	}

	identity, err := ParseIdentity(c.IP, body)
	if err != nil {
		return nil, NewParseError("failed to parse info response", c.IP, err)
	}

	return identity, nil
}

// Upload sends a firmware image to the board's upload endpoint.
//
// Content-Length always equals len(data); the device rejects chunked bodies.
// A non-200 answer is returned as an Outcome with OK false, not as an error.
func (c *Client) Upload(ctx context.Context, board Board, data []byte) (*Outcome, error) {
	path, err := c.uploadPath(board)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	c.logger.Info("Uploading firmware",
		zap.String("board", string(board)),
		zap.Int("bytes", len(data)),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("%s upload failed", strings.ToLower(board.Title())), c.IP, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := c.readStreamed(resp.Body, board)
	if err != nil {
		return nil, NewNetworkError("failed to read upload response", c.IP, err)
	}

	return newOutcome(resp, body), nil
}

// Reboot asks the device to reboot one board. The board designation is sent
// both as the "board" query parameter and as the request body.
func (c *Client) Reboot(ctx context.Context, board Board) (*Outcome, error) {
	if !board.Valid() {
		return nil, fmt.Errorf("unknown board %q", string(board))
	}

	payload := string(board)
	path := c.config.RebootPath + "?" + url.Values{"board": {payload}}.Encode()

	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/plain")

	c.logger.Info("Sending reboot", zap.String("board", payload))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("%s reboot failed", strings.ToLower(board.Title())), c.IP, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read reboot response", c.IP, err)
	}

	return newOutcome(resp, body), nil
}

func (c *Client) uploadPath(board Board) (string, error) {
	switch board {
	case BoardMain:
		return c.config.MainUploadPath, nil
	case BoardRear:
		return c.config.RearUploadPath, nil
	default:
		return "", fmt.Errorf("unknown board %q", string(board))
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, length int64) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.ContentLength = length
		if length == 0 {
			req.Body = http.NoBody
		}
	}
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}

// readStreamed collects a response body, logging each chunk as it arrives.
func (c *Client) readStreamed(r io.Reader, board Board) ([]byte, error) {
	var body bytes.Buffer
	buf := make([]byte, chunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			body.Write(buf[:n])
			c.logger.Debug("Device response chunk",
				zap.String("board", string(board)),
				zap.Int("bytes", n),
				zap.String("data", logging.Printable(buf[:n])),
			)
		}
		if errors.Is(err, io.EOF) {
			return body.Bytes(), nil
		}
		if err != nil {
			return body.Bytes(), err
		}
	}
}
