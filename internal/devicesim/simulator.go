package devicesim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/voltra/chargerfw/internal/config"
)

// Route identifies one simulated endpoint for failure injection.
type Route string

const (
	RouteInfo       Route = "info"
	RouteMainUpload Route = "main_upload"
	RouteRearUpload Route = "rear_upload"
	RouteRebootMain Route = "reboot_main"
	RouteRebootRear Route = "reboot_rear"
)

// Config describes the simulated device.
type Config struct {
	DeviceName      string
	FirmwareVersion string

	// SerialNumber is reported as-is. When empty the MAC is reported under
	// network.mac instead, as older firmware does.
	SerialNumber string
	MAC          string

	// UpdatedFirmwareVersion, if set, replaces FirmwareVersion once the rear
	// board has been rebooted.
	UpdatedFirmwareVersion string

	// Paths are taken from the device profile
	Paths config.UpdateConfig

	// Events receives every call; a new log is created when nil
	Events *EventLog
}

// DefaultConfig returns a simulated charger matching the profile's vendor,
// with a random serial number.
func DefaultConfig(cfg config.UpdateConfig) Config {
	vendor := cfg.VendorMatch
	if vendor != "" {
		vendor = strings.ToUpper(vendor[:1]) + vendor[1:]
	}
	return Config{
		DeviceName:             strings.TrimSpace(vendor + " Simulator"),
		FirmwareVersion:        "1.0.0",
		SerialNumber:           "SIM-" + strings.ToUpper(uuid.NewString()[:8]),
		UpdatedFirmwareVersion: "1.0.1",
		Paths:                  cfg,
	}
}

// Call is one request received by the simulator.
type Call struct {
	Method string
	Path   string
	Board  string
	Bytes  int
	Status int
}

// Simulator is a fake charger. Its handler is safe for concurrent use.
type Simulator struct {
	cfg    Config
	events *EventLog
	logger *zap.Logger

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu       sync.Mutex
	version  string
	failures map[Route]int
	calls    []Call
	images   map[string][]byte
}

// New creates a simulator
func New(cfg Config, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	events := cfg.Events
	if events == nil {
		events = NewEventLog()
	}
	return &Simulator{
		cfg:      cfg,
		events:   events,
		logger:   logger,
		version:  cfg.FirmwareVersion,
		failures: make(map[Route]int),
		images:   make(map[string][]byte),
	}
}

// Fail makes every later request to route answer with status.
// A status of 0 clears the failure.
func (s *Simulator) Fail(route Route, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Calls returns the requests received so far, in order
func (s *Simulator) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Image returns the last firmware image accepted for board
func (s *Simulator) Image(board string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images[board]
}

// FirmwareVersion returns the version currently reported
func (s *Simulator) FirmwareVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Events returns the simulator's event log
func (s *Simulator) Events() *EventLog {
	return s.events
}

// Handler returns the routed HTTP handler
func (s *Simulator) Handler() http.Handler {
	router := httprouter.New()
	s.Register(router)
	return s.track(router)
}

// track counts requests being served and remembers the peak
func (s *Simulator) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		for {
			peak := s.maxInFlight.Load()
			if n <= peak || s.maxInFlight.CompareAndSwap(peak, n) {
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}

// InFlight returns the number of requests currently being served
func (s *Simulator) InFlight() int {
	return int(s.inFlight.Load())
}

// MaxInFlight returns the highest number of requests served at once
func (s *Simulator) MaxInFlight() int {
	return int(s.maxInFlight.Load())
}

// Register adds the device routes to router
func (s *Simulator) Register(router *httprouter.Router) {
	router.GET(s.cfg.Paths.InfoPath, s.handleInfo)
	router.POST(s.cfg.Paths.MainUploadPath, s.handleUpload("main", RouteMainUpload))
	router.POST(s.cfg.Paths.RearUploadPath, s.handleUpload("rear", RouteRearUpload))
	router.POST(s.cfg.Paths.RebootPath, s.handleReboot)
}

// ListenAndServe serves the simulator on addr until ctx is cancelled
func (s *Simulator) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Simulated charger listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("device_name", s.cfg.DeviceName),
		zap.String("firmware", s.cfg.FirmwareVersion),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down simulator")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type infoResponse struct {
	DeviceName      string       `json:"deviceName"`
	FirmwareVersion string       `json:"firmwareVersion"`
	SerialNumber    string       `json:"serialNumber,omitempty"`
	Network         *networkInfo `json:"network,omitempty"`
}

type networkInfo struct {
	MAC string `json:"mac"`
}

func (s *Simulator) handleInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if status, failed := s.injected(RouteInfo); failed {
		s.record(r, "", 0, status)
		http.Error(w, "injected failure", status)
		return
	}

	resp := infoResponse{
		DeviceName:      s.cfg.DeviceName,
		FirmwareVersion: s.FirmwareVersion(),
		SerialNumber:    s.cfg.SerialNumber,
	}
	if resp.SerialNumber == "" && s.cfg.MAC != "" {
		resp.Network = &networkInfo{MAC: s.cfg.MAC}
	}

	s.record(r, "", 0, http.StatusOK)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Simulator) handleUpload(board string, route Route) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if r.ContentLength < 0 || len(r.TransferEncoding) > 0 {
			s.record(r, board, 0, http.StatusLengthRequired)
			http.Error(w, "Content-Length required", http.StatusLengthRequired)
			return
		}

		data, err := io.ReadAll(r.Body)
		if err != nil || int64(len(data)) != r.ContentLength {
			s.record(r, board, len(data), http.StatusBadRequest)
			http.Error(w, "truncated firmware image", http.StatusBadRequest)
			return
		}

		if status, failed := s.injected(route); failed {
			s.record(r, board, len(data), status)
			http.Error(w, "firmware rejected", status)
			return
		}

		s.mu.Lock()
		s.images[board] = data
		s.mu.Unlock()
		s.record(r, board, len(data), http.StatusOK)

		s.logger.Info("Firmware image received",
			zap.String("board", board),
			zap.Int("bytes", len(data)),
		)

		w.Header().Set("Content-Type", "text/plain")
		flusher, _ := w.(http.Flusher)
		for _, line := range []string{
			fmt.Sprintf("received %d bytes\n", len(data)),
			"verifying signature\n",
			"writing flash\n",
			"OK\n",
		} {
			_, _ = io.WriteString(w, line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Simulator) handleReboot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	board := r.URL.Query().Get("board")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.record(r, board, len(body), http.StatusBadRequest)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if string(body) != board {
		s.record(r, board, len(body), http.StatusBadRequest)
		http.Error(w, "board mismatch between query and body", http.StatusBadRequest)
		return
	}

	var route Route
	switch board {
	case "main":
		route = RouteRebootMain
	case "rear":
		route = RouteRebootRear
	default:
		s.record(r, board, len(body), http.StatusBadRequest)
		http.Error(w, "unknown board", http.StatusBadRequest)
		return
	}

	if status, failed := s.injected(route); failed {
		s.record(r, board, len(body), status)
		http.Error(w, "reboot refused", status)
		return
	}

	if board == "rear" && s.cfg.UpdatedFirmwareVersion != "" {
		s.mu.Lock()
		s.version = s.cfg.UpdatedFirmwareVersion
		s.mu.Unlock()
	}

	s.record(r, board, len(body), http.StatusOK)
	s.logger.Info("Reboot accepted", zap.String("board", board))

	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "rebooting "+board+"\n")
}

func (s *Simulator) injected(route Route) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.failures[route]
	return status, ok
}

func (s *Simulator) record(r *http.Request, board string, n, status int) {
	call := Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Board:  board,
		Bytes:  n,
		Status: status,
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	event := call.Method + " " + call.Path
	if board != "" {
		event += " " + board
	}
	s.events.Add("%s -> %d", event, status)
}
