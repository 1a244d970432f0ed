// Package devicesim implements a simulated charger exposing the same local
// HTTP API as the real device.
//
// The simulator serves the info endpoint, accepts firmware uploads for the
// main and rear boards and acknowledges reboots. It is strict where the
// device is strict: uploads must carry an exact Content-Length and reboot
// requests must name the same board in the query and the body.
//
// Every accepted or rejected call is appended to an EventLog, which tests
// share with a fake sleeper to assert the exact order of calls and waits.
//
// Usage:
//
//	sim := devicesim.New(devicesim.DefaultConfig(cfg), logger)
//	server := httptest.NewServer(sim.Handler())
//	defer server.Close()
package devicesim
