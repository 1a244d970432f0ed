// Package config provides the fixed device profile and the process settings
// for chargerfw.
//
// The device profile (port, wait durations, endpoint paths, vendor match) is
// compiled into the binary from profiles/charger.yaml and loaded once into an
// immutable UpdateConfig. Neither flags nor the environment override these
// values.
//
// Settings hold the ambient, user-tunable values (log level, firmware
// directory, simulator listen address) and are read from the environment.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := device.NewClient(ip, cfg, logger)
package config
