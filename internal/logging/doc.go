// Package logging provides structured logging for chargerfw.
//
// It wraps a zap logger configured for console output on stderr, leaving
// stdout to the styled progress display. The level is taken from the
// CHARGERFW_LOG_LEVEL setting; "off" disables logging.
//
//	if err := logging.Initialize(settings.LogLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Components receive the *zap.Logger from GetLogger as a constructor
// argument rather than calling the package functions directly.
package logging
