package firmware

import (
	"errors"
	"fmt"
)

var (
	// ErrFirmwareNotFound is matched by errors.Is when no image exists for a board
	// or the firmware directory does not exist.
	ErrFirmwareNotFound = errors.New("firmware not found")

	// ErrFirmwareAccess is matched by errors.Is when an image exists but cannot be read.
	ErrFirmwareAccess = errors.New("firmware not accessible")
)

// LocateError describes why a firmware image could not be resolved.
type LocateError struct {
	// Kind is ErrFirmwareNotFound or ErrFirmwareAccess
	Kind error
	// Board is "main" or "rear"; empty when the directory itself failed
	Board string
	// Dir is the firmware directory searched
	Dir string
	// Path is the offending file, if any
	Path string
	// Err is the underlying cause, if any
	Err error
}

func (e *LocateError) Error() string {
	var msg string
	switch {
	case e.Board == "":
		msg = fmt.Sprintf("firmware directory %s", e.Dir)
	case e.Path != "":
		msg = fmt.Sprintf("%s firmware %s", e.Board, e.Path)
	default:
		msg = fmt.Sprintf("no %s firmware (%s%s) in %s", e.Board, e.Board+"_*", Suffix, e.Dir)
	}

	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, msg)
}

// Is reports whether target is the error's kind.
func (e *LocateError) Is(target error) bool {
	return target == e.Kind
}

func (e *LocateError) Unwrap() error {
	return e.Err
}
