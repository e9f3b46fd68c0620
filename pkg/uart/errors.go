package uart

import (
	"errors"
	"fmt"
)

var (
	// ErrReadTimeout indicates Read returned fewer bytes than requested
	// because the timeout expired.
	ErrReadTimeout = errors.New("read timeout")
	// ErrClosed indicates the port is closed.
	ErrClosed = errors.New("port closed")
	// ErrPinConflict indicates TX and RX are assigned the same pin.
	ErrPinConflict = errors.New("TX and RX pins conflict")
)

// Initialization stages reported by InitError.
const (
	StageParamConfig   = "param config"
	StageSetPin        = "set pin"
	StageDriverInstall = "driver install"
)

// InitError is returned when the port can't be configured.
type InitError struct {
	Port  string
	Stage string
	Err   error
}

// Error implements error.
func (e *InitError) Error() string {
	return fmt.Sprintf("uart %s: %s failed: %v", e.Port, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}
