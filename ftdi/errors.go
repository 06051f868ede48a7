package ftdi

import "github.com/pkg/errors"

var (
	ErrDeviceNotFound  = errors.New("no ftdi devices detected")
	ErrNotReady        = errors.New("device not ready")
	ErrAlreadyOpen     = errors.New("device already open")
	ErrFrameTooLarge   = errors.New("frame exceeds single transfer limit")
	ErrInvalidBaudRate = errors.New("baud rate out of range")
)

// TransportError is a failed bridge call. Error returns the bridge's own
// message verbatim; Op names the step that failed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
