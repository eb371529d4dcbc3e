package serial

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Kind classifies every failure returned by a Port.
type Kind int

const (
	// KindSerial covers configuration and construction failures, and anything
	// not attributable to the other two kinds.
	KindSerial Kind = iota
	// KindIO is an OS-level transport failure on an open device.
	KindIO
	// KindPortNotOpened means the operation needs an open port.
	KindPortNotOpened
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindPortNotOpened:
		return "port not opened"
	default:
		return "serial"
	}
}

// Kind sentinels, matched by errors.Is against any *Error of that kind.
var (
	ErrSerial        = errors.New("serial error")
	ErrIO            = errors.New("serial I/O error")
	ErrPortNotOpened = errors.New("serial port not opened")
)

// Predefined causes for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrNotATerminal     = errors.New("device is not a terminal")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortOpen         = errors.New("serial port is open")
	ErrDisconnected     = errors.New("device reported readable but returned no data")

	// Signal monitoring errors
	ErrSignalTimeout     = errors.New("timeout waiting for signal change")
	ErrInvalidSignalMask = errors.New("invalid signal mask")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)

// Error is the single error type returned by Port operations.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "open", "read"
	Port string // device path, may be empty
	Err  error  // underlying cause
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Port != "" {
		msg += " " + e.Port
	}
	if e.Err == nil {
		return msg + ": " + e.Kind.String()
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes the kind sentinels match.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrSerial:
		return e.Kind == KindSerial
	case ErrIO:
		return e.Kind == KindIO
	case ErrPortNotOpened:
		return e.Kind == KindPortNotOpened
	}
	return false
}

func notOpened(op, port string) error {
	return &Error{Kind: KindPortNotOpened, Op: op, Port: port, Err: ErrPortNotOpened}
}

func ioError(op, port string, err error) error {
	return &Error{Kind: KindIO, Op: op, Port: port, Err: err}
}

func serialError(op, port string, err error) error {
	return &Error{Kind: KindSerial, Op: op, Port: port, Err: err}
}

// openError maps errno values from open(2) onto the predefined causes while
// keeping the errno reachable through errors.Is.
func openError(port string, err error) error {
	var cause error
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		cause = ErrDeviceNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		cause = ErrPermissionDenied
	case errors.Is(err, unix.EBUSY):
		cause = ErrDeviceInUse
	case errors.Is(err, unix.ENOTTY):
		cause = ErrNotATerminal
	default:
		return ioError("open", port, err)
	}
	return ioError("open", port, fmt.Errorf("%w: %w", cause, err))
}

// KindOf reports the kind of err, and false if err is not a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsPortNotOpened reports whether err is a KindPortNotOpened failure.
func IsPortNotOpened(err error) bool { return errors.Is(err, ErrPortNotOpened) }

// IsIOError reports whether err is a KindIO failure.
func IsIOError(err error) bool { return errors.Is(err, ErrIO) }

// IsSerialError reports whether err is a KindSerial failure.
func IsSerialError(err error) bool { return errors.Is(err, ErrSerial) }
