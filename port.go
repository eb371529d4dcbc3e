package serial

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/allbin/go-serialport/internal/monitoring"
)

// Port represents a serial port connection interface
type Port interface {
	// Lifecycle
	Open() error
	Close() error
	IsOpen() bool
	GetPort() string
	SetPort(name string) error

	// Configuration. Setters may be called while closed, in which case the
	// value is applied on the next Open.
	GetConfig() Config
	GetBaudRate() int
	SetBaudRate(rate int) error
	GetByteSize() ByteSize
	SetByteSize(size ByteSize) error
	GetParity() Parity
	SetParity(parity Parity) error
	GetStopBits() StopBits
	SetStopBits(bits StopBits) error
	GetFlowControl() FlowControl
	SetFlowControl(fc FlowControl) error
	GetDTRControl() DTRControl
	GetTimeout() Timeout
	SetTimeout(t Timeout)

	// Data transfer
	Available() (int, error)
	Read(buf []byte) (int, error)
	ReadContext(ctx context.Context, buf []byte) (int, error)
	ReadLine(maxSize int, eol string) (string, error)
	ReadLines(maxSize int, eol string) ([]string, error)
	Write(data []byte) (int, error)
	WriteString(s string) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)
	Flush() error
	FlushInput() error
	FlushOutput() error
	Drain() error
	SendBreak(d time.Duration) error
	SetBreak(level bool) error

	// Modem signal control and monitoring
	SetRTS(level bool) error
	GetRTS() (bool, error)
	SetDTR(level bool) error
	GetDTR() (bool, error)
	GetCTS() (bool, error)
	GetDSR() (bool, error)
	GetRI() (bool, error)
	GetCD() (bool, error)
	GetModemSignals() (ModemSignals, error)
	WaitForChange() error
	WaitForSignalChange(mask SignalMask, timeout time.Duration) (ModemSignals, SignalMask, error)
	WaitForSignalChangeContext(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error)
}

// port is the concrete implementation of the Port interface.
//
// Transfers and line queries hold mu for reading, so Close waits for them.
// Configuration changes hold it for writing.
type port struct {
	mu     sync.RWMutex
	fd     int
	name   string
	config Config
	open   bool
}

// Ensure port implements Port interface at compile time
var _ Port = (*port)(nil)

var errEmptyPortName = fmt.Errorf("%w: empty port name", ErrInvalidConfig)

// New builds a port from the default configuration and opts. When name is
// not empty the device is opened before New returns; an open failure is
// returned and no handle is kept. An empty name gives a closed port that can
// be configured, named with SetPort and opened later.
func New(name string, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, serialError("new", name, err)
		}
	}

	p := &port{fd: -1, name: name, config: config}
	if name == "" {
		return p, nil
	}
	if err := p.Open(); err != nil {
		return nil, err
	}
	return p, nil
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	if device == "" {
		return nil, serialError("open", "", errEmptyPortName)
	}
	return New(device, opts...)
}

func (p *port) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.name == "" {
		return serialError("open", "", errEmptyPortName)
	}
	if p.open {
		return serialError("open", p.name, ErrPortOpen)
	}
	if err := p.config.Validate(); err != nil {
		return serialError("open", p.name, err)
	}

	fd, err := unix.Open(p.name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return openError(p.name, err)
	}
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		return openError(p.name, err)
	}
	if err := configurePort(fd, p.config); err != nil {
		unix.Close(fd)
		return openError(p.name, err)
	}

	p.applyLines(fd)
	p.fd = fd
	p.open = true
	monitoring.Logf("serial: opened %s at %s", p.name, p.config)
	return nil
}

// applyLines sets the output lines implied by the configuration. Drivers
// without modem control (ptys, some USB bridges) reject these ioctls, so
// failures are logged and the port stays usable.
func (p *port) applyLines(fd int) {
	dtr := p.config.DTRControl != DTRDisable
	if err := setModemBits(fd, unix.TIOCM_DTR, dtr); err != nil {
		monitoring.Logf("serial: %s: set DTR=%t: %v", p.name, dtr, err)
	}
	if p.config.FlowControl == FlowControlHardware {
		if err := setModemBits(fd, unix.TIOCM_RTS, true); err != nil {
			monitoring.Logf("serial: %s: assert RTS: %v", p.name, err)
		}
	}
}

// Close releases the device. Closing a closed port is a no-op. The port is
// marked closed even when the OS reports an error.
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return nil
	}

	err := unix.Close(p.fd)
	p.fd = -1
	p.open = false
	if err != nil {
		return ioError("close", p.name, err)
	}
	monitoring.Logf("serial: closed %s", p.name)
	return nil
}

func (p *port) IsOpen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.open
}

func (p *port) GetPort() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

// SetPort changes the device path. The port must be closed first.
func (p *port) SetPort(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return ioError("set port", p.name, ErrPortOpen)
	}
	p.name = name
	return nil
}

func (p *port) GetConfig() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

func (p *port) GetBaudRate() int { return p.GetConfig().BaudRate }
func (p *port) GetByteSize() ByteSize { return p.GetConfig().ByteSize }
func (p *port) GetParity() Parity { return p.GetConfig().Parity }
func (p *port) GetStopBits() StopBits { return p.GetConfig().StopBits }
func (p *port) GetFlowControl() FlowControl { return p.GetConfig().FlowControl }
func (p *port) GetDTRControl() DTRControl { return p.GetConfig().DTRControl }
func (p *port) GetTimeout() Timeout { return p.GetConfig().Timeout }
func (p *port) SetBaudRate(rate int) error { return p.reconfigure("set baud rate", WithBaudRate(rate)) }
func (p *port) SetByteSize(s ByteSize) error { return p.reconfigure("set byte size", WithByteSize(s)) }
func (p *port) SetParity(v Parity) error { return p.reconfigure("set parity", WithParity(v)) }
func (p *port) SetStopBits(v StopBits) error { return p.reconfigure("set stop bits", WithStopBits(v)) }

func (p *port) SetFlowControl(fc FlowControl) error {
	return p.reconfigure("set flow control", WithFlowControl(fc))
}

func (p *port) SetTimeout(t Timeout) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Timeout = t
}

// reconfigure applies opt to a copy of the configuration, pushes it to the
// device when open, and commits it only if both steps succeed.
func (p *port) reconfigure(op string, opt Option) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.config
	if err := opt(&next); err != nil {
		return serialError(op, p.name, err)
	}
	if p.open {
		if err := configurePort(p.fd, next); err != nil {
			return ioError(op, p.name, err)
		}
		monitoring.Logf("serial: %s reconfigured to %s", p.name, next)
	}
	p.config = next
	return nil
}

// ioctl runs fn against the open descriptor under the read lock.
func (p *port) ioctl(op string, fn func(fd int) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return notOpened(op, p.name)
	}
	if err := fn(p.fd); err != nil {
		return ioError(op, p.name, err)
	}
	return nil
}

// Available returns the number of bytes waiting in the input queue.
func (p *port) Available() (int, error) {
	var n int
	err := p.ioctl("available", func(fd int) error {
		var err error
		n, err = unix.IoctlGetInt(fd, unix.TIOCINQ)
		return err
	})
	return n, err
}

// Flush discards unread input and unwritten output.
func (p *port) Flush() error {
	return p.ioctl("flush", func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
	})
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	return p.ioctl("flush input", func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)
	})
}

// FlushOutput discards any unwritten output data
func (p *port) FlushOutput() error {
	return p.ioctl("flush output", func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCOFLUSH)
	})
}

// Drain waits until all output written to the port has been transmitted
func (p *port) Drain() error {
	return p.ioctl("drain", func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCSBRK, 1)
	})
}

// SendBreak holds the line in the break condition for d.
func (p *port) SendBreak(d time.Duration) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return notOpened("send break", p.name)
	}
	if d < 0 {
		return serialError("send break", p.name, fmt.Errorf("%w: negative break duration %v", ErrInvalidConfig, d))
	}
	if err := unix.IoctlSetInt(p.fd, unix.TIOCSBRK, 0); err != nil {
		return ioError("send break", p.name, err)
	}
	time.Sleep(d)
	if err := unix.IoctlSetInt(p.fd, unix.TIOCCBRK, 0); err != nil {
		return ioError("send break", p.name, err)
	}
	return nil
}

// SetBreak turns the break condition on or off.
func (p *port) SetBreak(level bool) error {
	return p.ioctl("set break", func(fd int) error {
		if level {
			return unix.IoctlSetInt(fd, unix.TIOCSBRK, 0)
		}
		return unix.IoctlSetInt(fd, unix.TIOCCBRK, 0)
	})
}

// SetRTS manually sets the RTS signal state
func (p *port) SetRTS(level bool) error {
	return p.ioctl("set rts", func(fd int) error {
		return setModemBits(fd, unix.TIOCM_RTS, level)
	})
}

// SetDTR manually sets the DTR signal state
func (p *port) SetDTR(level bool) error {
	return p.ioctl("set dtr", func(fd int) error {
		return setModemBits(fd, unix.TIOCM_DTR, level)
	})
}

func (p *port) modemStatus(op string) (int, error) {
	var status int
	err := p.ioctl(op, func(fd int) error {
		var err error
		status, err = getModemStatus(fd)
		return err
	})
	return status, err
}

func (p *port) modemBit(op string, bit int) (bool, error) {
	status, err := p.modemStatus(op)
	if err != nil {
		return false, err
	}
	return status&bit != 0, nil
}

func (p *port) GetRTS() (bool, error) { return p.modemBit("get rts", unix.TIOCM_RTS) }
func (p *port) GetDTR() (bool, error) { return p.modemBit("get dtr", unix.TIOCM_DTR) }
func (p *port) GetCTS() (bool, error) { return p.modemBit("get cts", unix.TIOCM_CTS) }
func (p *port) GetDSR() (bool, error) { return p.modemBit("get dsr", unix.TIOCM_DSR) }
func (p *port) GetRI() (bool, error) { return p.modemBit("get ri", unix.TIOCM_RI) }
func (p *port) GetCD() (bool, error) { return p.modemBit("get cd", unix.TIOCM_CAR) }

// GetModemSignals returns current state of all modem control signals
func (p *port) GetModemSignals() (ModemSignals, error) {
	status, err := p.modemStatus("get modem signals")
	if err != nil {
		return ModemSignals{}, err
	}
	return signalsFromStatus(status), nil
}

// descriptor returns the open fd and name without holding the lock for the
// duration of a long wait.
func (p *port) descriptor(op string) (int, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return -1, p.name, notOpened(op, p.name)
	}
	return p.fd, p.name, nil
}

// WaitForChange blocks with no timeout until CTS, DSR, RI or CD changes.
// Closing the port from another goroutine does not wake it.
func (p *port) WaitForChange() error {
	fd, name, err := p.descriptor("wait for change")
	if err != nil {
		return err
	}

	bits := signalMaskToTIOCM(SignalAll)
	for {
		err := unix.IoctlSetInt(fd, unix.TIOCMIWAIT, bits)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ioError("wait for change", name, err)
		}
		return nil
	}
}

// signalPollInterval is how often the bounded waits sample the modem lines.
// Pulses shorter than this can be missed.
const signalPollInterval = 10 * time.Millisecond

// WaitForSignalChange blocks until any monitored signal changes state or
// timeout elapses. It returns the new signal states and which of the masked
// signals changed.
func (p *port) WaitForSignalChange(mask SignalMask, timeout time.Duration) (ModemSignals, SignalMask, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	signals, changed, err := p.WaitForSignalChangeContext(ctx, mask)
	if err == context.DeadlineExceeded {
		return ModemSignals{}, 0, serialError("wait for signal change", p.GetPort(), ErrSignalTimeout)
	}
	return signals, changed, err
}

// WaitForSignalChangeContext waits with context cancellation support
func (p *port) WaitForSignalChangeContext(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error) {
	const op = "wait for signal change"
	if mask == 0 || mask&^SignalAll != 0 {
		return ModemSignals{}, 0, serialError(op, p.GetPort(), ErrInvalidSignalMask)
	}

	fd, name, err := p.descriptor(op)
	if err != nil {
		return ModemSignals{}, 0, err
	}
	if err := ctx.Err(); err != nil {
		return ModemSignals{}, 0, err
	}

	prev, err := getModemStatus(fd)
	if err != nil {
		return ModemSignals{}, 0, ioError(op, name, err)
	}

	ticker := time.NewTicker(signalPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ModemSignals{}, 0, ctx.Err()
		case <-ticker.C:
		}

		status, err := getModemStatus(fd)
		if err != nil {
			return ModemSignals{}, 0, ioError(op, name, err)
		}
		if changed := detectSignalChanges(prev, status) & mask; changed != 0 {
			return signalsFromStatus(status), changed, nil
		}
		prev = status
	}
}
