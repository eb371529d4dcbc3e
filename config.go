package serial

import "fmt"

// ByteSize is the number of data bits per character.
type ByteSize int

const (
	FiveBits  ByteSize = 5
	SixBits   ByteSize = 6
	SevenBits ByteSize = 7
	EightBits ByteSize = 8
)

// Valid reports whether b is one of the supported sizes.
func (b ByteSize) Valid() bool { return b >= FiveBits && b <= EightBits }

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) Valid() bool { return p >= ParityNone && p <= ParitySpace }

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	}
	return fmt.Sprintf("Parity(%d)", int(p))
}

// StopBits is the stop bit setting. Codes follow the usual numbering,
// with 3 standing for one and a half.
type StopBits int

const (
	StopBitsOne          StopBits = 1
	StopBitsTwo          StopBits = 2
	StopBitsOnePointFive StopBits = 3
)

func (s StopBits) Valid() bool { return s >= StopBitsOne && s <= StopBitsOnePointFive }

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsTwo:
		return "2"
	case StopBitsOnePointFive:
		return "1.5"
	}
	return fmt.Sprintf("StopBits(%d)", int(s))
}

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone     FlowControl = iota
	FlowControlSoftware             // XON/XOFF
	FlowControlHardware             // RTS/CTS
)

func (f FlowControl) Valid() bool { return f >= FlowControlNone && f <= FlowControlHardware }

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "none"
	case FlowControlSoftware:
		return "software"
	case FlowControlHardware:
		return "hardware"
	}
	return fmt.Sprintf("FlowControl(%d)", int(f))
}

// DTRControl decides the DTR line state applied when the port opens.
type DTRControl int

const (
	DTRDisable DTRControl = iota
	DTREnable
	// DTRHandshake asserts DTR while open and lets the driver drop it on
	// close (HUPCL). Linux has no true DTR/DSR handshake.
	DTRHandshake
)

func (d DTRControl) Valid() bool { return d >= DTRDisable && d <= DTRHandshake }

func (d DTRControl) String() string {
	switch d {
	case DTRDisable:
		return "disable"
	case DTREnable:
		return "enable"
	case DTRHandshake:
		return "handshake"
	}
	return fmt.Sprintf("DTRControl(%d)", int(d))
}

// Config holds the configuration for a serial port
type Config struct {
	BaudRate    int
	ByteSize    ByteSize
	Parity      Parity
	StopBits    StopBits
	FlowControl FlowControl
	DTRControl  DTRControl
	Timeout     Timeout
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns 9600 8N1, no flow control, DTR enabled and a zero
// timeout (reads and writes return immediately with what is available).
func DefaultConfig() Config {
	return Config{
		BaudRate:    9600,
		ByteSize:    EightBits,
		Parity:      ParityNone,
		StopBits:    StopBitsOne,
		FlowControl: FlowControlNone,
		DTRControl:  DTREnable,
		Timeout:     Timeout{InterByte: TimeoutMax},
	}
}

// Validate checks every field against its domain.
func (c Config) Validate() error {
	if _, err := getBaudRate(c.BaudRate); err != nil {
		return err
	}
	if !c.ByteSize.Valid() {
		return fmt.Errorf("%w: byte size %d", ErrInvalidConfig, c.ByteSize)
	}
	if !c.Parity.Valid() {
		return fmt.Errorf("%w: parity %d", ErrInvalidConfig, c.Parity)
	}
	if !c.StopBits.Valid() {
		return fmt.Errorf("%w: stop bits %d", ErrInvalidConfig, c.StopBits)
	}
	if !c.FlowControl.Valid() {
		return fmt.Errorf("%w: flow control %d", ErrInvalidConfig, c.FlowControl)
	}
	if !c.DTRControl.Valid() {
		return fmt.Errorf("%w: dtr control %d", ErrInvalidConfig, c.DTRControl)
	}
	return nil
}

// String renders the framing as e.g. "115200 8N1".
func (c Config) String() string {
	return fmt.Sprintf("%d %d%s%s", c.BaudRate, c.ByteSize, parityLetter(c.Parity), c.StopBits)
}

func parityLetter(p Parity) string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	case ParityMark:
		return "M"
	case ParitySpace:
		return "S"
	}
	return "N"
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithByteSize sets the number of data bits (5, 6, 7, or 8)
func WithByteSize(size ByteSize) Option {
	return func(c *Config) error {
		if !size.Valid() {
			return fmt.Errorf("%w: byte size %d", ErrInvalidConfig, size)
		}
		c.ByteSize = size
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if !parity.Valid() {
			return fmt.Errorf("%w: parity %d", ErrInvalidConfig, parity)
		}
		c.Parity = parity
		return nil
	}
}

// WithStopBits sets the stop bits
func WithStopBits(bits StopBits) Option {
	return func(c *Config) error {
		if !bits.Valid() {
			return fmt.Errorf("%w: stop bits %d", ErrInvalidConfig, bits)
		}
		c.StopBits = bits
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		if !fc.Valid() {
			return fmt.Errorf("%w: flow control %d", ErrInvalidConfig, fc)
		}
		c.FlowControl = fc
		return nil
	}
}

// WithDTRControl sets the DTR state applied on open
func WithDTRControl(dc DTRControl) Option {
	return func(c *Config) error {
		if !dc.Valid() {
			return fmt.Errorf("%w: dtr control %d", ErrInvalidConfig, dc)
		}
		c.DTRControl = dc
		return nil
	}
}

// WithTimeout sets the read/write timeout policy
func WithTimeout(t Timeout) Option {
	return func(c *Config) error {
		c.Timeout = t
		return nil
	}
}

// WithConfig replaces the whole configuration after validating it.
func WithConfig(cfg Config) Option {
	return func(c *Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		*c = cfg
		return nil
	}
}
