package serial

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// getBaudRate converts an integer baud rate to its CBAUD flag. Rates outside
// the table map to BOTHER, with the rate itself carried in Ispeed/Ospeed.
func getBaudRate(rate int) (uint32, error) {
	if rate <= 0 || int64(rate) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBaudRate, rate)
	}
	if b, ok := baudRates[rate]; ok {
		return b, nil
	}
	return unix.BOTHER, nil
}

var byteSizeFlags = map[ByteSize]uint32{
	FiveBits:  unix.CS5,
	SixBits:   unix.CS6,
	SevenBits: unix.CS7,
	EightBits: unix.CS8,
}

// applyTermios rewrites t in place for raw, non-canonical operation with the
// framing in cfg. Reads never block in the driver (VMIN=0, VTIME=0); all
// waiting happens in poll.
func applyTermios(t *unix.Termios, cfg Config) error {
	baud, err := getBaudRate(cfg.BaudRate)
	if err != nil {
		return err
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF |
		unix.IXANY | unix.INPCK
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG |
		unix.IEXTEN | unix.ECHOE

	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB |
		unix.CRTSCTS | unix.CMSPAR | unix.HUPCL | unix.CBAUD
	t.Cflag &^= unix.CBAUD << unix.IBSHIFT
	t.Cflag |= unix.CREAD | unix.CLOCAL | baud
	t.Ispeed = uint32(cfg.BaudRate)
	t.Ospeed = uint32(cfg.BaudRate)

	t.Cflag |= byteSizeFlags[cfg.ByteSize]

	// termios has no 1.5 stop bit setting; CSTOPB gives 1.5 on 5-bit
	// characters and 2 otherwise.
	if cfg.StopBits == StopBitsTwo || cfg.StopBits == StopBitsOnePointFive {
		t.Cflag |= unix.CSTOPB
	}

	switch cfg.Parity {
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	case ParityMark:
		t.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		t.Cflag |= unix.PARENB | unix.CMSPAR
	}
	if cfg.Parity != ParityNone {
		t.Iflag |= unix.INPCK
	}

	switch cfg.FlowControl {
	case FlowControlSoftware:
		t.Iflag |= unix.IXON | unix.IXOFF
	case FlowControlHardware:
		t.Cflag |= unix.CRTSCTS
	}

	if cfg.DTRControl == DTRHandshake {
		t.Cflag |= unix.HUPCL
	}

	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	return nil
}

// configurePort reads the current termios of fd, applies cfg and writes it back.
// Table rates go through TCSETS; any other rate needs the termios2 ioctls.
func configurePort(fd int, cfg Config) error {
	get, set := uint(unix.TCGETS), uint(unix.TCSETS)
	if _, ok := baudRates[cfg.BaudRate]; !ok {
		get, set = unix.TCGETS2, unix.TCSETS2
	}

	t, err := unix.IoctlGetTermios(fd, get)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}
	if err := applyTermios(t, cfg); err != nil {
		return err
	}
	if err := unix.IoctlSetTermios(fd, set, t); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}
