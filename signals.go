package serial

import (
	"strings"

	"golang.org/x/sys/unix"
)

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

func (s ModemSignals) String() string {
	var on []string
	for _, sig := range []struct {
		name string
		set  bool
	}{
		{"CTS", s.CTS}, {"DSR", s.DSR}, {"RI", s.RI},
		{"DCD", s.DCD}, {"RTS", s.RTS}, {"DTR", s.DTR},
	} {
		if sig.set {
			on = append(on, sig.name)
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, "|")
}

// SignalMask identifies which input signals to monitor
type SignalMask int

const (
	SignalCTS SignalMask = 1 << iota
	SignalDSR
	SignalRI
	SignalDCD

	// SignalAll is every input line WaitForChange watches.
	SignalAll = SignalCTS | SignalDSR | SignalRI | SignalDCD
)

func (m SignalMask) String() string {
	var names []string
	if m&SignalCTS != 0 {
		names = append(names, "CTS")
	}
	if m&SignalDSR != 0 {
		names = append(names, "DSR")
	}
	if m&SignalRI != 0 {
		names = append(names, "RI")
	}
	if m&SignalDCD != 0 {
		names = append(names, "DCD")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

func signalsFromStatus(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// signalMaskToTIOCM converts SignalMask to unix TIOCM bits
func signalMaskToTIOCM(mask SignalMask) int {
	var bits int
	if mask&SignalCTS != 0 {
		bits |= unix.TIOCM_CTS
	}
	if mask&SignalDSR != 0 {
		bits |= unix.TIOCM_DSR
	}
	if mask&SignalRI != 0 {
		bits |= unix.TIOCM_RI
	}
	if mask&SignalDCD != 0 {
		bits |= unix.TIOCM_CAR
	}
	return bits
}

// detectSignalChanges compares old and new signal states to determine what changed
func detectSignalChanges(oldStatus, newStatus int) SignalMask {
	var changed SignalMask
	diff := oldStatus ^ newStatus
	if diff&unix.TIOCM_CTS != 0 {
		changed |= SignalCTS
	}
	if diff&unix.TIOCM_DSR != 0 {
		changed |= SignalDSR
	}
	if diff&unix.TIOCM_RI != 0 {
		changed |= SignalRI
	}
	if diff&unix.TIOCM_CAR != 0 {
		changed |= SignalDCD
	}
	return changed
}

func getModemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

func setModemBits(fd int, bits int, on bool) error {
	if on {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, bits)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, bits)
}
