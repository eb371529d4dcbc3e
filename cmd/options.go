/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/allbin/go-serialport"
)

// portSettings is the flag/env/config-file view of a port configuration.
type portSettings struct {
	Baud        int
	DataBits    int
	Parity      string
	StopBits    string
	FlowControl string
	DTR         string
	Timeout     time.Duration
	InterByte   time.Duration
}

func buildOptions(s portSettings) ([]serial.Option, error) {
	parity, err := parseParity(s.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := parseStopBits(s.StopBits)
	if err != nil {
		return nil, err
	}
	flow, err := parseFlowControl(s.FlowControl)
	if err != nil {
		return nil, err
	}
	dtr, err := parseDTRControl(s.DTR)
	if err != nil {
		return nil, err
	}
	if s.Timeout < 0 || s.InterByte < 0 {
		return nil, fmt.Errorf("timeouts must not be negative")
	}

	timeout := serial.SimpleTimeout(durationMillis(s.Timeout))
	if s.InterByte > 0 {
		timeout.InterByte = durationMillis(s.InterByte)
	}

	opts := []serial.Option{
		serial.WithBaudRate(s.Baud),
		serial.WithByteSize(serial.ByteSize(s.DataBits)),
		serial.WithParity(parity),
		serial.WithStopBits(stopBits),
		serial.WithFlowControl(flow),
		serial.WithDTRControl(dtr),
		serial.WithTimeout(timeout),
	}

	// Surface bad values here rather than as an open failure.
	config := serial.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// durationMillis rounds d up to whole milliseconds, staying below TimeoutMax
// so a long timeout never reads as "disabled".
func durationMillis(d time.Duration) uint32 {
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms >= math.MaxUint32 {
		return math.MaxUint32 - 1
	}
	return uint32(ms)
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "none", "n", "":
		return serial.ParityNone, nil
	case "odd", "o":
		return serial.ParityOdd, nil
	case "even", "e":
		return serial.ParityEven, nil
	case "mark", "m":
		return serial.ParityMark, nil
	case "space", "s":
		return serial.ParitySpace, nil
	}
	return 0, fmt.Errorf("invalid parity: %s (valid: none, odd, even, mark, space)", s)
}

func parseStopBits(s string) (serial.StopBits, error) {
	switch s {
	case "1", "":
		return serial.StopBitsOne, nil
	case "1.5":
		return serial.StopBitsOnePointFive, nil
	case "2":
		return serial.StopBitsTwo, nil
	}
	return 0, fmt.Errorf("invalid stop bits: %s (valid: 1, 1.5, 2)", s)
}

func parseFlowControl(s string) (serial.FlowControl, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return serial.FlowControlNone, nil
	case "software", "xonxoff":
		return serial.FlowControlSoftware, nil
	case "hardware", "rtscts":
		return serial.FlowControlHardware, nil
	}
	return 0, fmt.Errorf("invalid flow control: %s (valid: none, software, hardware)", s)
}

func parseDTRControl(s string) (serial.DTRControl, error) {
	switch strings.ToLower(s) {
	case "disable", "off":
		return serial.DTRDisable, nil
	case "enable", "on", "":
		return serial.DTREnable, nil
	case "handshake":
		return serial.DTRHandshake, nil
	}
	return 0, fmt.Errorf("invalid dtr control: %s (valid: disable, enable, handshake)", s)
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func parseSignalMask(names []string) (serial.SignalMask, error) {
	if len(names) == 0 {
		return serial.SignalAll, nil
	}

	var mask serial.SignalMask
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cts":
			mask |= serial.SignalCTS
		case "dsr":
			mask |= serial.SignalDSR
		case "ri":
			mask |= serial.SignalRI
		case "dcd", "cd":
			mask |= serial.SignalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

// parseHex accepts "48656C6C6F", "48 65 6c 6c 6f" and "0x48 0x65".
func parseHex(s string) ([]byte, error) {
	clean := strings.Join(strings.Fields(s), "")
	clean = strings.NewReplacer("0x", "", "0X", "").Replace(clean)
	if clean == "" {
		return nil, fmt.Errorf("empty hex input")
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(clean))
	}
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

// unescape expands \r, \n, \t and \xNN in flag values such as --eol.
func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	out, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return "", fmt.Errorf("invalid escape sequence in %q", s)
	}
	return out, nil
}

// printable replaces bytes outside printable ASCII with a middle dot.
func printable(data []byte, limit int) string {
	truncated := false
	if limit > 0 && len(data) > limit {
		data = data[:limit]
		truncated = true
	}
	out := strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, string(data))
	if truncated {
		out += "..."
	}
	return out
}
