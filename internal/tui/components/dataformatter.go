package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// Direction tells received data from data the user sent.
type Direction int

const (
	RX Direction = iota
	TX
)

// WriteStatus tracks a TX entry from queueing to completion.
type WriteStatus int

const (
	WritePending WriteStatus = iota
	WriteDone
	WriteShort
	WriteFailed
)

// DataMsg is one chunk of traffic shown in the terminal.
type DataMsg struct {
	ID        int
	Timestamp time.Time
	Data      []byte
	Direction Direction
	Status    WriteStatus
	// Note replaces the data column, e.g. for line state changes.
	Note string
}

// WriteResultMsg reports how the write queued as DataMsg ID ended.
type WriteResultMsg struct {
	ID  int
	N   int
	Err error
}

// DisplayMode selects what each line of the terminal shows.
type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
	ShowIndicators bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(mode DisplayMode) *DataFormatter {
	return &DataFormatter{mode: mode}
}

func (df *DataFormatter) SetDisplayMode(mode DisplayMode) { df.mode = mode }
func (df *DataFormatter) GetDisplayMode() DisplayMode     { return df.mode }

func (df *DataFormatter) ToggleHex()        { df.mode.ShowHex = !df.mode.ShowHex }
func (df *DataFormatter) ToggleASCII()      { df.mode.ShowASCII = !df.mode.ShowASCII }
func (df *DataFormatter) ToggleTimestamps() { df.mode.ShowTimestamps = !df.mode.ShowTimestamps }
func (df *DataFormatter) ToggleIndicators() { df.mode.ShowIndicators = !df.mode.ShowIndicators }

func (df *DataFormatter) FormatMessage(msg DataMsg) string {
	var prefix []string

	if df.mode.ShowTimestamps {
		prefix = append(prefix, lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Render("["+msg.Timestamp.Format("15:04:05.000")+"]"))
	}
	if df.mode.ShowIndicators {
		prefix = append(prefix, indicator(msg))
	}

	body := df.body(msg)
	if len(prefix) == 0 {
		return body
	}
	return strings.Join(prefix, " ") + " " + body
}

func (df *DataFormatter) body(msg DataMsg) string {
	if msg.Note != "" {
		return lipgloss.NewStyle().Foreground(colors.Lavender).Render(msg.Note)
	}

	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+Printable(msg.Data))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}
	return strings.Join(parts, "  ")
}

func indicator(msg DataMsg) string {
	if msg.Note != "" {
		return lipgloss.NewStyle().Foreground(colors.Lavender).Render("• --")
	}
	if msg.Direction == RX {
		return lipgloss.NewStyle().Foreground(colors.Sky).Bold(true).Render("↙ RX")
	}

	color, text := colors.Peach, "TX"
	switch msg.Status {
	case WritePending:
		color, text = colors.Yellow, "TX ○"
	case WriteDone:
		color, text = colors.Green, "TX ✓"
	case WriteShort:
		color, text = colors.Yellow, "TX ⌛"
	case WriteFailed:
		color, text = colors.Red, "TX ✗"
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render("↗ " + text)
}

func (df *DataFormatter) FormatMessages(messages []DataMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

// Printable maps bytes outside printable ASCII to '.', so raw device output
// cannot inject terminal control sequences.
func Printable(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
