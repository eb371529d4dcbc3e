package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// SignalsMsg carries a fresh read of the modem lines.
type SignalsMsg struct {
	Signals serial.ModemSignals
	Changed serial.SignalMask
}

type connState int

const (
	stateConnecting connState = iota
	stateConnected
	stateFailed
)

type StatusBar struct {
	portPath string
	config   serial.Config
	state    connState
	err      error
	width    int
	signals  *serial.ModemSignals
}

func NewStatusBar(portPath string, config serial.Config) *StatusBar {
	return &StatusBar{portPath: portPath, config: config}
}

func (sb *StatusBar) SetWidth(width int) { sb.width = width }

func (sb *StatusBar) SetConfig(config serial.Config) { sb.config = config }

func (sb *StatusBar) SetConnecting() {
	sb.state = stateConnecting
	sb.err = nil
}

func (sb *StatusBar) SetConnected() {
	sb.state = stateConnected
	sb.err = nil
}

// SetFailed marks the connection lost or never established.
func (sb *StatusBar) SetFailed(err error) {
	sb.state = stateFailed
	sb.err = err
}

func (sb *StatusBar) Err() error { return sb.err }

func (sb *StatusBar) SetSignals(s serial.ModemSignals) { sb.signals = &s }

// View renders one line: mode, port and connection dot on the left;
// line settings, modem lines and the clock on the right.
func (sb *StatusBar) View(mode, sendMode string, now time.Time) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeColor := colors.Blue
	if mode == "INSERT" {
		modeColor = colors.Green
	}
	left := []string{
		lipgloss.NewStyle().Foreground(colors.Base).Background(modeColor).Bold(true).Padding(0, 1).Render(mode),
		lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true).Padding(0, 1).Render(sb.portPath),
		sb.dot(),
	}
	if sendMode != "" && mode == "INSERT" {
		left = append(left, lipgloss.NewStyle().Foreground(colors.Peach).Bold(true).Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendMode)))
	}
	if sb.err != nil {
		left = append(left, lipgloss.NewStyle().Foreground(colors.Red).Padding(0, 1).Render(sb.err.Error()))
	}

	divider := lipgloss.NewStyle().Foreground(colors.Surface2).Padding(0, 1).Render("│")
	info := fmt.Sprintf("⚡ %s %s", sb.config, flowLabel(sb.config.FlowControl))
	right := []string{
		lipgloss.NewStyle().Foreground(colors.Subtext0).Padding(0, 1).Render(info),
	}
	if sb.signals != nil {
		right = append(right, divider, sb.lines())
	}
	right = append(right, divider,
		lipgloss.NewStyle().Foreground(colors.Subtext1).Padding(0, 1).Render(now.Format("15:04:05")))

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, right...)

	spacer := width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacer < 1 {
		spacer = 1
	}

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(width).
		MaxWidth(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left,
			leftSide, lipgloss.NewStyle().Width(spacer).Render(""), rightSide))
}

func (sb *StatusBar) dot() string {
	switch sb.state {
	case stateConnected:
		return lipgloss.NewStyle().Foreground(colors.Green).Render("●")
	case stateConnecting:
		return lipgloss.NewStyle().Foreground(colors.Yellow).Render("○")
	default:
		return lipgloss.NewStyle().Foreground(colors.Red).Render("✗")
	}
}

// lines shows each modem line lit or dimmed.
func (sb *StatusBar) lines() string {
	s := sb.signals
	var out []string
	for _, l := range []struct {
		name string
		on   bool
	}{
		{"RTS", s.RTS}, {"CTS", s.CTS}, {"DTR", s.DTR},
		{"DSR", s.DSR}, {"DCD", s.DCD}, {"RI", s.RI},
	} {
		style := lipgloss.NewStyle().Foreground(colors.Overlay0)
		if l.on {
			style = lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
		}
		out = append(out, style.Render(l.name))
	}
	return strings.Join(out, " ")
}

func flowLabel(fc serial.FlowControl) string {
	switch fc {
	case serial.FlowControlSoftware:
		return "XON/XOFF"
	case serial.FlowControlHardware:
		return "RTS/CTS"
	default:
		return "no flow"
	}
}
