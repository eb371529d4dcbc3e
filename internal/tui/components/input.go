package components

import (
	"strings"

	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type SendingMode int

const (
	SendingModeASCII SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	if s == SendingModeHex {
		return "HEX"
	}
	return "ASCII"
}

const (
	historyLimit     = 100
	asciiPlaceholder = "Type message and press Enter to send..."
	hexPlaceholder   = "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)..."
)

// Input is the single-line send box with per-session history.
type Input struct {
	textInput    textinput.Model
	sendingMode  SendingMode
	history      []string
	historyIndex int
	draft        string
	width        int
}

func NewInput(mode SendingMode) *Input {
	ti := textinput.New()
	ti.CharLimit = 1024
	ti.Prompt = ""

	in := &Input{textInput: ti, historyIndex: -1}
	in.SetSendingMode(mode)
	return in
}

func (i *Input) SetWidth(width int) {
	i.width = width
	// border(2) + padding(2) + prompt(1) + space(1)
	i.textInput.Width = max(width-6, 20)
}

func (i *Input) Focus() tea.Cmd { return i.textInput.Focus() }
func (i *Input) Blur()          { i.textInput.Blur() }

func (i *Input) Value() string         { return i.textInput.Value() }
func (i *Input) SetValue(value string) { i.textInput.SetValue(value) }

func (i *Input) SetSendingMode(mode SendingMode) {
	i.sendingMode = mode
	if mode == SendingModeHex {
		i.textInput.Placeholder = hexPlaceholder
	} else {
		i.textInput.Placeholder = asciiPlaceholder
	}
}

func (i *Input) ToggleSendingMode() {
	if i.sendingMode == SendingModeHex {
		i.SetSendingMode(SendingModeASCII)
	} else {
		i.SetSendingMode(SendingModeHex)
	}
}

func (i *Input) GetSendingMode() SendingMode { return i.sendingMode }

func (i *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return cmd
}

// View draws the box. Outside insert mode it shows how to get in.
func (i *Input) View(insert bool) string {
	promptStyle := lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
	prompt := ">"
	if i.sendingMode == SendingModeHex {
		promptStyle = lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true)
		prompt = "#"
	}

	content := lipgloss.NewStyle().Foreground(colors.Overlay0).Render("Press 'i' to enter insert mode")
	if insert {
		content = i.textInput.View()
	}

	box := styles.InputStyle.
		Width(max(i.width-4, 10)).
		AlignHorizontal(lipgloss.Left)
	if insert {
		box = box.BorderForeground(colors.Green)
	}
	return box.Render(lipgloss.JoinHorizontal(lipgloss.Left, promptStyle.Render(prompt), " ", content))
}

// AddToHistory records command unless it is blank or repeats the last entry.
func (i *Input) AddToHistory(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}
	if n := len(i.history); n == 0 || i.history[n-1] != command {
		i.history = append(i.history, command)
		if len(i.history) > historyLimit {
			i.history = i.history[1:]
		}
	}
	i.historyIndex = -1
	i.draft = ""
}

func (i *Input) History() []string { return i.history }

func (i *Input) HistoryUp() {
	if len(i.history) == 0 {
		return
	}
	switch {
	case i.historyIndex == -1:
		i.draft = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	case i.historyIndex > 0:
		i.historyIndex--
	}
	i.textInput.SetValue(i.history[i.historyIndex])
}

func (i *Input) HistoryDown() {
	if i.historyIndex == -1 {
		return
	}
	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}
	i.historyIndex = -1
	i.textInput.SetValue(i.draft)
	i.draft = ""
}
