/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
	"github.com/allbin/go-serialport/internal/tui/keys"
	"github.com/allbin/go-serialport/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Connect to a serial port with bidirectional communication",
	Long: `Connect to a serial port with a bidirectional terminal interface.

Everything listen shows, plus an input box for sending data:
- 'i' enters insert mode, Esc leaves it, Enter sends
- Tab switches between ASCII (terminated by --eol) and hex input
- Up/Down walk the send history
- 'b' sends a break, 'r' and 'd' toggle RTS and DTR

Each sent message shows its write status: pending, done, timed out
(fewer bytes than queued went out within --timeout) or failed.

Example usage:
  serial connect /dev/ttyUSB0
  serial connect /dev/ttyUSB0 --baud 9600 --eol '\r\n'
  serial connect /dev/ttyUSB0 --flow-control hardware --hex`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mode, err := displayModeFromFlags(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		eolFlag, _ := cmd.Flags().GetString("eol")
		eol, err := unescape(eolFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		hexInput, _ := cmd.Flags().GetBool("hex")
		breakDuration, _ := cmd.Flags().GetDuration("break")

		opts, err := portOptions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		sendMode := components.SendingModeASCII
		if hexInput {
			sendMode = components.SendingModeHex
		}
		m := newConnectModel(args[0], previewConfig(opts), mode, sendMode, eol, breakDuration)
		if err := runTUI(m, m.session, args[0], opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	addDisplayFlags(connectCmd)

	connectCmd.Flags().String("eol", `\n`, "Terminator appended to ASCII messages (escapes allowed)")
	connectCmd.Flags().BoolP("hex", "x", false, "Start with hex input")
	connectCmd.Flags().Duration("break", 250*time.Millisecond, "Break length for the 'b' key")
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	terminalView
	input         *components.Input
	keys          keys.ConnectKeys
	eol           string
	breakDuration time.Duration
}

func newConnectModel(portPath string, config serial.Config, mode components.DisplayMode,
	sendMode components.SendingMode, eol string, breakDuration time.Duration) *connectModel {
	return &connectModel{
		terminalView:  newTerminalView(portPath, config, mode),
		input:         components.NewInput(sendMode),
		keys:          keys.NewConnectKeys(),
		eol:           eol,
		breakDuration: breakDuration,
	}
}

func (m *connectModel) Init() tea.Cmd {
	return tick()
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// border line + input box (3) + status bar
		m.resize(msg.Width, msg.Height, 5)
		m.input.SetWidth(msg.Width)
		return m, nil

	case models.ConnectionStatusMsg:
		cmd := m.handleMsg(msg)
		if msg.Err == nil {
			m.session.SetInputMode(models.InputModeInsert)
			return m, tea.Batch(cmd, m.input.Focus())
		}
		return m, cmd

	case tea.KeyMsg:
		if m.session.InputMode() == models.InputModeInsert {
			return m, m.insertKey(msg)
		}
		return m, m.normalKey(msg)
	}
	return m, m.handleMsg(msg)
}

func (m *connectModel) insertKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.session.SetInputMode(models.InputModeNormal)
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Enter):
		return m.send()
	case key.Matches(msg, m.keys.HistoryUp):
		m.input.HistoryUp()
		return nil
	case key.Matches(msg, m.keys.HistoryDown):
		m.input.HistoryDown()
		return nil
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	case msg.Type == tea.KeyCtrlC:
		m.session.Close()
		return tea.Quit
	}
	return m.input.Update(msg)
}

func (m *connectModel) normalKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.InsertMode):
		m.session.SetInputMode(models.InputModeInsert)
		return m.input.Focus()
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	case key.Matches(msg, m.keys.Break):
		return m.session.SendBreak(m.breakDuration)
	}
	_, cmd := m.handleKey(msg, m.keys.TerminalKeys)
	return cmd
}

// send queues the input box content as a TX entry and writes it.
func (m *connectModel) send() tea.Cmd {
	text := m.input.Value()
	if text == "" {
		return nil
	}
	if !m.session.IsConnected() {
		m.note("not connected")
		return nil
	}

	var data []byte
	if m.input.GetSendingMode() == components.SendingModeHex {
		parsed, err := parseHex(text)
		if err != nil {
			m.note(err.Error())
			return nil
		}
		data = parsed
	} else {
		data = []byte(text + m.eol)
	}

	id := m.session.NextID()
	m.terminal.Add(components.DataMsg{
		ID:        id,
		Timestamp: time.Now(),
		Data:      data,
		Direction: components.TX,
		Status:    components.WritePending,
	})
	m.input.AddToHistory(text)
	m.input.SetValue("")
	return m.session.Write(id, data)
}

func (m *connectModel) View() string {
	mode := m.session.InputMode()
	parts := []string{
		m.content(),
		m.input.View(mode == models.InputModeInsert),
	}
	if m.help.ShowAll {
		parts = append(parts, m.helpView(m.keys))
	}
	parts = append(parts, m.statusBar.View(mode.String(), m.input.GetSendingMode().String(), m.now))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
