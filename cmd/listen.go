/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
	"github.com/allbin/go-serialport/internal/tui/keys"
	"github.com/allbin/go-serialport/internal/tui/models"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Listen for incoming data on a serial port with a real-time TUI display.

This command opens the specified serial port and displays incoming data in real-time
using a terminal user interface. Features include:
- Real-time data streaming with timestamps
- ASCII and hex display modes
- Live modem line states (RTS, CTS, DTR, DSR, DCD, RI) in the status bar
- RTS/DTR toggling from the keyboard

Example usage:
  serial listen /dev/ttyUSB0
  serial listen /dev/ttyUSB0 --baud 9600 --parity even
  serial listen /dev/ttyUSB0 --flow-control hardware --raw`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mode, err := displayModeFromFlags(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts, err := portOptions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		m := newListenModel(args[0], previewConfig(opts), mode)
		if err := runTUI(m, m.session, args[0], opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
	addDisplayFlags(listenCmd)
}

func addDisplayFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	cmd.Flags().Bool("show-indicators", false, "Show RX/TX indicators")
	cmd.Flags().Bool("raw", false, "Raw output mode: no timestamps, no indicators")
	cmd.Flags().String("display", "hex,ascii", "Data columns: hex, ascii or both")
}

func displayModeFromFlags(cmd *cobra.Command) (components.DisplayMode, error) {
	noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
	showIndicators, _ := cmd.Flags().GetBool("show-indicators")
	raw, _ := cmd.Flags().GetBool("raw")
	display, _ := cmd.Flags().GetString("display")

	mode := components.DisplayMode{
		ShowTimestamps: !noTimestamps && !raw,
		ShowIndicators: showIndicators && !raw,
	}
	for _, col := range strings.Split(display, ",") {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "hex":
			mode.ShowHex = true
		case "ascii":
			mode.ShowASCII = true
		case "":
		default:
			return mode, fmt.Errorf("unknown display column: %s (valid: hex, ascii)", col)
		}
	}
	return mode, nil
}

// runTUI starts the program and connects the session in the background.
func runTUI(model tea.Model, session *models.Session, portPath string, opts []serial.Option) error {
	// The alt screen owns the terminal, verbose logs go to a file instead.
	if viper.GetBool("verbose") {
		f, err := tea.LogToFile("serial_debug.log", "serial")
		if err != nil {
			return err
		}
		defer f.Close()
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	session.Connect(func() (serial.Port, error) {
		return serial.Open(portPath, opts...)
	}, p.Send)

	_, err := p.Run()
	session.Close()
	return err
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// terminalView is the part shared by listen and connect: the data view,
// the status bar and the session behind them.
type terminalView struct {
	session   *models.Session
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	now       time.Time
}

func newTerminalView(portPath string, config serial.Config, mode components.DisplayMode) terminalView {
	tv := terminalView{
		session:   models.NewSession(portPath),
		terminal:  components.NewTerminal(80, 20, mode),
		statusBar: components.NewStatusBar(portPath, config),
		help:      help.New(),
		now:       time.Now(),
	}
	tv.statusBar.SetConnecting()
	return tv
}

// handleMsg processes the messages both TUIs understand.
func (tv *terminalView) handleMsg(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tickMsg:
		tv.now = time.Time(msg)
		return tick()

	case models.ConnectionStatusMsg:
		if msg.Err != nil {
			tv.session.SetConnected(false)
			tv.statusBar.SetFailed(msg.Err)
			tv.note("connection: " + msg.Err.Error())
			return nil
		}
		tv.session.SetConnected(true)
		tv.statusBar.SetConnected()
		if port := tv.session.Port(); port != nil {
			tv.statusBar.SetConfig(port.GetConfig())
		}

	case components.DataMsg:
		tv.terminal.Add(msg)

	case components.WriteResultMsg:
		tv.terminal.Resolve(msg)
		if msg.Err != nil {
			tv.note("write: " + msg.Err.Error())
		}

	case components.SignalsMsg:
		tv.statusBar.SetSignals(msg.Signals)
		if msg.Changed != 0 {
			tv.note(fmt.Sprintf("lines changed: %s (now %s)", msg.Changed, msg.Signals))
		}

	case models.NoteMsg:
		tv.note(msg.Text)

	case tea.MouseMsg:
		return tv.terminal.Update(msg)
	}
	return nil
}

// handleKey applies the terminal bindings. It reports whether k matched.
func (tv *terminalView) handleKey(msg tea.KeyMsg, k keys.TerminalKeys) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, k.Quit):
		tv.session.Close()
		return true, tea.Quit
	case key.Matches(msg, k.Help):
		tv.help.ShowAll = !tv.help.ShowAll
	case key.Matches(msg, k.Clear):
		tv.terminal.Clear()
	case key.Matches(msg, k.ToggleHex):
		tv.terminal.ToggleHex()
	case key.Matches(msg, k.ToggleASCII):
		tv.terminal.ToggleASCII()
	case key.Matches(msg, k.ToggleTimestamps):
		tv.terminal.ToggleTimestamps()
	case key.Matches(msg, k.ToggleIndicators):
		tv.terminal.ToggleIndicators()
	case key.Matches(msg, k.ToggleRTS):
		return true, tv.session.ToggleRTS()
	case key.Matches(msg, k.ToggleDTR):
		return true, tv.session.ToggleDTR()
	case key.Matches(msg, k.ScrollUp):
		tv.terminal.ScrollUp()
	case key.Matches(msg, k.ScrollDown):
		tv.terminal.ScrollDown()
	case key.Matches(msg, k.GotoTop):
		tv.terminal.GotoTop()
	case key.Matches(msg, k.GotoBottom):
		tv.terminal.GotoBottom()
	default:
		return false, nil
	}
	return true, nil
}

func (tv *terminalView) resize(width, height, reserved int) {
	tv.terminal.SetSize(width, height-reserved)
	tv.statusBar.SetWidth(width)
	tv.session.SetReady(true)
}

func (tv *terminalView) note(text string) {
	tv.terminal.Add(components.DataMsg{Timestamp: time.Now(), Note: text})
}

func (tv *terminalView) content() string {
	if !tv.session.IsReady() {
		return styles.ContentBorderStyle.Render("Initializing...")
	}
	return styles.ContentBorderStyle.Render(tv.terminal.View())
}

func (tv *terminalView) helpView(k help.KeyMap) string {
	return styles.HelpStyle.Render(tv.help.View(k))
}

func (tv *terminalView) scrollMode() string {
	if tv.terminal.Following() {
		return "FOLLOW"
	}
	return "SCROLL"
}

// listenModel represents the Bubble Tea model for the listen command
type listenModel struct {
	terminalView
	keys keys.TerminalKeys
}

func newListenModel(portPath string, config serial.Config, mode components.DisplayMode) *listenModel {
	return &listenModel{
		terminalView: newTerminalView(portPath, config, mode),
		keys:         keys.NewTerminalKeys(),
	}
}

func (m *listenModel) Init() tea.Cmd {
	return tick()
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// border line above the content + status bar
		m.resize(msg.Width, msg.Height, 2)
		return m, nil
	case tea.KeyMsg:
		_, cmd := m.handleKey(msg, m.keys)
		return m, cmd
	}
	return m, m.handleMsg(msg)
}

func (m *listenModel) View() string {
	parts := []string{m.content()}
	if m.help.ShowAll {
		parts = append(parts, m.helpView(m.keys))
	}
	parts = append(parts, m.statusBar.View(m.scrollMode(), "", m.now))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
