/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display current modem signal states",
	Long: `Display the state of the modem lines of a port in one snapshot.

Inputs (driven by the remote end) and outputs (driven by this host) are
listed separately. The outputs reflect --dtr and the RTS state the driver
applies on open, so 'serial signals /dev/ttyUSB0 --dtr disable' shows
what the device sees with DTR held low.

--plain prints a single "CTS=1 DSR=0 ..." line for scripts.

Examples:
  serial signals /dev/ttyUSB0
  serial signals /dev/ttyACM0 --dtr disable
  serial signals /dev/ttyUSB0 --plain`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		plain, _ := cmd.Flags().GetBool("plain")

		port := openPort(portPath)
		defer port.Close()

		signals, err := port.GetModemSignals()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading modem signals: %v\n", err)
			os.Exit(1)
		}

		if plain {
			fmt.Println(plainSignals(signals))
			return
		}
		fmt.Printf("Modem lines on %s (%s, DTR %s)\n\n", portPath, port.GetConfig(), port.GetDTRControl())
		fmt.Print(signalReport(signals))
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().Bool("plain", false, "Print one NAME=0/1 line without styling")
}

type signalLine struct {
	name   string
	desc   string
	output bool
	state  bool
}

func signalLines(s serial.ModemSignals) []signalLine {
	return []signalLine{
		{"CTS", "Clear To Send", false, s.CTS},
		{"DSR", "Data Set Ready", false, s.DSR},
		{"RI", "Ring Indicator", false, s.RI},
		{"DCD", "Data Carrier Detect", false, s.DCD},
		{"RTS", "Request To Send", true, s.RTS},
		{"DTR", "Data Terminal Ready", true, s.DTR},
	}
}

func plainSignals(s serial.ModemSignals) string {
	var parts []string
	for _, l := range signalLines(s) {
		v := 0
		if l.state {
			v = 1
		}
		parts = append(parts, fmt.Sprintf("%s=%d", l.name, v))
	}
	return strings.Join(parts, " ")
}

func signalReport(s serial.ModemSignals) string {
	high := lipgloss.NewStyle().Bold(true).Foreground(colors.Green)
	low := lipgloss.NewStyle().Foreground(colors.Overlay0)
	heading := lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)

	var b strings.Builder
	for _, group := range []struct {
		title  string
		output bool
	}{{"Inputs", false}, {"Outputs", true}} {
		b.WriteString(heading.Render(group.title) + "\n")
		for _, l := range signalLines(s) {
			if l.output != group.output {
				continue
			}
			state := low.Render(formatSignalState(false))
			if l.state {
				state = high.Render(formatSignalState(true))
			}
			fmt.Fprintf(&b, "  %-4s %-20s %s\n", l.name, l.desc, state)
		}
	}
	return b.String()
}
