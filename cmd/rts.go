/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
)

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <port> <state>",
	Short: "Control RTS (Request To Send) signal",
	Long: `Manually set the RTS (Request To Send) signal state.

The line keeps its state only while the port is open; use --hold to keep
the port open for a while after setting it.

Examples:
  serial rts /dev/ttyUSB0 high
  serial rts /dev/ttyUSB0 off --hold 5s

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		hold, _ := cmd.Flags().GetDuration("hold")
		setLine(args[0], args[1], "RTS", hold, serial.Port.SetRTS, serial.Port.GetRTS)
	},
}

func init() {
	rootCmd.AddCommand(rtsCmd)

	rtsCmd.Flags().Duration("hold", 0, "Keep the port open this long after setting the line")
}

// setLine drives one output line and reads it back.
func setLine(portPath, stateArg, name string, hold time.Duration,
	set func(serial.Port, bool) error, get func(serial.Port) (bool, error)) {
	state, err := parseSignalState(stateArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	port := openPort(portPath)
	defer port.Close()

	if err := set(port, state); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting %s: %v\n", name, err)
		os.Exit(1)
	}

	current, err := get(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not verify %s state: %v\n", name, err)
		current = state
	}
	fmt.Printf("%s set to %s on %s\n", name, formatSignalState(current), portPath)

	if hold > 0 {
		fmt.Printf("Holding for %s...\n", hold)
		time.Sleep(hold)
	}
}
