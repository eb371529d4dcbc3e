/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// breakCmd represents the break command
var breakCmd = &cobra.Command{
	Use:   "break <port>",
	Short: "Send a break condition",
	Long: `Hold the TX line low for --duration, then release it.

Many bootloaders and consoles treat a break as an attention or reset
request (for example the Linux magic SysRq over a serial console).

Examples:
  serial break /dev/ttyUSB0
  serial break /dev/ttyS0 --duration 500ms`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		duration, _ := cmd.Flags().GetDuration("duration")

		port := openPort(args[0])
		defer port.Close()

		if err := port.SendBreak(duration); err != nil {
			fmt.Fprintf(os.Stderr, "Error sending break: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sent %s break on %s\n", duration, args[0])
	},
}

func init() {
	rootCmd.AddCommand(breakCmd)

	breakCmd.Flags().DurationP("duration", "d", 250*time.Millisecond, "How long to hold the break")
}
