/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <port> <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Manually set the DTR (Data Terminal Ready) signal state.

Opening the port applies --dtr first (enable by default), then the
requested state is set. With --dtr handshake the driver drops DTR again
when the port closes.

Examples:
  serial dtr /dev/ttyUSB0 high
  serial dtr /dev/ttyUSB0 low --hold 500ms

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		hold, _ := cmd.Flags().GetDuration("hold")
		setLine(args[0], args[1], "DTR", hold, serial.Port.SetDTR, serial.Port.GetDTR)
	},
}

func init() {
	rootCmd.AddCommand(dtrCmd)

	dtrCmd.Flags().Duration("hold", 0, "Keep the port open this long after setting the line")
}
