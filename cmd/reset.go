/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <port|serial>",
	Short: "Reset a USB serial device",
	Long: `Perform a USB-level reset on a serial device. This can recover devices
that are hung or unresponsive without physically unplugging them.

The device will re-enumerate after reset, which may cause the port path
to change (e.g., /dev/ttyUSB0 might become /dev/ttyUSB1). When the device
is selected by serial number, --wait polls until it shows up again and
prints its new path.

Requirements:
- usbreset utility must be installed (from usbutils package)
- Root/sudo permissions required for USB operations

Examples:
  sudo serial reset /dev/ttyUSB0
  sudo serial reset --serial NC7ILXW1 --wait 10s`,
	Args: func(cmd *cobra.Command, args []string) error {
		serialFlag, _ := cmd.Flags().GetString("serial")
		if serialFlag == "" && len(args) != 1 {
			return errors.New("requires either a port path argument or --serial flag")
		}
		if serialFlag != "" && len(args) > 0 {
			return errors.New("cannot specify both port path and --serial flag")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !serial.IsUSBResetAvailable() {
			fmt.Fprintln(os.Stderr, "Error: usbreset utility not available")
			fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			os.Exit(1)
		}

		serialFlag, _ := cmd.Flags().GetString("serial")
		wait, _ := cmd.Flags().GetDuration("wait")

		var err error
		if serialFlag != "" {
			fmt.Printf("Resetting USB device with serial: %s\n", serialFlag)
			err = serial.ResetUSBDeviceBySerial(serialFlag)
		} else {
			fmt.Printf("Resetting USB device: %s\n", args[0])
			err = serial.ResetUSBDevice(args[0])
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, serial.ErrUSBInfoNotAvailable) {
				fmt.Fprintln(os.Stderr, "This device does not appear to be a USB device")
			}
			os.Exit(1)
		}

		fmt.Println("USB device reset successfully")
		if serialFlag == "" || wait <= 0 {
			fmt.Println("Device will re-enumerate (port path may change)")
			fmt.Println("\nUse 'serial list --table' to see updated device list")
			return
		}

		path, ok := waitForSerial(serialFlag, wait)
		if !ok {
			fmt.Fprintf(os.Stderr, "Device %s did not reappear within %s\n", serialFlag, wait)
			os.Exit(1)
		}
		fmt.Printf("Device re-enumerated as %s\n", path)
	},
}

// waitForSerial polls the port list until a device with serialNumber shows up.
func waitForSerial(serialNumber string, wait time.Duration) (string, bool) {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		infos, err := serial.ListPortInfo()
		if err == nil {
			for _, info := range infos {
				if info.SerialNumber == serialNumber {
					return info.Path, true
				}
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	return "", false
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringP("serial", "s", "", "Reset device by serial number")
	resetCmd.Flags().Duration("wait", 0, "With --serial, wait up to this long for the device to come back")
}
