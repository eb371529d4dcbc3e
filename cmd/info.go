/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  serial info /dev/ttyUSB0
  serial info /dev/ttyACM0 --probe

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and other USB-specific metadata from sysfs and the USB enumerator.
With --probe the port is opened with the current settings and its modem
lines are reported as well.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		probe, _ := cmd.Flags().GetBool("probe")

		info, err := serial.GetPortInfo(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Description: %s\n", info.Description)

		if info.IsUSB() {
			fmt.Println("\nUSB Device Information:")
			printField("Vendor ID", info.VendorID)
			printField("Product ID", info.ProductID)
			printField("Serial", info.SerialNumber)
			printField("Interface", info.InterfaceNumber)
			printField("Bus", info.BusNumber)
			printField("Device", info.DeviceNumber)
			printField("Manufacturer", info.Manufacturer)
			printField("Product", info.Product)
		}

		opts, err := portOptions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		config := previewConfig(opts)
		fmt.Println("\nSettings:")
		printField("Line", config.String())
		printField("Flow", config.FlowControl.String())
		printField("DTR", config.DTRControl.String())

		if !probe {
			return
		}

		port, err := serial.Open(portPath, opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			if errors.Is(err, serial.ErrDeviceInUse) {
				fmt.Fprintln(os.Stderr, "Another process holds the port open")
			}
			os.Exit(1)
		}
		defer port.Close()

		fmt.Println("\nProbe:")
		if n, err := port.Available(); err == nil {
			printField("Queued", fmt.Sprintf("%d bytes", n))
		}
		signals, err := port.GetModemSignals()
		if err != nil {
			printField("Signals", fmt.Sprintf("unavailable (%v)", err))
			return
		}
		printField("Signals", signals.String())
	},
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("  %-13s %s\n", label+":", value)
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("probe", false, "Open the port and report queued bytes and modem lines")
}
