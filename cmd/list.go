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
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	Run: func(cmd *cobra.Command, args []string) {
		infos, err := serial.ListPortInfo()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filtered, err := filterPorts(infos, filterType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			fmt.Printf("Found %d serial port(s):\n\n", len(filtered))
			fmt.Println(portTable(filtered).View())
			return
		}
		for _, info := range filtered {
			fmt.Println(info.Path)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "F", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

func filterPorts(infos []*serial.PortInfo, filterType string) ([]*serial.PortInfo, error) {
	var match func(name string) bool
	switch strings.ToLower(filterType) {
	case "", "all":
		return infos, nil
	case "usb":
		match = func(name string) bool {
			return strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
		}
	case "standard":
		match = func(name string) bool { return strings.HasPrefix(name, "ttys") }
	case "arm":
		match = func(name string) bool { return strings.HasPrefix(name, "ttyama") }
	default:
		return nil, fmt.Errorf("unknown filter: %s (valid: usb, standard, arm, all)", filterType)
	}

	var filtered []*serial.PortInfo
	for _, info := range infos {
		if match(strings.ToLower(info.Name)) {
			filtered = append(filtered, info)
		}
	}
	return filtered, nil
}

const (
	columnPort   = "port"
	columnType   = "type"
	columnDesc   = "description"
	columnUSB    = "usb"
	columnSerial = "serial"
)

func portTable(infos []*serial.PortInfo) table.Model {
	columns := []table.Column{
		table.NewColumn(columnPort, "Port", 15),
		table.NewColumn(columnType, "Type", 16),
		table.NewColumn(columnDesc, "Description", 32),
		table.NewColumn(columnUSB, "VID:PID", 10),
		table.NewColumn(columnSerial, "Serial", 16),
	}

	rows := make([]table.Row, 0, len(infos))
	for _, info := range infos {
		usb := ""
		if info.VendorID != "" || info.ProductID != "" {
			usb = info.VendorID + ":" + info.ProductID
		}
		desc := info.Description
		if info.Product != "" {
			desc = info.Product
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnPort:   info.Name,
			columnType:   getPortType(info.Name),
			columnDesc:   desc,
			columnUSB:    usb,
			columnSerial: info.SerialNumber,
		}))
	}

	return table.New(columns).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)).
		WithBaseStyle(lipgloss.NewStyle().Align(lipgloss.Left).BorderForeground(colors.Surface2))
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
