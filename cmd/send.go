/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port with configurable options.

This command sends data to the specified serial port. Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | serial send /dev/ttyUSB0
- Interactive mode: serial send /dev/ttyUSB0 (prompts for input)

The write is bounded by --timeout; a write that runs out of time reports how
many bytes went out. --drain waits until the driver has transmitted
everything, and --response reads one line back before closing.

Example usage:
  serial send "Hello World" /dev/ttyUSB0
  serial send "AT+GMR" /dev/ttyUSB0 --newline --eol '\r\n' --response
  serial send "02 06 00 03" /dev/ttyUSB0 --hex
  echo "test" | serial send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var data, portPath string

		if len(args) == 1 {
			portPath = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
			portPath = args[1]
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		eolFlag, _ := cmd.Flags().GetString("eol")
		drain, _ := cmd.Flags().GetBool("drain")
		response, _ := cmd.Flags().GetBool("response")

		eol, err := unescape(eolFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		payload := []byte(data)
		if hexMode {
			payload, err = parseHex(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
		} else if addNewline {
			payload = append(payload, eol...)
		}

		if err := sendData(portPath, payload, drain, response, eol); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", styles.ErrorMark.Render("✗"), err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Append the line terminator (--eol) to the data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().String("eol", `\n`, "Line terminator for --newline and --response (escapes allowed)")
	sendCmd.Flags().Bool("drain", false, "Wait until all data has been transmitted")
	sendCmd.Flags().BoolP("response", "r", false, "Read one line of response after sending")
}

func promptForData() string {
	fmt.Print(styles.Prompt.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func sendData(portPath string, data []byte, drain, response bool, eol string) error {
	fmt.Printf("%s Opening %s...\n", styles.InfoMark.Render("⚡"), portPath)

	opts, err := portOptions()
	if err != nil {
		return err
	}
	port, err := serial.Open(portPath, opts...)
	if err != nil {
		return err
	}
	defer port.Close()

	fmt.Printf("%s Connected (%s)\n", styles.SuccessMark.Render("✓"), port.GetConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("%s Sending %d bytes...\n", styles.InfoMark.Render("📤"), len(data))

	n, err := port.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	if n < len(data) {
		return fmt.Errorf("write timed out after %d of %d bytes", n, len(data))
	}
	if drain {
		if err := port.Drain(); err != nil {
			return fmt.Errorf("failed to drain output: %w", err)
		}
	}

	fmt.Printf("%s Successfully sent %d bytes\n", styles.SuccessMark.Render("✓"), n)
	fmt.Printf("%s Data: %s\n", styles.InfoMark.Render("📋"), printable(data, 50))

	if !response {
		return nil
	}
	line, err := port.ReadLine(0, eol)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if line == "" {
		fmt.Printf("%s No response within %s\n", styles.InfoMark.Render("⌛"), port.GetTimeout().ReadBudget(1))
		return nil
	}
	fmt.Printf("%s Response: %s\n", styles.SuccessMark.Render("📥"), printable([]byte(line), 0))
	return nil
}
