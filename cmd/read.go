/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <port>",
	Short: "Read a fixed number of bytes",
	Long: `Read up to --count bytes and print them.

The read ends when --count bytes have arrived, when --timeout (plus
--per-byte for every requested byte) has passed, or, with --inter-byte,
when the line goes quiet after the first byte. Getting fewer bytes than
asked for is not an error; the count is reported on stderr.

Examples:
  serial read /dev/ttyUSB0 --count 16 --timeout 2s
  serial read /dev/ttyUSB0 --count 256 --inter-byte 50ms --hex`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		count, _ := cmd.Flags().GetInt("count")
		hexOut, _ := cmd.Flags().GetBool("hex")
		perByte, _ := cmd.Flags().GetDuration("per-byte")
		flush, _ := cmd.Flags().GetBool("flush")

		if count <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --count must be positive")
			os.Exit(1)
		}

		port := openPort(args[0])
		defer port.Close()

		if perByte > 0 {
			t := port.GetTimeout()
			t.ReadMultiplier = durationMillis(perByte)
			port.SetTimeout(t)
		}
		if flush {
			if err := port.FlushInput(); err != nil {
				fmt.Fprintf(os.Stderr, "Error flushing input: %v\n", err)
				os.Exit(1)
			}
		}

		buf := make([]byte, count)
		n, err := port.Read(buf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading: %v\n", err)
			os.Exit(1)
		}

		if hexOut {
			fmt.Print(hex.Dump(buf[:n]))
		} else {
			os.Stdout.Write(buf[:n])
		}
		fmt.Fprintf(os.Stderr, "read %d of %d bytes\n", n, count)
	},
}

// readlineCmd represents the readline command
var readlineCmd = &cobra.Command{
	Use:   "readline <port>",
	Short: "Read lines terminated by --eol",
	Long: `Read one line (or, with --all, every line that arrives back to back).

Each byte is waited for with the configured --timeout, so a line ends at
the terminator, at --max-size bytes or when the device stops sending.
The terminator is kept in the output.

Examples:
  serial readline /dev/ttyUSB0
  serial readline /dev/ttyACM0 --eol '\r\n' --all`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		maxSize, _ := cmd.Flags().GetInt("max-size")
		eolFlag, _ := cmd.Flags().GetString("eol")
		all, _ := cmd.Flags().GetBool("all")

		eol, err := unescape(eolFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		port := openPort(args[0])
		defer port.Close()

		var lines []string
		if all {
			lines, err = port.ReadLines(maxSize, eol)
		} else {
			var line string
			line, err = port.ReadLine(maxSize, eol)
			if line != "" {
				lines = []string{line}
			}
		}
		for _, line := range lines {
			fmt.Print(line)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading: %v\n", err)
			os.Exit(1)
		}
		if len(lines) == 0 {
			fmt.Fprintln(os.Stderr, "no data")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(readlineCmd)

	readCmd.Flags().IntP("count", "n", 1, "Number of bytes to read")
	readCmd.Flags().BoolP("hex", "x", false, "Print a hex dump instead of raw bytes")
	readCmd.Flags().Duration("per-byte", 0, "Extra time allowed per requested byte")
	readCmd.Flags().Bool("flush", false, "Discard queued input before reading")

	readlineCmd.Flags().Int("max-size", 0, "Maximum line length in bytes (0 = 65536)")
	readlineCmd.Flags().String("eol", `\n`, "Line terminator (escapes allowed)")
	readlineCmd.Flags().BoolP("all", "a", false, "Keep reading lines until one ends without the terminator")
}
