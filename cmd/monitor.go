/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
)

var (
	monitorSignals []string
	monitorWait    time.Duration
	monitorKernel  bool
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Monitor modem signal changes",
	Long: `Monitor modem control signal changes in real-time.

Watches specified signals and reports when they change state. Press Ctrl+C to stop.

By default the lines are sampled every few milliseconds, which works with
any driver. --kernel blocks in the driver until any input line toggles
instead; it catches short pulses but cannot be interrupted until the next
change.

Examples:
  serial monitor /dev/ttyUSB0
  serial monitor /dev/ttyUSB0 --signals cts,dsr
  serial monitor /dev/ttyUSB0 --signals dcd --wait 30s
  serial monitor /dev/ttyUSB0 --kernel

Available signals: cts, dsr, ri, dcd`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing signals: %v\n", err)
			os.Exit(1)
		}

		port := openPort(portPath)
		defer port.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Monitoring signals on %s (signals: %s)\n", portPath, mask)
		fmt.Println("Press Ctrl+C to stop")

		initial, err := port.GetModemSignals()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading initial signals: %v\n", err)
			os.Exit(1)
		}
		printSignals("Initial state", initial, mask)

		if monitorKernel {
			err = monitorEdges(ctx, port, initial, mask)
		} else {
			err = monitorPolling(ctx, port, mask)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error waiting for signal change: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nStopping monitor...")
	},
}

func monitorPolling(ctx context.Context, port serial.Port, mask serial.SignalMask) error {
	for {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if monitorWait > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, monitorWait)
		}
		signals, changed, err := port.WaitForSignalChangeContext(waitCtx, mask)
		cancel()

		switch {
		case err == nil:
			printSignals("Signal change detected", signals, changed)
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, context.DeadlineExceeded):
			fmt.Printf("[%s] Timeout - no signal changes\n", time.Now().Format("15:04:05"))
		default:
			return err
		}
	}
}

// monitorEdges blocks in the driver. The wait cannot be cancelled, so
// Ctrl+C is only noticed after the next change.
func monitorEdges(ctx context.Context, port serial.Port, last serial.ModemSignals, mask serial.SignalMask) error {
	for ctx.Err() == nil {
		if err := port.WaitForChange(); err != nil {
			return err
		}
		now, err := port.GetModemSignals()
		if err != nil {
			return err
		}
		if changed := changedSignals(last, now) & mask; changed != 0 {
			printSignals("Signal change detected", now, changed)
		}
		last = now
	}
	return nil
}

func changedSignals(a, b serial.ModemSignals) serial.SignalMask {
	var m serial.SignalMask
	if a.CTS != b.CTS {
		m |= serial.SignalCTS
	}
	if a.DSR != b.DSR {
		m |= serial.SignalDSR
	}
	if a.RI != b.RI {
		m |= serial.SignalRI
	}
	if a.DCD != b.DCD {
		m |= serial.SignalDCD
	}
	return m
}

func printSignals(title string, signals serial.ModemSignals, mask serial.SignalMask) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s:\n", time.Now().Format("15:04:05.000"), title)
	for _, line := range []struct {
		bit   serial.SignalMask
		label string
		state bool
	}{
		{serial.SignalCTS, "CTS:", signals.CTS},
		{serial.SignalDSR, "DSR:", signals.DSR},
		{serial.SignalRI, "RI: ", signals.RI},
		{serial.SignalDCD, "DCD:", signals.DCD},
	} {
		if mask&line.bit != 0 {
			fmt.Fprintf(&b, "  %s %s\n", line.label, formatSignalState(line.state))
		}
	}
	fmt.Println(b.String())
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,ri,dcd)")
	monitorCmd.Flags().DurationVarP(&monitorWait, "wait", "w", 0,
		"Report a timeout when nothing changes for this long (0 = wait forever)")
	monitorCmd.Flags().BoolVar(&monitorKernel, "kernel", false,
		"Block in the driver (TIOCMIWAIT) instead of sampling the lines")
}
