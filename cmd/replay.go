/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/go-serialport/internal/capture"
	"github.com/spf13/cobra"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <database> [session]",
	Short: "List or replay sessions stored by capture --sqlite",
	Long: `Inspect a capture database written by 'serial capture --sqlite'.

Without a session id the stored sessions are listed. With one, the session's
chunks are written to stdout, or to a serial port with --to. --paced keeps
the original gaps between chunks.

Example usage:
  serial replay capture.db
  serial replay capture.db 4f1c2a9e-... --hex
  serial replay capture.db 4f1c2a9e-... --to /dev/ttyUSB1 --paced`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		db, err := capture.NewSQLiteSink(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if len(args) == 1 {
			sessions, err := db.Sessions()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions stored")
				return
			}
			for _, s := range sessions {
				fmt.Println(s)
			}
			return
		}

		chunks, err := db.Chunks(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(chunks) == 0 {
			fmt.Fprintf(os.Stderr, "Error: no chunks for session %s\n", args[1])
			os.Exit(1)
		}

		to, _ := cmd.Flags().GetString("to")
		paced, _ := cmd.Flags().GetBool("paced")
		asHex, _ := cmd.Flags().GetBool("hex")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		write := func(_ context.Context, data []byte) error {
			if asHex {
				_, err := fmt.Print(hex.Dump(data))
				return err
			}
			_, err := os.Stdout.Write(data)
			return err
		}
		if to != "" {
			port := openPort(to)
			defer port.Close()
			write = func(ctx context.Context, data []byte) error {
				n, err := port.WriteContext(ctx, data)
				if err == nil && n < len(data) {
					err = fmt.Errorf("write timed out after %d of %d bytes", n, len(data))
				}
				return err
			}
		}

		if err := replayChunks(ctx, chunks, paced, write); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().String("to", "", "Write the session to this serial port instead of stdout")
	replayCmd.Flags().Bool("paced", false, "Keep the recorded gaps between chunks")
	replayCmd.Flags().BoolP("hex", "x", false, "Hex dump instead of raw bytes (stdout only)")
}

// replayChunks hands each chunk to write in order. With paced set it waits
// out the recorded gap before each chunk.
func replayChunks(ctx context.Context, chunks []capture.Chunk, paced bool, write func(context.Context, []byte) error) error {
	for i, c := range chunks {
		if paced && i > 0 {
			if gap := c.Time.Sub(chunks[i-1].Time); gap > 0 {
				timer := time.NewTimer(gap)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		if err := write(ctx, c.Data); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}
