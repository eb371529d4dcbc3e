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
	"syscall"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/capture"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> [output-file]",
	Short: "Capture serial data to a file, SQLite database or MQTT topic",
	Long: `Capture incoming serial data for later parsing.

Reads data from the specified serial port and hands every chunk to each
configured sink. Runs continuously until interrupted (Ctrl+C).

Sinks:
- output-file: raw bytes, opened in append mode so captures can be resumed
- --sqlite:    one row per chunk with session id, port and timestamp
- --mqtt-broker/--mqtt-topic: one message per chunk

MQTT settings can also come from SERIAL_MQTT_BROKER, SERIAL_MQTT_TOPIC,
SERIAL_MQTT_USERNAME and SERIAL_MQTT_PASSWORD.

Example usage:
  serial capture /dev/ttyUSB0 data.log
  serial capture /dev/ttyUSB0 --sqlite capture.db --console
  serial capture /dev/ttyUSB0 --mqtt-broker tcp://localhost:1883 --mqtt-topic serial/raw
  serial capture /dev/ttyUSB0 capture.log --flow-control hardware -c`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		var outputPath string
		if len(args) == 2 {
			outputPath = args[1]
		}

		bufferSize, _ := cmd.Flags().GetInt("buffer")
		showConsole, _ := cmd.Flags().GetBool("console")
		sqlitePath, _ := cmd.Flags().GetString("sqlite")

		mqttOpts := capture.MQTTOptions{
			Broker:   viper.GetString("mqtt-broker"),
			Topic:    viper.GetString("mqtt-topic"),
			ClientID: viper.GetString("mqtt-client-id"),
			Username: viper.GetString("mqtt-username"),
			Password: viper.GetString("mqtt-password"),
			QoS:      byte(viper.GetInt("mqtt-qos")),
			Timeout:  10 * time.Second,
		}

		sink, err := openSinks(outputPath, sqlitePath, mqttOpts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if sink == nil && !showConsole {
			fmt.Fprintln(os.Stderr, "Error: nothing to capture to (give an output file, --sqlite, --mqtt-broker or --console)")
			os.Exit(1)
		}
		if sink == nil {
			sink = capture.Multi()
		}

		if err := runCapture(portPath, sink, bufferSize, showConsole); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int("buffer", 4096, "Read buffer size")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
	captureCmd.Flags().String("sqlite", "", "Also store chunks in this SQLite database")
	captureCmd.Flags().String("mqtt-broker", "", "Also publish chunks to this MQTT broker (tcp://host:1883)")
	captureCmd.Flags().String("mqtt-topic", "", "MQTT topic to publish to")
	captureCmd.Flags().String("mqtt-client-id", "", "MQTT client id (default: serial-capture-<pid>)")
	captureCmd.Flags().String("mqtt-username", "", "MQTT username")
	captureCmd.Flags().String("mqtt-password", "", "MQTT password")
	captureCmd.Flags().Int("mqtt-qos", 0, "MQTT QoS level (0, 1 or 2)")

	for _, name := range []string{"mqtt-broker", "mqtt-topic", "mqtt-client-id", "mqtt-username", "mqtt-password", "mqtt-qos"} {
		cobra.CheckErr(viper.BindPFlag(name, captureCmd.Flags().Lookup(name)))
	}
}

// openSinks builds the requested sinks. It returns nil when none was asked for.
func openSinks(outputPath, sqlitePath string, mqttOpts capture.MQTTOptions) (capture.Sink, error) {
	var sinks []capture.Sink
	fail := func(err error) (capture.Sink, error) {
		return nil, errors.Join(err, capture.Multi(sinks...).Close())
	}

	if outputPath != "" {
		file, err := capture.NewFileSink(outputPath)
		if err != nil {
			return fail(fmt.Errorf("failed to open output file: %w", err))
		}
		sinks = append(sinks, file)
	}
	if sqlitePath != "" {
		db, err := capture.NewSQLiteSink(sqlitePath)
		if err != nil {
			return fail(fmt.Errorf("failed to open sqlite database: %w", err))
		}
		sinks = append(sinks, db)
	}
	if mqttOpts.Broker != "" {
		if mqttOpts.QoS > 2 {
			return fail(fmt.Errorf("invalid MQTT QoS: %d", mqttOpts.QoS))
		}
		if mqttOpts.ClientID == "" {
			mqttOpts.ClientID = fmt.Sprintf("serial-capture-%d", os.Getpid())
		}
		pub, err := capture.NewMQTTSink(mqttOpts)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to MQTT broker: %w", err))
		}
		sinks = append(sinks, pub)
	}

	if len(sinks) == 0 {
		return nil, nil
	}
	return capture.Multi(sinks...), nil
}

func runCapture(portPath string, sink capture.Sink, bufferSize int, showConsole bool) (err error) {
	defer func() {
		err = errors.Join(err, sink.Close())
	}()

	opts, err := portOptions()
	if err != nil {
		return err
	}
	port, err := serial.Open(portPath, opts...)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := capture.NewRecorder(portPath, sink)
	rec.BufferSize = bufferSize
	if showConsole {
		rec.Echo = os.Stdout
	}

	fmt.Fprintf(os.Stderr, "Capturing data from %s (%s), session %s\n", portPath, port.GetConfig(), rec.Session)
	if showConsole {
		fmt.Fprintf(os.Stderr, "Console display enabled\n")
	}
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	stats, err := rec.Run(ctx, port)
	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes in %d chunks over %v\n",
		stats.Bytes, stats.Chunks, stats.Duration.Round(time.Millisecond))
	return err
}
