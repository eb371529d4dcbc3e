/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/monitoring"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serial",
	Short: "Inspect and talk to serial ports",
	Long: `serial is a toolbox for Linux serial ports built on the go-serialport library.

Port settings are shared by every command and can come from flags, from
SERIAL_* environment variables (a .env file in the working directory is
loaded first) or from $HOME/.serial.yaml:

  baud: 115200
  data-bits: 8
  parity: none
  stop-bits: "1"
  flow-control: hardware
  dtr: enable
  timeout: 1s`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serial.yaml)")
	pf.IntP("baud", "b", 115200, "Baud rate")
	pf.Int("data-bits", 8, "Data bits: 5, 6, 7 or 8")
	pf.String("parity", "none", "Parity: none, odd, even, mark, space")
	pf.String("stop-bits", "1", "Stop bits: 1, 1.5, 2")
	pf.StringP("flow-control", "f", "none", "Flow control: none, software (xonxoff), hardware (rtscts)")
	pf.String("dtr", "enable", "DTR on open: disable, enable, handshake")
	pf.Duration("timeout", time.Second, "Read/write timeout per call (0 returns immediately)")
	pf.Duration("inter-byte", 0, "End a read after this much silence once data arrived (0 = off)")
	pf.BoolP("verbose", "v", false, "Log port open, close and reconfigure events")

	cobra.CheckErr(viper.BindPFlags(pf))
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serial")
	}

	viper.SetEnvPrefix("serial")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	if !viper.GetBool("verbose") {
		monitoring.SetLogger(nil)
	}
}

// portOptions turns the shared port settings into library options.
func portOptions() ([]serial.Option, error) {
	return buildOptions(portSettings{
		Baud:        viper.GetInt("baud"),
		DataBits:    viper.GetInt("data-bits"),
		Parity:      viper.GetString("parity"),
		StopBits:    viper.GetString("stop-bits"),
		FlowControl: viper.GetString("flow-control"),
		DTR:         viper.GetString("dtr"),
		Timeout:     viper.GetDuration("timeout"),
		InterByte:   viper.GetDuration("inter-byte"),
	})
}

// openPort opens path with the shared settings, exiting on failure.
func openPort(path string) serial.Port {
	opts, err := portOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	port, err := serial.Open(path, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
		os.Exit(1)
	}
	return port
}

// previewConfig applies opts to the default config without opening anything.
func previewConfig(opts []serial.Option) serial.Config {
	config := serial.DefaultConfig()
	for _, opt := range opts {
		// buildOptions already validated every value.
		_ = opt(&config)
	}
	return config
}
