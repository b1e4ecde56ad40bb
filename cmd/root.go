// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/mcuconsole/internal/config"
	"github.com/Thermoquad/mcuconsole/internal/logging"
	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
)

var (
	configPath string

	// Loaded by PersistentPreRunE before any command runs
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "mcuconsole",
	Short: "Serial command console for the pin-control firmware",
	Long: `mcuconsole - A terminal client for boards running the pin-control firmware.

Pick a serial port and baud rate, then type instructions. Each instruction
is sent to the board as a one or two byte frame:

  flash led   blink the onboard LED
  pinhi       drive a pin high (asks for the pin)
  pinlo       drive a pin low (asks for the pin)
  status      ask the board for its pin states
  c           list commands
  exit        close the port and quit

Connection modes:
  Serial:    [--port /dev/ttyACM0] [--baud 9600]  (missing values are asked for)
  WebSocket: --url ws://host/path [--username user]

Settings may also come from mcuconsole.yaml or MCUCONSOLE_* environment
variables. For WebSocket authentication the password is read from
MCUCONSOLE_PASSWORD, or prompted for if not set.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runConsole,
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&configPath, "config", "", "Config file (default ./mcuconsole.yaml or ~/.config/mcuconsole/mcuconsole.yaml)")

	// Serial connection flags
	flags.StringP("port", "p", "", "Serial port device (skips the port prompt)")
	flags.IntP("baud", "b", 0, "Baud rate (skips the baud prompt)")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Session flags
	flags.Duration("pause", 0, "Pause between instructions (default 500ms)")
	flags.Bool("stats", false, "Print session statistics on exit")
	flags.Bool("echo", false, "Print every transmitted frame")
	flags.String("capture", "", "Record transmitted frames to a CBOR capture file")

	// Logging flags
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console, json)")
	flags.String("log-output", "", "Log output (stderr, stdout, discard or a file path)")
}

// setup loads configuration and builds the logger for every command
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	if loaded.Serial.Baud != 0 && !mcuproto.DefaultTables().HasRate(loaded.Serial.Baud) {
		return fmt.Errorf("unsupported baud rate %d (supported: %v)", loaded.Serial.Baud, mcuproto.DefaultTables().Rates)
	}

	l, err := logging.New(loaded.Logging)
	if err != nil {
		return err
	}

	cfg = loaded
	logger = l
	return nil
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}
