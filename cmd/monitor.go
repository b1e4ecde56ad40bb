// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/mcuconsole/pkg/console"
	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
	"github.com/Thermoquad/mcuconsole/pkg/transport"
)

var (
	monitorHex   bool
	monitorProbe bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display what the board writes back",
	Long: `Open the port and print everything the board sends, one timestamped line
at a time. Nothing is sent unless --probe is given, in which case the probe
frame goes out first so the board announces itself.

Run it in a second terminal over a bridge, or on its own to watch a board's
output. Press Ctrl+C to exit.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorHex, "hex", false, "Dump raw bytes in hex instead of text lines")
	monitorCmd.Flags().BoolVar(&monitorProbe, "probe", false, "Send the probe frame first")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	target, err := negotiateTarget(context.Background())
	if errors.Is(err, console.ErrAbort) {
		return nil
	}
	if err != nil {
		return err
	}

	conn, err := openConnection(target.Port, target.Baud)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("mcuconsole - Monitor\n")
	if cfg.Bridge.URL != "" {
		fmt.Printf("Connection: WebSocket: %s\n", target.Port)
	} else {
		fmt.Printf("Connection: Serial: %s @ %d baud\n", target.Port, target.Baud)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if monitorProbe {
		probe, err := mcuproto.NewEncoder(mcuproto.DefaultTables()).Probe()
		if err != nil {
			return err
		}
		if _, err := conn.Write(probe.Bytes()); err != nil {
			return fmt.Errorf("send probe: %w", err)
		}
		logger.Debug("Probe sent", zap.Binary("data", probe.Bytes()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Closing the connection unblocks the pending read
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	monitor := console.NewMonitor(conn, os.Stdout, monitorHex, logger)
	err = monitor.Run(ctx, transport.ErrConnectionClosed)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// negotiateTarget asks for whatever the configuration leaves open, without
// opening anything
func negotiateTarget(ctx context.Context) (console.Target, error) {
	if cfg.Bridge.URL != "" {
		return console.Target{Port: cfg.Bridge.URL, Baud: cfg.Serial.Baud}, nil
	}

	target := console.Target{Port: cfg.Serial.Port, Baud: cfg.Serial.Baud}
	n := console.NewNegotiator(mcuproto.DefaultTables(), listPorts, console.NewLineReader(os.Stdin), os.Stdout, logger)

	if target.Port == "" {
		port, err := n.Port(ctx)
		if err != nil {
			return console.Target{}, err
		}
		target.Port = port
	}
	if target.Baud == 0 {
		baud, err := n.Baud(ctx)
		if err != nil {
			return console.Target{}, err
		}
		target.Baud = baud
	}
	return target, nil
}
