// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/mcuconsole/pkg/console"
	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
)

var (
	sendPin   int
	sendProbe bool
)

var sendCmd = &cobra.Command{
	Use:   "send [instruction]",
	Short: "Send a single instruction and exit",
	Long: `Open the port, send one instruction and close it again.

Examples:
  mcuconsole send status -p /dev/ttyACM0 -b 9600
  mcuconsole send pinhi --pin 13 -p /dev/ttyACM0 -b 9600
  mcuconsole send flash led
  mcuconsole send --probe

Port and baud rate are asked for when not given. Pin instructions without
--pin ask for the pin.`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().IntVar(&sendPin, "pin", -1, "Pin number for pinhi/pinlo")
	sendCmd.Flags().BoolVar(&sendProbe, "probe", false, "Send the probe frame first")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	instruction := strings.Join(args, " ")
	if instruction == "" && !sendProbe {
		return fmt.Errorf("an instruction or --probe is required")
	}

	tables := mcuproto.DefaultTables()
	if instruction != "" {
		c, ok := mcuproto.NewEncoder(tables).Lookup(instruction)
		if !ok {
			return fmt.Errorf("%w: %q", mcuproto.ErrUnrecognized, instruction)
		}
		if c.NeedsPin && sendPin >= 0 {
			if _, ok := tables.Pin(sendPin); !ok {
				return &mcuproto.TableError{Table: "pin", Value: sendPin, Size: len(tables.Pins)}
			}
		}
	}

	in := console.NewLineReader(os.Stdin)
	l, err := connect(context.Background(), in, os.Stdout)
	if errors.Is(err, console.ErrAbort) {
		return nil
	}
	if err != nil {
		return err
	}
	defer l.release()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if sendProbe {
		probe, err := l.encoder.Probe()
		if err != nil {
			return err
		}
		if err := transmitAndPrint(ctx, l, probe, "probe"); err != nil {
			return err
		}
	}
	if instruction == "" {
		return nil
	}

	var pins mcuproto.PinReader = l.negotiator
	if sendPin >= 0 {
		pins = mcuproto.FixedPin(sendPin)
	}

	frame, err := l.encoder.Encode(instruction, pins)
	if errors.Is(err, console.ErrAbort) {
		fmt.Printf("Cancelled %s\n", instruction)
		return nil
	}
	if err != nil {
		return err
	}
	return transmitAndPrint(ctx, l, frame, instruction)
}

func transmitAndPrint(ctx context.Context, l *link, f mcuproto.Frame, label string) error {
	if err := l.manager.TransmitLabeled(ctx, f, label); err != nil {
		return err
	}
	fmt.Println(l.encoder.FormatFrame(f))
	return nil
}
