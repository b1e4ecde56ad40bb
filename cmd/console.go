// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/mcuconsole/pkg/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive command console (default)",
	Long: `Negotiate a serial port and baud rate, then read instructions from the
terminal and send each one to the board as a frame.

A probe frame is sent as soon as the port opens so the board announces
itself. Typing 'exit' or pressing Ctrl+C closes the port.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	in := console.NewLineReader(os.Stdin)
	out := os.Stdout

	l, err := connect(context.Background(), in, out)
	if errors.Is(err, console.ErrAbort) {
		return nil
	}
	if err != nil {
		return err
	}
	defer l.release()

	logger.Info("Console connected", zap.String("connection", l.describe()))

	stats := console.NewStatistics()
	session := console.NewSession(l.encoder, l.manager, console.SessionOptions{
		Pins:   l.negotiator,
		Out:    out,
		Logger: logger,
		Stats:  stats,
		Pause:  cfg.Session.Pause,
		Echo:   cfg.Session.Echo,
	})

	// The session blocks on stdin, so an interrupt is handled here:
	// the port is closed before the process exits.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	finished := make(chan struct{})
	defer close(finished)
	go watchInterrupt(quit, finished, func() {
		l.release()
		printStats(out, stats)
	}, os.Exit)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := session.Start(ctx); err != nil {
		printStats(out, stats)
		return err
	}
	err = session.Run(ctx, in)
	printStats(out, stats)
	return err
}

// interruptExitCode is the conventional status for a process ended by SIGINT
const interruptExitCode = 130

// watchInterrupt waits for a signal on quit and then runs release and
// exits. It returns without doing either once finished is closed.
func watchInterrupt(quit <-chan os.Signal, finished <-chan struct{}, release func(), exit func(int)) {
	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		release()
		exit(interruptExitCode)
	case <-finished:
	}
}

// printStats writes the session summary when --stats is set
func printStats(w io.Writer, stats *console.Statistics) {
	if !cfg.Session.Stats {
		return
	}
	stats.CalculateRates()
	fmt.Fprintf(w, "\n%s", stats.String())
}
