// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/mcuconsole/internal/capture"
	"github.com/Thermoquad/mcuconsole/pkg/console"
	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
)

var (
	replayFile   string
	replayDryRun bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-send frames from a capture file",
	Long: `Read a capture written with --capture and send its frames again, in
order, with the configured pause between them.

With --dry-run the frames are only printed and no port is opened. Records
whose bytes are not a valid frame are reported and skipped.`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "Capture file to replay")
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "Print frames without sending")
	replayCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	records, err := capture.ReadFile(replayFile)
	if err != nil {
		return err
	}

	encoder := mcuproto.NewEncoder(mcuproto.DefaultTables())
	frames := make([]mcuproto.Frame, 0, len(records))
	labels := make([]string, 0, len(records))
	for i, rec := range records {
		f, err := rec.Frame()
		if err == nil {
			err = encoder.Validate(f)
		}
		if err != nil {
			fmt.Printf("Record %d skipped (%s): %v\n", i+1, mcuproto.FormatHex(rec.Wire), err)
			continue
		}
		frames = append(frames, f)
		labels = append(labels, rec.Label)
	}

	fmt.Printf("%d of %d records from %s\n", len(frames), len(records), replayFile)

	if replayDryRun {
		for i, f := range frames {
			fmt.Printf("%s %s\n", encoder.FormatFrame(f), labels[i])
		}
		return nil
	}

	// Replays are not captured again
	cfg.Capture.File = ""

	l, err := connect(context.Background(), console.NewLineReader(os.Stdin), os.Stdout)
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

	for i, f := range frames {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Session.Pause):
			}
		}
		// Re-stamp so the printed time is the send time
		f, _ = mcuproto.ParseFrame(f.Bytes())
		if err := transmitAndPrint(ctx, l, f, labels[i]); err != nil {
			logger.Error("Replay stopped", zap.Int("record", i+1), zap.Error(err))
			return err
		}
	}
	return nil
}
