// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
	"go.uber.org/zap"
)

// DefaultPause is the gap between dispatched instructions. It gives the
// board time to service one interrupt before the next frame arrives.
const DefaultPause = 500 * time.Millisecond

const probeLabel = "probe"

// ErrTerminated is returned when dispatching on a finished session
var ErrTerminated = errors.New("session terminated")

// State is the session state
type State int

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Transmitter is the write side of the connection used by a session
type Transmitter interface {
	TransmitLabeled(ctx context.Context, f mcuproto.Frame, label string) error
	Close() error
}

// SessionOptions configures a Session
type SessionOptions struct {
	Pins   mcuproto.PinReader // pin prompt for pinhi/pinlo
	Out    io.Writer          // user-facing text, defaults to io.Discard
	Logger *zap.Logger
	Stats  *Statistics
	Pause  time.Duration // gap between iterations of Run
	Echo   bool          // print every transmitted frame
}

// Session reads instructions one at a time, encodes them and pushes the
// frames through the connection until "exit" or a transmit failure.
type Session struct {
	encoder *mcuproto.Encoder
	link    Transmitter
	pins    mcuproto.PinReader
	out     io.Writer
	logger  *zap.Logger
	stats   *Statistics
	pause   time.Duration
	echo    bool
	state   State
}

// NewSession creates a session over an open connection
func NewSession(encoder *mcuproto.Encoder, link Transmitter, opts SessionOptions) *Session {
	s := &Session{
		encoder: encoder,
		link:    link,
		pins:    opts.Pins,
		out:     opts.Out,
		logger:  opts.Logger,
		stats:   opts.Stats,
		pause:   opts.Pause,
		echo:    opts.Echo,
		state:   StateRunning,
	}
	if s.out == nil {
		s.out = io.Discard
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.stats == nil {
		s.stats = NewStatistics()
	}
	s.logger = s.logger.With(zap.String("component", "session"))
	return s
}

// State returns the current state
func (s *Session) State() State {
	return s.state
}

// Stats returns the session statistics
func (s *Session) Stats() *Statistics {
	return s.stats
}

// Start prints the banner and sends the connection probe. The probe
// provokes the firmware's default response, which announces the board.
func (s *Session) Start(ctx context.Context) error {
	fmt.Fprintf(s.out, "Listening for commands. Type 'c' for list of commands. Type 'exit' to exit\n")
	s.printHelp()

	probe, err := s.encoder.Probe()
	if err != nil {
		s.logger.Error("No probe opcode, ending session", zap.Error(err))
		s.terminate()
		return err
	}
	_, err = s.transmit(ctx, probe, probeLabel)
	return err
}

// Dispatch handles one line of input
func (s *Session) Dispatch(ctx context.Context, line string) (State, error) {
	return s.DispatchWith(ctx, line, s.pins)
}

// DispatchWith handles one line of input, reading pin numbers from pins
func (s *Session) DispatchWith(ctx context.Context, line string, pins mcuproto.PinReader) (State, error) {
	if s.state == StateTerminated {
		return s.state, ErrTerminated
	}

	switch line {
	case mcuproto.InstrExit:
		return s.terminate()
	case mcuproto.InstrHelp:
		s.printHelp()
		return s.state, nil
	}

	frame, err := s.encoder.Encode(line, pins)
	switch {
	case err == nil:
		return s.transmit(ctx, frame, line)
	case errors.Is(err, mcuproto.ErrUnrecognized):
		s.stats.RecordUnrecognized()
		fmt.Fprintf(s.out, "Press c for list of commands\n")
		return s.state, nil
	case errors.Is(err, ErrAbort):
		fmt.Fprintf(s.out, "Cancelled %s\n", line)
		return s.state, nil
	case errors.Is(err, io.EOF):
		return s.terminate()
	default:
		s.logger.Warn("Instruction not sent", zap.String("instruction", line), zap.Error(err))
		fmt.Fprintf(s.out, "Could not send %s: %v\n", line, err)
		return s.state, nil
	}
}

// Run dispatches lines from in until the session terminates, the input
// ends, or ctx is cancelled. A transmit failure ends the session and is
// returned.
func (s *Session) Run(ctx context.Context, in LineReader) error {
	for s.state == StateRunning {
		if err := ctx.Err(); err != nil {
			s.terminate()
			return err
		}

		line, err := in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				_, err = s.terminate()
				return err
			}
			s.terminate()
			return fmt.Errorf("read input: %w", err)
		}

		state, err := s.Dispatch(ctx, line)
		if state == StateTerminated {
			return err
		}

		select {
		case <-ctx.Done():
			s.terminate()
			return ctx.Err()
		case <-time.After(s.pause):
		}
	}
	return nil
}

func (s *Session) transmit(ctx context.Context, f mcuproto.Frame, label string) (State, error) {
	if err := s.link.TransmitLabeled(ctx, f, label); err != nil {
		s.stats.RecordTransmitError()
		s.logger.Error("Transmit failed, ending session", zap.String("instruction", label), zap.Error(err))
		fmt.Fprintf(s.out, "Transmit failed: %v\n", err)
		s.terminate()
		return s.state, err
	}

	s.stats.RecordFrame(label, f)
	if s.echo {
		fmt.Fprintf(s.out, "%s\n", s.encoder.FormatFrame(f))
	}
	return s.state, nil
}

func (s *Session) terminate() (State, error) {
	s.state = StateTerminated
	if err := s.link.Close(); err != nil {
		s.logger.Warn("Close failed", zap.Error(err))
		return s.state, err
	}
	return s.state, nil
}

func (s *Session) printHelp() {
	names := make([]string, 0, 4)
	for _, c := range s.encoder.Commands() {
		names = append(names, "'"+c.Name+"'")
	}
	fmt.Fprintf(s.out, "Default commands are %s\n", strings.Join(names, ", "))
}
