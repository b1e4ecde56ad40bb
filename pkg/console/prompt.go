// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
	"go.uber.org/zap"
)

// LineReader yields one line of user input at a time, without the line
// terminator. It returns io.EOF when input is exhausted.
type LineReader interface {
	ReadLine() (string, error)
}

// ScannerReader reads lines from an io.Reader
type ScannerReader struct {
	scanner *bufio.Scanner
}

// NewLineReader creates a LineReader over r
func NewLineReader(r io.Reader) *ScannerReader {
	return &ScannerReader{scanner: bufio.NewScanner(r)}
}

// ReadLine returns the next line with any trailing carriage return removed
func (s *ScannerReader) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSuffix(s.scanner.Text(), "\r"), nil
}

// PortLister enumerates the serial ports available on the host.
// The order must be stable between calls.
type PortLister interface {
	ListPorts() ([]string, error)
}

// PortListFunc adapts a function to PortLister
type PortListFunc func() ([]string, error)

// ListPorts calls f
func (f PortListFunc) ListPorts() ([]string, error) {
	return f()
}

// Negotiator runs the interactive selection prompts. Each prompt is an
// explicit loop: invalid input is reported and asked for again until a
// valid choice, "exit", or the end of input.
type Negotiator struct {
	tables *mcuproto.Tables
	lister PortLister
	in     LineReader
	out    io.Writer
	logger *zap.Logger
}

// NewNegotiator creates a Negotiator. logger may be nil.
func NewNegotiator(tables *mcuproto.Tables, lister PortLister, in LineReader, out io.Writer, logger *zap.Logger) *Negotiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Negotiator{
		tables: tables.Clone(),
		lister: lister,
		in:     in,
		out:    out,
		logger: logger.With(zap.String("component", "negotiator")),
	}
}

// Port asks for a serial port and returns its name
func (n *Negotiator) Port(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		ports, err := n.lister.ListPorts()
		if err != nil {
			return "", fmt.Errorf("list serial ports: %w", err)
		}

		fmt.Fprintf(n.out, "Available serial ports. Type 'exit' to exit\n")
		if len(ports) == 0 {
			fmt.Fprintf(n.out, "  (none found, press enter to look again)\n")
		}
		for i, p := range ports {
			fmt.Fprintf(n.out, "%d) %s\n", i+1, p)
		}

		line, err := n.in.ReadLine()
		if err != nil {
			return "", err
		}

		idx, err := SelectPort(ports, line)
		if err == nil {
			n.logger.Debug("Port selected", zap.String("port", ports[idx]))
			return ports[idx], nil
		}
		if !n.retry(err, line) {
			return "", err
		}
	}
}

// Baud asks for a rate from the rate table
func (n *Negotiator) Baud(ctx context.Context) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		fmt.Fprintf(n.out, "Select the baud rate (must match the firmware build). Type 'exit' to exit\n")
		for i, r := range n.tables.Rates {
			fmt.Fprintf(n.out, "%d) %d\n", i+1, r)
		}

		line, err := n.in.ReadLine()
		if err != nil {
			return 0, err
		}

		baud, err := SelectBaud(n.tables.Rates, line)
		if err == nil {
			n.logger.Debug("Baud rate selected", zap.Int("baud", baud))
			return baud, nil
		}
		if !n.retry(err, line) {
			return 0, err
		}
	}
}

// ReadPin asks for a pin number. It implements mcuproto.PinReader.
func (n *Negotiator) ReadPin() (int, error) {
	last := len(n.tables.Pins) - 1
	for {
		fmt.Fprintf(n.out, "Type pin number. Valid pins are 0-%d, pin %d should be your onboard LED. Type 'exit' to cancel\n", last, last)

		line, err := n.in.ReadLine()
		if err != nil {
			return 0, err
		}

		idx, err := SelectPin(n.tables.Pins, line)
		if err == nil {
			return idx, nil
		}
		if !n.retry(err, line) {
			return 0, err
		}
	}
}

// retry prints recoverable selection errors and reports whether to ask again
func (n *Negotiator) retry(err error, line string) bool {
	var se *SelectionError
	if !errors.As(err, &se) {
		return false
	}
	n.logger.Debug("Selection rejected", zap.String("input", line), zap.String("what", se.What))
	fmt.Fprintf(n.out, "%s\n", capitalize(se.Error()))
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
