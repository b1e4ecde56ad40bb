// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
	"go.uber.org/zap"
)

// Monitor prints what the board writes back, one timestamped line per
// newline-terminated chunk. In hex mode every read is dumped as-is.
type Monitor struct {
	r      io.Reader
	out    io.Writer
	logger *zap.Logger
	hex    bool
	now    func() time.Time

	pending []byte
	lines   int
}

// NewMonitor creates a Monitor. logger may be nil.
func NewMonitor(r io.Reader, out io.Writer, hex bool, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		r:      r,
		out:    out,
		logger: logger.With(zap.String("component", "monitor")),
		hex:    hex,
		now:    time.Now,
	}
}

// Lines returns the number of lines printed so far
func (m *Monitor) Lines() int {
	return m.lines
}

// Run reads until the reader fails or ctx is cancelled. io.EOF, or any
// error matching one in stop, ends the monitor without error.
func (m *Monitor) Run(ctx context.Context, stop ...error) error {
	buf := make([]byte, 128)
	for {
		if err := ctx.Err(); err != nil {
			m.flush()
			return err
		}

		n, err := m.r.Read(buf)
		if n > 0 {
			m.feed(buf[:n])
		}
		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) || isStop(err, stop) {
			m.flush()
			return nil
		}
		m.flush()
		m.logger.Warn("Read failed", zap.Error(err))
		return fmt.Errorf("read: %w", err)
	}
}

func isStop(err error, stop []error) bool {
	for _, s := range stop {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func (m *Monitor) feed(data []byte) {
	if m.hex {
		m.print(mcuproto.FormatHex(data))
		return
	}

	m.pending = append(m.pending, data...)
	for {
		i := bytes.IndexByte(m.pending, '\n')
		if i < 0 {
			return
		}
		line := bytes.TrimRight(m.pending[:i], "\r")
		m.pending = m.pending[i+1:]
		m.print(string(line))
	}
}

// flush prints a trailing partial line
func (m *Monitor) flush() {
	if len(m.pending) == 0 {
		return
	}
	m.print(string(m.pending))
	m.pending = nil
}

func (m *Monitor) print(line string) {
	m.lines++
	fmt.Fprintf(m.out, "[%s] %s\n", m.now().Format("15:04:05.000"), line)
}
