// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// fakeConn records every write as a separate frame
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	closes   int
	writeErr error
	closeErr error
	short    bool
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.frames = append(c.frames, append([]byte(nil), p...))
	if c.short {
		return len(p) - 1, nil
	}
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return c.closeErr
}

func (c *fakeConn) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

// fakeOpener hands out conn and records the requested targets. The first
// failures calls fail.
type fakeOpener struct {
	conn     *fakeConn
	failures int
	opened   []Target
}

var errNoSuchPort = errors.New("no such file or directory")

func (o *fakeOpener) Open(port string, baud int) (io.WriteCloser, error) {
	o.opened = append(o.opened, Target{Port: port, Baud: baud})
	if o.failures > 0 {
		o.failures--
		return nil, errNoSuchPort
	}
	return o.conn, nil
}

// scriptReader returns canned lines, then io.EOF
type scriptReader struct {
	lines []string
}

func (r *scriptReader) ReadLine() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}
