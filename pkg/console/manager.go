// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
	"go.uber.org/zap"
)

var (
	// ErrNotOpen is returned when transmitting without a live connection
	ErrNotOpen = errors.New("connection not open")
	// ErrAlreadyOpen is returned by Open while a connection is live
	ErrAlreadyOpen = errors.New("connection already open")
)

// OpenError reports a failed open attempt
type OpenError struct {
	Port string
	Baud int
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s @ %d baud: %v", e.Port, e.Baud, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// TransmitError reports a failed frame write
type TransmitError struct {
	Frame mcuproto.Frame
	Err   error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmit % X: %v", e.Frame.Bytes(), e.Err)
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}

// Opener opens the byte transport for a port at a baud rate
type Opener func(port string, baud int) (io.WriteCloser, error)

// FrameRecorder is notified of every frame written to the device
type FrameRecorder interface {
	Record(f mcuproto.Frame, label string) error
}

// Manager owns the single connection to the device. It is write-only:
// bytes coming back from the firmware are never read.
//
// Access is sequential; the mutex only covers a Close from the interrupt
// handler racing the session.
type Manager struct {
	open     Opener
	logger   *zap.Logger
	recorder FrameRecorder

	mu   sync.Mutex
	conn io.WriteCloser
	port string
	baud int
}

// NewManager creates a Manager. logger may be nil.
func NewManager(open Opener, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		open:   open,
		logger: logger.With(zap.String("component", "connection")),
	}
}

// SetRecorder attaches a recorder for transmitted frames
func (m *Manager) SetRecorder(r FrameRecorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = r
}

// Open makes exactly one attempt to open the connection
func (m *Manager) Open(port string, baud int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return ErrAlreadyOpen
	}

	conn, err := m.open(port, baud)
	if err != nil {
		m.logger.Error("Failed to open connection",
			zap.Error(err),
			zap.String("port", port),
			zap.Int("baud_rate", baud),
		)
		return &OpenError{Port: port, Baud: baud, Err: err}
	}

	m.conn = conn
	m.port = port
	m.baud = baud

	m.logger.Info("Connection opened",
		zap.String("port", port),
		zap.Int("baud_rate", baud),
	)
	return nil
}

// Transmit writes one frame
func (m *Manager) Transmit(ctx context.Context, f mcuproto.Frame) error {
	return m.TransmitLabeled(ctx, f, "")
}

// TransmitLabeled writes one frame and records it under label
func (m *Manager) TransmitLabeled(ctx context.Context, f mcuproto.Frame, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return ErrNotOpen
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data := f.Bytes()
	n, err := m.conn.Write(data)
	if err != nil {
		m.logger.Error("Failed to write frame",
			zap.Error(err),
			zap.Int("bytes_to_write", len(data)),
		)
		return &TransmitError{Frame: f, Err: err}
	}
	if n != len(data) {
		return &TransmitError{Frame: f, Err: fmt.Errorf("incomplete write: wrote %d of %d bytes: %w", n, len(data), io.ErrShortWrite)}
	}

	m.logger.Debug("Frame written",
		zap.String("label", label),
		zap.Binary("data", data),
	)

	if m.recorder != nil {
		if err := m.recorder.Record(f, label); err != nil {
			m.logger.Warn("Failed to record frame", zap.Error(err))
		}
	}
	return nil
}

// Close closes the connection. It is safe to call on a closed or
// never-opened Manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}

	err := m.conn.Close()
	m.conn = nil
	if err != nil {
		m.logger.Error("Failed to close connection", zap.Error(err))
		return fmt.Errorf("close %s: %w", m.port, err)
	}

	m.logger.Info("Connection closed", zap.String("port", m.port))
	return nil
}

// IsOpen reports whether a connection is live
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Target returns the port and baud rate of the last successful Open
func (m *Manager) Target() (string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port, m.baud
}
