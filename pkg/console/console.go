// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package console implements the host side of the serial command console:
// port and baud negotiation, ownership of the connection, and the session
// loop that turns typed instructions into frames.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Target is a negotiated port and baud rate. Zero fields are asked for
// interactively.
type Target struct {
	Port string
	Baud int
}

// Connector negotiates a target and opens the Manager on it
type Connector struct {
	negotiator *Negotiator
	manager    *Manager
	out        io.Writer
	logger     *zap.Logger
}

// NewConnector creates a Connector. logger may be nil.
func NewConnector(n *Negotiator, m *Manager, out io.Writer, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{negotiator: n, manager: m, out: out, logger: logger}
}

// Connect negotiates whatever preset leaves open and opens the connection.
// If opening fails, the failure is reported and negotiation starts over
// from the port prompt; presets are not reused after a failure.
//
// It returns ErrAbort when the user types "exit" at a prompt.
func (c *Connector) Connect(ctx context.Context, preset Target) (Target, error) {
	for {
		target := preset

		if target.Port == "" {
			port, err := c.negotiator.Port(ctx)
			if err != nil {
				return Target{}, err
			}
			target.Port = port
		}

		if target.Baud == 0 {
			baud, err := c.negotiator.Baud(ctx)
			if err != nil {
				return Target{}, err
			}
			target.Baud = baud
		}

		err := c.manager.Open(target.Port, target.Baud)
		if err == nil {
			return target, nil
		}

		var openErr *OpenError
		if !errors.As(err, &openErr) {
			return Target{}, err
		}

		c.logger.Warn("Open failed, restarting negotiation", zap.Error(err))
		fmt.Fprintf(c.out, "There was a problem opening the port: %v\n", openErr.Err)
		preset = Target{}
	}
}
