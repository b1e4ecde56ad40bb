// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Thermoquad/mcuconsole/internal/capture"
	"github.com/Thermoquad/mcuconsole/pkg/console"
	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
	"github.com/Thermoquad/mcuconsole/pkg/transport"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("MCUCONSOLE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// openConnection opens the configured transport. With a bridge URL
// configured the port and baud are ignored and the bridge is dialed.
func openConnection(port string, baud int) (transport.Connection, error) {
	if cfg.Bridge.URL == "" {
		conn, err := transport.OpenSerial(port, baud)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	password := ""
	if cfg.Bridge.Username != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, err
		}
	}

	conn, err := transport.OpenWebSocket(transport.BridgeOptions{
		URL:           cfg.Bridge.URL,
		Username:      cfg.Bridge.Username,
		Password:      password,
		SkipSSLVerify: cfg.Bridge.NoSSLVerify,
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// openLink is the console.Opener used by every sending command
func openLink(port string, baud int) (io.WriteCloser, error) {
	return openConnection(port, baud)
}

// listPorts feeds the port prompt
var listPorts = console.PortListFunc(transport.ListPorts)

// link bundles the pieces every connected command needs
type link struct {
	tables     *mcuproto.Tables
	encoder    *mcuproto.Encoder
	manager    *console.Manager
	negotiator *console.Negotiator
	recorder   *capture.Recorder
	target     console.Target
}

// connect negotiates and opens a connection, prompting on in/out for
// whatever the configuration leaves open. A bridge URL skips negotiation.
func connect(ctx context.Context, in console.LineReader, out io.Writer) (*link, error) {
	tables := mcuproto.DefaultTables()
	l := &link{
		tables:     tables,
		encoder:    mcuproto.NewEncoder(tables),
		manager:    console.NewManager(openLink, logger),
		negotiator: console.NewNegotiator(tables, listPorts, in, out, logger),
	}

	if cfg.Capture.File != "" {
		rec, err := capture.Create(cfg.Capture.File)
		if err != nil {
			return nil, err
		}
		l.recorder = rec
		l.manager.SetRecorder(rec)
	}

	if cfg.Bridge.URL != "" {
		if err := l.manager.Open(cfg.Bridge.URL, cfg.Serial.Baud); err != nil {
			l.release()
			return nil, err
		}
		l.target = console.Target{Port: cfg.Bridge.URL, Baud: cfg.Serial.Baud}
		return l, nil
	}

	preset := console.Target{Port: cfg.Serial.Port, Baud: cfg.Serial.Baud}
	target, err := console.NewConnector(l.negotiator, l.manager, out, logger).Connect(ctx, preset)
	if err != nil {
		l.release()
		return nil, err
	}
	l.target = target
	return l, nil
}

// describe names the connection for status lines
func (l *link) describe() string {
	if cfg.Bridge.URL != "" {
		return fmt.Sprintf("WebSocket: %s", l.target.Port)
	}
	return fmt.Sprintf("Serial: %s @ %d baud", l.target.Port, l.target.Baud)
}

// release closes the connection and the capture file
func (l *link) release() {
	if err := l.manager.Close(); err != nil {
		logger.Warn("Close failed during release", zap.Error(err))
	}
	if l.recorder != nil {
		if err := l.recorder.Close(); err != nil {
			logger.Warn("Capture close failed", zap.Error(err))
		}
	}
}
