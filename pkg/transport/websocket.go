// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned once the bridge connection has failed or
// been closed
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// Default bridge timeouts
const (
	bridgeDialTimeout      = 15 * time.Second
	bridgeHandshakeTimeout = 10 * time.Second
)

// WebSocketConnection carries raw serial bytes as binary WebSocket messages.
// Each Write becomes one message, so a frame is never split across messages.
type WebSocketConnection struct {
	conn    *websocket.Conn
	pending []byte // unread tail of the last binary message
	done    bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.done {
		return 0, ErrConnectionClosed
	}
	if len(w.pending) > 0 {
		return w.drain(p), nil
	}

	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			w.done = true
			return 0, err
		}
		// Bridges may send text status messages; only binary carries serial data
		if kind == websocket.BinaryMessage {
			w.pending = data
			return w.drain(p), nil
		}
	}
}

// drain copies as much of the pending message into p as fits
func (w *WebSocketConnection) drain(p []byte) int {
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if w.done {
		return 0, ErrConnectionClosed
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		w.done = true
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	w.done = true
	return w.conn.Close()
}

// BridgeOptions configures a WebSocket serial bridge connection
type BridgeOptions struct {
	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
	Timeout       time.Duration
}

// OpenWebSocket dials a serial bridge. Credentials are sent as HTTP Basic
// auth when both a username and a password are set.
func OpenWebSocket(opts BridgeOptions) (*WebSocketConnection, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: bridgeHandshakeTimeout}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.SkipSSLVerify}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = bridgeDialTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, opts.URL, bridgeHeaders(opts))
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("bridge dial %s failed (HTTP %d): %w", u.Host, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("bridge dial %s failed: %w", u.Host, err)
	}
	return &WebSocketConnection{conn: conn}, nil
}

// bridgeHeaders builds the handshake headers for opts
func bridgeHeaders(opts BridgeOptions) http.Header {
	h := http.Header{}
	if opts.Username == "" || opts.Password == "" {
		return h
	}
	token := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
	h.Set("Authorization", "Basic "+token)
	return h
}
