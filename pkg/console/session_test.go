// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionEnv struct {
	conn    *fakeConn
	manager *Manager
	session *Session
	out     *bytes.Buffer
}

func newSessionEnv(t *testing.T, pins mcuproto.PinReader) *sessionEnv {
	t.Helper()
	env := &sessionEnv{conn: &fakeConn{}, out: &bytes.Buffer{}}
	env.manager = NewManager((&fakeOpener{conn: env.conn}).Open, nil)
	require.NoError(t, env.manager.Open("/dev/ttyACM0", 9600))
	env.session = NewSession(mcuproto.NewEncoder(mcuproto.DefaultTables()), env.manager, SessionOptions{
		Pins: pins,
		Out:  env.out,
	})
	return env
}

func TestSession_StartSendsProbe(t *testing.T) {
	env := newSessionEnv(t, nil)

	require.NoError(t, env.session.Start(testContext(t)))
	assert.Equal(t, [][]byte{{6}}, env.conn.Frames())
	assert.Equal(t, StateRunning, env.session.State())
	assert.Contains(t, env.out.String(), "Type 'c' for list of commands")
	assert.Equal(t, uint64(1), env.session.Stats().ProbesSent)
}

func TestSession_StartWithoutProbeOpcode(t *testing.T) {
	conn := &fakeConn{}
	manager := NewManager((&fakeOpener{conn: conn}).Open, nil)
	require.NoError(t, manager.Open("/dev/ttyACM0", 9600))

	tables := mcuproto.DefaultTables()
	tables.Opcodes = tables.Opcodes[:mcuproto.OpProbe]
	session := NewSession(mcuproto.NewEncoder(tables), manager, SessionOptions{})

	var tableErr *mcuproto.TableError
	assert.ErrorAs(t, session.Start(testContext(t)), &tableErr)
	assert.Empty(t, conn.Frames())
	assert.Equal(t, StateTerminated, session.State())
	assert.False(t, manager.IsOpen())
}

func TestSession_Dispatch(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantState State
		wantWire  [][]byte
		wantOut   string
	}{
		{"flash led", "flash led", StateRunning, [][]byte{{1}}, ""},
		{"status", "status", StateRunning, [][]byte{{4}}, ""},
		{"pinhi", "pinhi", StateRunning, [][]byte{{2, 7}}, ""},
		{"pinlo", "pinlo", StateRunning, [][]byte{{3, 7}}, ""},
		{"help", "c", StateRunning, nil, "Default commands are 'flash led', 'pinhi', 'pinlo', 'status'"},
		{"unrecognized", "reboot", StateRunning, nil, "Press c for list of commands"},
		{"case sensitive", "STATUS", StateRunning, nil, "Press c for list of commands"},
		{"exit", "exit", StateTerminated, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newSessionEnv(t, mcuproto.FixedPin(7))

			state, err := env.session.Dispatch(testContext(t), tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantWire, env.conn.Frames())
			assert.Contains(t, env.out.String(), tt.wantOut)
			assert.Equal(t, tt.wantState == StateTerminated, !env.manager.IsOpen())
		})
	}
}

func TestSession_UnrecognizedKeepsRunning(t *testing.T) {
	env := newSessionEnv(t, nil)

	for _, line := range []string{"", " ", "flash", "exit!", "Exit", "c ", "pin hi", "statu"} {
		state, err := env.session.Dispatch(testContext(t), line)
		require.NoError(t, err)
		assert.Equal(t, StateRunning, state, "line %q", line)
	}
	assert.Empty(t, env.conn.Frames())
	assert.Equal(t, uint64(8), env.session.Stats().Unrecognized)
}

func TestSession_PinPromptCancelled(t *testing.T) {
	pins := mcuproto.PinFunc(func() (int, error) { return 0, ErrAbort })
	env := newSessionEnv(t, pins)

	state, err := env.session.Dispatch(testContext(t), "pinhi")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)
	assert.Empty(t, env.conn.Frames())
	assert.Contains(t, env.out.String(), "Cancelled pinhi")
}

func TestSession_PinPromptEOFTerminates(t *testing.T) {
	pins := mcuproto.PinFunc(func() (int, error) { return 0, io.EOF })
	env := newSessionEnv(t, pins)

	state, err := env.session.Dispatch(testContext(t), "pinlo")
	require.NoError(t, err)
	assert.Equal(t, StateTerminated, state)
	assert.False(t, env.manager.IsOpen())
}

func TestSession_TransmitFailureEndsSession(t *testing.T) {
	env := newSessionEnv(t, nil)
	env.conn.writeErr = errors.New("device disconnected")

	state, err := env.session.Dispatch(testContext(t), "status")
	var te *TransmitError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StateTerminated, state)
	assert.False(t, env.manager.IsOpen(), "connection must be closed after a failed transmit")
	assert.Equal(t, 1, env.conn.closes)
	assert.Contains(t, env.out.String(), "Transmit failed")
	assert.Equal(t, uint64(1), env.session.Stats().TransmitErrors)

	// no retry, no further dispatch
	state, err = env.session.Dispatch(testContext(t), "status")
	assert.ErrorIs(t, err, ErrTerminated)
	assert.Equal(t, StateTerminated, state)
}

func TestSession_RunStopsAtExit(t *testing.T) {
	env := newSessionEnv(t, nil)
	in := &scriptReader{lines: []string{"status", "nonsense", "exit", "flash led"}}

	require.NoError(t, env.session.Run(testContext(t), in))
	assert.Equal(t, [][]byte{{4}}, env.conn.Frames())
	assert.Equal(t, []string{"flash led"}, in.lines, "lines after exit must not be read")
	assert.False(t, env.manager.IsOpen())
}

func TestSession_RunEOFClosesConnection(t *testing.T) {
	env := newSessionEnv(t, nil)

	require.NoError(t, env.session.Run(testContext(t), &scriptReader{lines: []string{"flash led"}}))
	assert.Equal(t, [][]byte{{1}}, env.conn.Frames())
	assert.Equal(t, StateTerminated, env.session.State())
	assert.False(t, env.manager.IsOpen())
}

func TestSession_RunPausesBetweenInstructions(t *testing.T) {
	env := newSessionEnv(t, nil)
	env.session.pause = 20 * time.Millisecond

	start := time.Now()
	require.NoError(t, env.session.Run(testContext(t), &scriptReader{lines: []string{"status", "status", "exit"}}))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Len(t, env.conn.Frames(), 2)
}

func TestSession_RunCancelled(t *testing.T) {
	env := newSessionEnv(t, nil)
	env.session.pause = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	err := env.session.Run(ctx, &scriptReader{lines: []string{"status", "status"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, env.conn.Frames(), 1)
	assert.False(t, env.manager.IsOpen())
}

func TestSession_Echo(t *testing.T) {
	env := newSessionEnv(t, nil)
	env.session.echo = true

	_, err := env.session.Dispatch(testContext(t), "status")
	require.NoError(t, err)
	assert.True(t, strings.Contains(env.out.String(), "STATUS (0x04)"))
}
