// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedFrame struct {
	label string
	wire  []byte
}

type memRecorder struct {
	frames []recordedFrame
	err    error
}

func (r *memRecorder) Record(f mcuproto.Frame, label string) error {
	r.frames = append(r.frames, recordedFrame{label: label, wire: f.Bytes()})
	return r.err
}

func TestManager_OpenTransmitClose(t *testing.T) {
	conn := &fakeConn{}
	opener := &fakeOpener{conn: conn}
	m := NewManager(opener.Open, nil)

	require.False(t, m.IsOpen())
	require.NoError(t, m.Open("/dev/ttyACM0", 9600))
	require.True(t, m.IsOpen())

	port, baud := m.Target()
	assert.Equal(t, "/dev/ttyACM0", port)
	assert.Equal(t, 9600, baud)

	require.NoError(t, m.Transmit(testContext(t), mcuproto.NewPinFrame(2, 13)))
	assert.Equal(t, [][]byte{{2, 13}}, conn.Frames())

	require.NoError(t, m.Close())
	assert.False(t, m.IsOpen())
	assert.Equal(t, 1, conn.closes)
}

func TestManager_OpenSingleAttempt(t *testing.T) {
	opener := &fakeOpener{conn: &fakeConn{}, failures: 1}
	m := NewManager(opener.Open, nil)

	err := m.Open("/dev/ttyUSB9", 4800)
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "/dev/ttyUSB9", openErr.Port)
	assert.Equal(t, 4800, openErr.Baud)
	assert.ErrorIs(t, err, errNoSuchPort)
	assert.Len(t, opener.opened, 1, "open must not retry internally")
	assert.False(t, m.IsOpen())
}

func TestManager_AlreadyOpen(t *testing.T) {
	opener := &fakeOpener{conn: &fakeConn{}}
	m := NewManager(opener.Open, nil)

	require.NoError(t, m.Open("a", 9600))
	assert.ErrorIs(t, m.Open("b", 9600), ErrAlreadyOpen)
	assert.Len(t, opener.opened, 1)
}

func TestManager_CloseIdempotent(t *testing.T) {
	conn := &fakeConn{}
	m := NewManager((&fakeOpener{conn: conn}).Open, nil)

	// never opened
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	require.NoError(t, m.Open("a", 9600))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 1, conn.closes)
	assert.False(t, m.IsOpen())
}

func TestManager_CloseErrorStillReleases(t *testing.T) {
	conn := &fakeConn{closeErr: errors.New("device gone")}
	m := NewManager((&fakeOpener{conn: conn}).Open, nil)

	require.NoError(t, m.Open("a", 9600))
	assert.Error(t, m.Close())
	assert.False(t, m.IsOpen())
	assert.NoError(t, m.Close())
}

func TestManager_TransmitErrors(t *testing.T) {
	t.Run("not open", func(t *testing.T) {
		m := NewManager((&fakeOpener{conn: &fakeConn{}}).Open, nil)
		assert.ErrorIs(t, m.Transmit(testContext(t), mcuproto.NewFrame(4)), ErrNotOpen)
	})

	t.Run("write failure", func(t *testing.T) {
		conn := &fakeConn{writeErr: io.ErrClosedPipe}
		m := NewManager((&fakeOpener{conn: conn}).Open, nil)
		require.NoError(t, m.Open("a", 9600))

		err := m.Transmit(testContext(t), mcuproto.NewFrame(4))
		var te *TransmitError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, []byte{4}, te.Frame.Bytes())
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	})

	t.Run("short write", func(t *testing.T) {
		conn := &fakeConn{short: true}
		m := NewManager((&fakeOpener{conn: conn}).Open, nil)
		require.NoError(t, m.Open("a", 9600))

		assert.ErrorIs(t, m.Transmit(testContext(t), mcuproto.NewPinFrame(2, 1)), io.ErrShortWrite)
	})

	t.Run("cancelled context", func(t *testing.T) {
		conn := &fakeConn{}
		m := NewManager((&fakeOpener{conn: conn}).Open, nil)
		require.NoError(t, m.Open("a", 9600))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, m.Transmit(ctx, mcuproto.NewFrame(4)), context.Canceled)
		assert.Empty(t, conn.Frames())
	})
}

func TestManager_Recorder(t *testing.T) {
	conn := &fakeConn{}
	rec := &memRecorder{err: errors.New("disk full")}
	m := NewManager((&fakeOpener{conn: conn}).Open, nil)
	m.SetRecorder(rec)
	require.NoError(t, m.Open("a", 9600))

	// recorder failures do not fail the transmit
	require.NoError(t, m.TransmitLabeled(testContext(t), mcuproto.NewFrame(4), "status"))
	require.Len(t, rec.frames, 1)
	assert.Equal(t, "status", rec.frames[0].label)
	assert.Equal(t, []byte{4}, rec.frames[0].wire)
}
