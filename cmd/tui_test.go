// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/mcuconsole/internal/config"
	"github.com/Thermoquad/mcuconsole/pkg/console"
)

type memLink struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *memLink) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), p...))
	return len(p), nil
}

func (c *memLink) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

func (c *memLink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func testModel(t *testing.T) (tuiModel, *memLink) {
	t.Helper()
	cfg = &config.Config{}
	l, conn := openTestLink(t)

	m := initialTUIModel(l)
	m.busy = false
	return m, conn
}

// run executes a command and feeds its message back into the model
func run(t *testing.T, m tuiModel, cmd tea.Cmd) tuiModel {
	t.Helper()
	next, _ := m.Update(cmd())
	return next.(tuiModel)
}

func TestTUI_PinInstructionAsksForPin(t *testing.T) {
	m, conn := testModel(t)

	next, cmd := m.submit("pinhi")
	m = next.(tuiModel)
	assert.Nil(t, cmd)
	assert.Equal(t, "pinhi", m.pending)

	next, cmd = m.submit("20")
	m = next.(tuiModel)
	assert.Nil(t, cmd, "out of range pin is asked again")
	assert.Equal(t, "pinhi", m.pending)

	next, cmd = m.submit("13")
	m = next.(tuiModel)
	require.NotNil(t, cmd)
	assert.Empty(t, m.pending)
	assert.True(t, m.busy)

	m = run(t, m, cmd)
	assert.False(t, m.busy)
	assert.Equal(t, [][]byte{{2, 13}}, conn.frames)
	assert.Equal(t, console.StateRunning, m.state)
}

func TestTUI_PinPromptExitCancels(t *testing.T) {
	m, conn := testModel(t)

	next, _ := m.submit("pinlo")
	m = next.(tuiModel)
	next, cmd := m.submit("exit")
	m = next.(tuiModel)

	assert.Nil(t, cmd)
	assert.Empty(t, m.pending)
	assert.Empty(t, conn.frames)
	assert.Equal(t, "Cancelled pinlo", m.log[len(m.log)-1].message)
}

func TestTUI_ExitTerminatesSession(t *testing.T) {
	m, conn := testModel(t)

	next, cmd := m.submit("exit")
	m = next.(tuiModel)
	require.NotNil(t, cmd)

	m = run(t, m, cmd)
	assert.Equal(t, console.StateTerminated, m.state)
	assert.True(t, conn.closed)
}

func TestTUI_UnrecognizedIsLogged(t *testing.T) {
	m, conn := testModel(t)

	next, cmd := m.submit("blink")
	m = next.(tuiModel)
	require.NotNil(t, cmd)

	m = run(t, m, cmd)
	assert.Empty(t, conn.frames)
	assert.Equal(t, "Press c for list of commands", m.log[len(m.log)-1].message)
	assert.Equal(t, uint64(1), m.stats.Unrecognized)
}

// View and Update run on the UI goroutine while a dispatch records
// statistics on a command goroutine; go test -race checks the two agree.
func TestTUI_RenderDuringDispatch(t *testing.T) {
	m, conn := testModel(t)
	m.pause = 20 * time.Millisecond

	next, cmd := m.submit("status")
	m = next.(tuiModel)
	require.NotNil(t, cmd)

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	for msg == nil {
		_ = m.View()
		_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		select {
		case msg = <-done:
		default:
		}
	}

	next, _ = m.Update(msg)
	m = next.(tuiModel)
	assert.Equal(t, console.StateRunning, m.state)
	assert.Equal(t, [][]byte{{4}}, conn.Frames())
	assert.Contains(t, m.View(), "Frames:")
}

func TestLineBuffer_Drain(t *testing.T) {
	var b lineBuffer
	assert.Nil(t, b.drain())

	b.Write([]byte("one\ntwo\n"))
	assert.Equal(t, []string{"one", "two"}, b.drain())
	assert.Nil(t, b.drain())
}
