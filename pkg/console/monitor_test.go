// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

var errLinkClosed = errors.New("link closed")

// chunkReader returns one chunk per Read, then err
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, r.err
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func fixedClock(m *Monitor) {
	m.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
}

func TestMonitor_Lines(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{"single", []string{"Pin 13 HIGH\n"}, []string{"Pin 13 HIGH"}},
		{"split across reads", []string{"Pin 1", "3 LOW\r\n"}, []string{"Pin 13 LOW"}},
		{"two in one read", []string{"a\nb\n"}, []string{"a", "b"}},
		{"trailing partial", []string{"ready\nUnknown cmd"}, []string{"ready", "Unknown cmd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			m := NewMonitor(&chunkReader{chunks: tt.chunks, err: io.EOF}, &out, false, nil)
			fixedClock(m)

			if err := m.Run(testContext(t)); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			got := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines %q, want %d", len(got), got, len(tt.want))
			}
			for i, line := range got {
				want := "[12:00:00.000] " + tt.want[i]
				if line != want {
					t.Errorf("line %d = %q, want %q", i, line, want)
				}
			}
			if m.Lines() != len(tt.want) {
				t.Errorf("Lines() = %d, want %d", m.Lines(), len(tt.want))
			}
		})
	}
}

func TestMonitor_Hex(t *testing.T) {
	var out bytes.Buffer
	m := NewMonitor(&chunkReader{chunks: []string{"\x06\x0a"}, err: io.EOF}, &out, true, nil)
	fixedClock(m)

	if err := m.Run(testContext(t)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := out.String(); got != "[12:00:00.000] 06 0A\n" {
		t.Errorf("output = %q", got)
	}
}

func TestMonitor_StopErrors(t *testing.T) {
	m := NewMonitor(&chunkReader{err: errLinkClosed}, io.Discard, false, nil)
	if err := m.Run(testContext(t), errLinkClosed); err != nil {
		t.Errorf("stop error should end cleanly, got %v", err)
	}

	m = NewMonitor(&chunkReader{err: errLinkClosed}, io.Discard, false, nil)
	if err := m.Run(testContext(t)); !errors.Is(err, errLinkClosed) {
		t.Errorf("Run error = %v, want wrapped errLinkClosed", err)
	}
}
