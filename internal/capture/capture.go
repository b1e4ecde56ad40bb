// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records transmitted frames as a CBOR sequence (RFC 8742)
// so a session can be inspected or replayed later.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
)

// Record is one transmitted frame. Keys are integers to keep records small.
type Record struct {
	UnixMilli int64  `cbor:"1,keyasint"`
	Label     string `cbor:"2,keyasint,omitempty"`
	Wire      []byte `cbor:"3,keyasint"`
}

// Time returns the transmit time of the record
func (r Record) Time() time.Time {
	return time.UnixMilli(r.UnixMilli)
}

// Frame decodes the wire bytes back into a frame
func (r Record) Frame() (mcuproto.Frame, error) {
	return mcuproto.ParseFrame(r.Wire)
}

// Recorder appends records to a writer. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	enc    *cbor.Encoder
	closer io.Closer
	count  int
}

// NewRecorder writes records to w
func NewRecorder(w io.Writer) *Recorder {
	bw := bufio.NewWriter(w)
	return &Recorder{w: bw, enc: cbor.NewEncoder(bw)}
}

// Create truncates or creates path and records into it
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	r := NewRecorder(f)
	r.closer = f
	return r, nil
}

// Record writes one frame. Each record is flushed so that a capture
// survives the process being interrupted.
func (r *Recorder) Record(f mcuproto.Frame, label string) error {
	rec := Record{
		UnixMilli: f.Timestamp().UnixMilli(),
		Label:     label,
		Wire:      f.Bytes(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		return os.ErrClosed
	}
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	r.count++
	return r.w.Flush()
}

// Count returns the number of records written
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close flushes and closes the underlying file, if any
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		return nil
	}
	r.enc = nil

	err := r.w.Flush()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader decodes records from a capture
type Reader struct {
	dec *cbor.Decoder
}

// NewReader reads records from r
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(bufio.NewReader(r))}
}

// Next returns the next record, or io.EOF after the last one
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// ReadAll decodes every record in r
func ReadAll(r io.Reader) ([]Record, error) {
	reader := NewReader(r)
	var records []Record
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// ReadFile decodes every record in the capture at path
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()
	return ReadAll(f)
}
