// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mcuproto

import "time"

// Frame is the complete byte sequence sent for one instruction:
// an opcode, optionally followed by a pin byte.
type Frame struct {
	opcode    byte
	pin       byte
	hasPin    bool
	timestamp time.Time
}

// NewFrame creates a single-byte frame
func NewFrame(opcode byte) Frame {
	return Frame{opcode: opcode, timestamp: time.Now()}
}

// NewPinFrame creates an opcode + pin frame
func NewPinFrame(opcode, pin byte) Frame {
	return Frame{opcode: opcode, pin: pin, hasPin: true, timestamp: time.Now()}
}

// Opcode returns the frame's first byte
func (f Frame) Opcode() byte {
	return f.opcode
}

// Pin returns the pin byte and whether the frame carries one
func (f Frame) Pin() (byte, bool) {
	return f.pin, f.hasPin
}

// Len returns the wire length (1 or 2)
func (f Frame) Len() int {
	if f.hasPin {
		return 2
	}
	return 1
}

// Bytes returns the wire encoding
func (f Frame) Bytes() []byte {
	if f.hasPin {
		return []byte{f.opcode, f.pin}
	}
	return []byte{f.opcode}
}

// Timestamp returns when the frame was built
func (f Frame) Timestamp() time.Time {
	return f.timestamp
}

// IsZero reports whether f is the zero Frame
func (f Frame) IsZero() bool {
	return f.opcode == 0 && !f.hasPin && f.timestamp.IsZero()
}

// ParseFrame rebuilds a Frame from its wire bytes.
func ParseFrame(b []byte) (Frame, error) {
	switch len(b) {
	case 1:
		return NewFrame(b[0]), nil
	case 2:
		return NewPinFrame(b[0], b[1]), nil
	default:
		return Frame{}, &FrameLengthError{Length: len(b)}
	}
}
