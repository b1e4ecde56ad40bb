// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mcuproto implements the byte-level command protocol spoken to the
// console firmware.
//
// Every command is a single opcode byte, optionally followed by one pin byte.
// There is no framing, length field or checksum: the firmware knows from the
// opcode alone whether a pin byte follows. Replies are not parsed.
package mcuproto

// Opcode table indices
const (
	OpFlashLED = 0
	OpPinHigh  = 1
	OpPinLow   = 2
	OpStatus   = 3
	OpProbe    = 5 // unassigned in firmware, triggers the default response
)

// Table sizes
const (
	OpcodeCount = 10
	PinCount    = 14
)

// Instruction keywords typed at the console
const (
	InstrFlashLED = "flash led"
	InstrPinHigh  = "pinhi"
	InstrPinLow   = "pinlo"
	InstrStatus   = "status"
	InstrHelp     = "c"
	InstrExit     = "exit"
)

// Tables holds the lookup tables shared by both ends of the link.
// Values are indexed by ordinal so the firmware codes can change without
// touching the callers.
type Tables struct {
	Opcodes []byte
	Pins    []byte
	Rates   []int
}

// DefaultTables returns a fresh copy of the tables the stock firmware is
// built with.
func DefaultTables() *Tables {
	return &Tables{
		Opcodes: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		Pins:    []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
		Rates:   []int{4800, 9600, 19200, 115200},
	}
}

// Clone returns a deep copy so callers cannot mutate a shared table.
func (t *Tables) Clone() *Tables {
	return &Tables{
		Opcodes: append([]byte(nil), t.Opcodes...),
		Pins:    append([]byte(nil), t.Pins...),
		Rates:   append([]int(nil), t.Rates...),
	}
}

// Opcode returns the opcode byte stored at index i.
func (t *Tables) Opcode(i int) (byte, bool) {
	if i < 0 || i >= len(t.Opcodes) {
		return 0, false
	}
	return t.Opcodes[i], true
}

// Pin returns the pin byte stored at index i.
func (t *Tables) Pin(i int) (byte, bool) {
	if i < 0 || i >= len(t.Pins) {
		return 0, false
	}
	return t.Pins[i], true
}

// HasRate reports whether baud is one of the supported rates.
func (t *Tables) HasRate(baud int) bool {
	for _, r := range t.Rates {
		if r == baud {
			return true
		}
	}
	return false
}
