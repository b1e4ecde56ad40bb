// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mcuproto

import "fmt"

// Command binds a console keyword to an opcode table index.
type Command struct {
	Name     string
	Opcode   int
	NeedsPin bool
	Help     string
}

// Commands bound to user-facing instructions, in help order.
var defaultCommands = []Command{
	{Name: InstrFlashLED, Opcode: OpFlashLED, Help: "flash the onboard LED"},
	{Name: InstrPinHigh, Opcode: OpPinHigh, NeedsPin: true, Help: "drive a pin high"},
	{Name: InstrPinLow, Opcode: OpPinLow, NeedsPin: true, Help: "drive a pin low"},
	{Name: InstrStatus, Opcode: OpStatus, Help: "ask the board for its pin states"},
}

// PinReader supplies a pin table index for pin commands.
// Implementations keep asking until they have a valid index or give up
// with an error.
type PinReader interface {
	ReadPin() (int, error)
}

// PinFunc adapts a function to PinReader.
type PinFunc func() (int, error)

// ReadPin calls f.
func (f PinFunc) ReadPin() (int, error) {
	return f()
}

// FixedPin is a PinReader that always returns the same index.
type FixedPin int

// ReadPin returns p.
func (p FixedPin) ReadPin() (int, error) {
	return int(p), nil
}

// Encoder turns console instructions into wire frames.
type Encoder struct {
	tables   *Tables
	commands map[string]Command
}

// NewEncoder creates an encoder over a private copy of t.
func NewEncoder(t *Tables) *Encoder {
	e := &Encoder{
		tables:   t.Clone(),
		commands: make(map[string]Command, len(defaultCommands)),
	}
	for _, c := range defaultCommands {
		e.commands[c.Name] = c
	}
	return e
}

// Tables returns a copy of the encoder's tables.
func (e *Encoder) Tables() *Tables {
	return e.tables.Clone()
}

// Commands returns the recognized commands in help order.
func (e *Encoder) Commands() []Command {
	return append([]Command(nil), defaultCommands...)
}

// Lookup resolves an instruction. Matching is exact and case-sensitive.
func (e *Encoder) Lookup(instruction string) (Command, bool) {
	c, ok := e.commands[instruction]
	return c, ok
}

// Encode maps an instruction to its frame, asking pins for the pin byte
// when the command takes one.
func (e *Encoder) Encode(instruction string, pins PinReader) (Frame, error) {
	c, ok := e.Lookup(instruction)
	if !ok {
		return Frame{}, ErrUnrecognized
	}
	if !c.NeedsPin {
		return e.EncodeCommand(c, 0)
	}
	if pins == nil {
		return Frame{}, ErrPinRequired
	}
	pin, err := pins.ReadPin()
	if err != nil {
		return Frame{}, fmt.Errorf("read pin for %q: %w", instruction, err)
	}
	return e.EncodeCommand(c, pin)
}

// EncodeCommand builds the frame for c. pin is a pin table index and is
// ignored for commands that do not take one.
func (e *Encoder) EncodeCommand(c Command, pin int) (Frame, error) {
	op, ok := e.tables.Opcode(c.Opcode)
	if !ok {
		return Frame{}, &TableError{Table: "opcode", Value: c.Opcode, Size: len(e.tables.Opcodes)}
	}
	if !c.NeedsPin {
		return NewFrame(op), nil
	}
	p, ok := e.tables.Pin(pin)
	if !ok {
		return Frame{}, &TableError{Table: "pin", Value: pin, Size: len(e.tables.Pins)}
	}
	return NewPinFrame(op, p), nil
}

// Probe returns the startup connection probe frame. It fails when the
// opcode table is too short to hold the probe opcode.
func (e *Encoder) Probe() (Frame, error) {
	op, ok := e.tables.Opcode(OpProbe)
	if !ok {
		return Frame{}, &TableError{Table: "opcode", Value: OpProbe, Size: len(e.tables.Opcodes)}
	}
	return NewFrame(op), nil
}

// Validate checks that f could have been produced by this encoder: the
// opcode comes from the table, and a pin byte appears exactly when the
// opcode belongs to a pin command.
func (e *Encoder) Validate(f Frame) error {
	idx := indexOf(e.tables.Opcodes, f.Opcode())
	if idx < 0 {
		return &TableError{Table: "opcode", Value: int(f.Opcode()), Size: len(e.tables.Opcodes)}
	}

	needsPin := false
	for _, c := range defaultCommands {
		if c.Opcode == idx && c.NeedsPin {
			needsPin = true
		}
	}

	pin, hasPin := f.Pin()
	switch {
	case needsPin && !hasPin:
		return fmt.Errorf("opcode 0x%02X: %w", f.Opcode(), ErrPinRequired)
	case !needsPin && hasPin:
		return fmt.Errorf("opcode 0x%02X does not take a pin", f.Opcode())
	case hasPin && indexOf(e.tables.Pins, pin) < 0:
		return &TableError{Table: "pin", Value: int(pin), Size: len(e.tables.Pins)}
	}
	return nil
}

func indexOf(table []byte, b byte) int {
	for i, v := range table {
		if v == b {
			return i
		}
	}
	return -1
}
