// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mcuproto

import (
	"fmt"
	"strings"
)

// OpcodeIndexName returns the human-readable name for an opcode table index
func OpcodeIndexName(i int) string {
	switch i {
	case OpFlashLED:
		return "FLASH_LED"
	case OpPinHigh:
		return "PIN_HIGH"
	case OpPinLow:
		return "PIN_LOW"
	case OpStatus:
		return "STATUS"
	case OpProbe:
		return "PROBE"
	default:
		if i >= 0 && i < OpcodeCount {
			return fmt.Sprintf("RESERVED_%d", i)
		}
		return "UNKNOWN"
	}
}

// OpcodeName returns the name of an opcode byte under the encoder's tables
func (e *Encoder) OpcodeName(op byte) string {
	return OpcodeIndexName(indexOf(e.tables.Opcodes, op))
}

// FormatFrame formats a frame into a human-readable line
func (e *Encoder) FormatFrame(f Frame) string {
	timestamp := f.Timestamp().Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X)", timestamp, e.OpcodeName(f.Opcode()), f.Opcode())
	if pin, ok := f.Pin(); ok {
		result += fmt.Sprintf(" pin=%d", pin)
	}
	return result + fmt.Sprintf(" wire=%s", FormatHex(f.Bytes()))
}

// FormatHex renders bytes as space separated hex pairs
func FormatHex(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// FormatTables renders the lookup tables, one section per table
func FormatTables(t *Tables) string {
	var s strings.Builder

	s.WriteString("Opcodes:\n")
	for i, op := range t.Opcodes {
		s.WriteString(fmt.Sprintf("  %2d) 0x%02X %s\n", i, op, OpcodeIndexName(i)))
	}

	s.WriteString("Pins:\n  ")
	for i, p := range t.Pins {
		if i > 0 {
			s.WriteString(" ")
		}
		s.WriteString(fmt.Sprintf("%d", p))
	}
	s.WriteString("\n")

	s.WriteString("Baud rates:\n")
	for i, r := range t.Rates {
		s.WriteString(fmt.Sprintf("  %d) %d\n", i+1, r))
	}

	return s.String()
}
