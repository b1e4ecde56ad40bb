// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mcuproto

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognized is returned for instruction text outside the command table.
	// It is a normal outcome, not a failure.
	ErrUnrecognized = errors.New("unrecognized instruction")
	// ErrPinRequired is returned when a pin command is encoded without a pin source.
	ErrPinRequired = errors.New("instruction requires a pin")
)

// FrameLengthError reports wire data that is neither 1 nor 2 bytes long.
type FrameLengthError struct {
	Length int
}

func (e *FrameLengthError) Error() string {
	return fmt.Sprintf("invalid frame length %d (want 1 or 2)", e.Length)
}

// TableError reports a byte or index that is not in one of the closed tables.
type TableError struct {
	Table string // "opcode" or "pin"
	Value int
	Size  int
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s %d not in table (size %d)", e.Table, e.Value, e.Size)
}
