// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrAbort is returned when the user types "exit" at a selection prompt.
var ErrAbort = errors.New("aborted by user")

// Reason describes why a selection was rejected
type Reason int

const (
	ReasonNotANumber Reason = iota
	ReasonOutOfRange
)

// SelectionError is a recoverable selection failure: the caller prints it
// and asks again.
type SelectionError struct {
	What   string // "port", "rate" or "pin"
	Input  string
	Reason Reason
	Limit  int // number of valid choices
}

func (e *SelectionError) Error() string {
	switch e.Reason {
	case ReasonNotANumber:
		return fmt.Sprintf("can't use %q, type the number beside the %s", e.Input, e.What)
	default:
		return fmt.Sprintf("that is not a valid %s number, try again", e.What)
	}
}

// IsRetry reports whether err asks for the prompt to be repeated.
func IsRetry(err error) bool {
	var se *SelectionError
	return errors.As(err, &se)
}

// SelectPort validates a 1-based port choice and returns the zero-based
// index into ports.
func SelectPort(ports []string, input string) (int, error) {
	return selectIndex("port", len(ports), input, 1)
}

// SelectBaud validates a 1-based rate choice and returns the rate.
func SelectBaud(rates []int, input string) (int, error) {
	i, err := selectIndex("rate", len(rates), input, 1)
	if err != nil {
		return 0, err
	}
	return rates[i], nil
}

// SelectPin validates a pin number typed as-is (0-based) and returns the
// index into pins.
func SelectPin(pins []byte, input string) (int, error) {
	return selectIndex("pin", len(pins), input, 0)
}

func selectIndex(what string, size int, input string, base int) (int, error) {
	if input == "exit" {
		return 0, ErrAbort
	}

	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, &SelectionError{What: what, Input: input, Reason: ReasonNotANumber, Limit: size}
	}

	selected := v - base
	if selected < 0 || selected >= size {
		return 0, &SelectionError{What: what, Input: input, Reason: ReasonOutOfRange, Limit: size}
	}
	return selected, nil
}
