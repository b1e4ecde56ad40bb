// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// mcuconsole - Serial command console for pin-control firmware
//
// A CLI tool that negotiates a serial port and baud rate with the user and
// turns typed instructions into one or two byte command frames.

package main

import (
	"os"

	"github.com/Thermoquad/mcuconsole/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
