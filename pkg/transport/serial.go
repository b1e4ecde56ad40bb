// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the byte links a console session can run
// over: a local serial port or a WebSocket bridge to a remote one.
package transport

import (
	"fmt"
	"io"
	"sort"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Connection provides a common interface for reading/writing bytes from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
	name string
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// Name returns the device path the connection was opened on
func (s *SerialConnection) Name() string {
	return s.name
}

// SerialMode returns the only line settings the firmware supports:
// 8 data bits, no parity, one stop bit, no flow control.
func SerialMode(baudRate int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// OpenSerial opens a serial port connection
func OpenSerial(portName string, baudRate int) (*SerialConnection, error) {
	port, err := serial.Open(portName, SerialMode(baudRate))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port, name: portName}, nil
}

// ListPorts returns the serial ports present on the host, sorted so that
// the numbering shown to the user is stable between calls.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// PortDetails returns what the enumerator knows about each port, sorted by
// name. It may list a different set of ports than ListPorts.
func PortDetails() ([]*enumerator.PortDetails, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].Name < details[j].Name
	})
	return details, nil
}

// DescribePort formats one enumerated port
func DescribePort(d *enumerator.PortDetails) string {
	if !d.IsUSB {
		return d.Name
	}
	desc := fmt.Sprintf("%s [USB %s:%s", d.Name, d.VID, d.PID)
	if d.Product != "" {
		desc += " " + d.Product
	}
	if d.SerialNumber != "" {
		desc += " sn=" + d.SerialNumber
	}
	return desc + "]"
}
