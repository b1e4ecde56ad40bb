// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"reflect"
	"testing"

	"go.bug.st/serial/enumerator"
)

func TestDescribePorts(t *testing.T) {
	usb := &enumerator.PortDetails{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043"}
	plain := &enumerator.PortDetails{Name: "/dev/ttyS0"}
	stray := &enumerator.PortDetails{Name: "/dev/ttyUSB9", IsUSB: true, VID: "0403", PID: "6001"}

	tests := []struct {
		name    string
		ports   []string
		details []*enumerator.PortDetails
		want    []string
	}{
		{
			name:    "no details",
			ports:   []string{"/dev/ttyACM0", "/dev/ttyS0"},
			details: nil,
			want:    []string{"/dev/ttyACM0", "/dev/ttyS0"},
		},
		{
			name:    "details in another order",
			ports:   []string{"/dev/ttyACM0", "/dev/ttyS0"},
			details: []*enumerator.PortDetails{plain, usb},
			want:    []string{"/dev/ttyACM0 [USB 2341:0043]", "/dev/ttyS0"},
		},
		{
			name:    "enumerator misses a port",
			ports:   []string{"/dev/ttyACM0", "/dev/ttyACM1"},
			details: []*enumerator.PortDetails{usb},
			want:    []string{"/dev/ttyACM0 [USB 2341:0043]", "/dev/ttyACM1"},
		},
		{
			name:    "enumerator reports an unlisted port",
			ports:   []string{"/dev/ttyS0"},
			details: []*enumerator.PortDetails{stray, plain},
			want:    []string{"/dev/ttyS0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describePorts(tt.ports, tt.details)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("describePorts() = %q, want %q", got, tt.want)
			}
		})
	}
}
