// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/Thermoquad/mcuconsole/pkg/transport"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports present on this host, numbered as the console's
port prompt numbers them. USB ports show their vendor and product IDs.`,
	Args: cobra.NoArgs,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := transport.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	details, err := transport.PortDetails()
	if err != nil {
		// Enumeration is unsupported on some platforms; names alone still work
		logger.Debug("Detailed enumeration failed", zap.Error(err))
	}

	for i, line := range describePorts(ports, details) {
		fmt.Printf("%d) %s\n", i+1, line)
	}
	return nil
}

// describePorts labels each port in the prompt's order, adding USB details
// for the ports the enumerator reported
func describePorts(ports []string, details []*enumerator.PortDetails) []string {
	byName := make(map[string]*enumerator.PortDetails, len(details))
	for _, d := range details {
		byName[d.Name] = d
	}

	lines := make([]string, len(ports))
	for i, p := range ports {
		if d, ok := byName[p]; ok {
			lines[i] = transport.DescribePort(d)
		} else {
			lines[i] = p
		}
	}
	return lines
}
