// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the opcode, pin and baud rate tables",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(mcuproto.FormatTables(mcuproto.DefaultTables()))
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
