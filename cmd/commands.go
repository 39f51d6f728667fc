// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/spf13/cobra"
)

var commandsFrames bool

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the command catalogue",
	Long: `List every known command template with its command byte, device,
address, length and addressing mode.

With --frames, the request frame built for LAN 1, receiver 1 is printed in hex.`,
	RunE: runCommands,
}

func init() {
	rootCmd.AddCommand(commandsCmd)
	commandsCmd.Flags().BoolVar(&commandsFrames, "frames", false, "Print built request frames")
}

func runCommands(cmd *cobra.Command, args []string) error {
	for _, t := range novastar.Catalogue() {
		fmt.Println(novastar.FormatTemplate(t))
		if commandsFrames {
			fmt.Printf("  %s\n", novastar.FormatHex(novastar.Build(t, 0, 0)))
		}
	}
	return nil
}
