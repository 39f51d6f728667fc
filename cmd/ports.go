// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Thermoquad/novaprobe/pkg/discovery"
	"github.com/spf13/cobra"
)

var portsJSON bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports on this host with their USB details.

Examples:
  novaprobe ports
  novaprobe ports --json`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolVar(&portsJSON, "json", false, "Print as JSON")
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := discovery.ListPorts()
	if err != nil {
		return err
	}

	if portsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ports)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		if p.IsUSB {
			fmt.Printf("%-20s USB %s:%s %s %s\n", p.Name, p.VID, p.PID, p.SerialNumber, p.Product)
		} else {
			fmt.Printf("%-20s\n", p.Name)
		}
	}
	return nil
}
