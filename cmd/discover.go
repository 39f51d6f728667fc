// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/novaprobe/pkg/discovery"
	"github.com/spf13/cobra"
)

var (
	discoverWorkers   int
	discoverReceivers bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find Novastar senders on serial ports",
	Long: `Send the connection query on every candidate port and report the
senders that answer, with model and firmware.

With --receivers, each sender found is reopened and its receiver cards are
enumerated on every LAN port.

Examples:
  # Scan every serial port
  novaprobe discover

  # Check one port and list its receivers
  novaprobe discover --port /dev/ttyUSB0 --receivers

Exit codes:
  0 - At least one sender found
  1 - No sender found
  2 - Connection error`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().IntVar(&discoverWorkers, "workers", 4, "Ports queried concurrently")
	discoverCmd.Flags().BoolVar(&discoverReceivers, "receivers", false, "Enumerate receiver cards on each sender")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	open, err := newOpener(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	ports, err := candidatePorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Novaprobe - Sender Discovery\n")
	fmt.Printf("Ports: %d\n\n", len(ports))

	scanner := discovery.NewScanner(open, discovery.WithWorkers(discoverWorkers), discovery.WithLogger(logger))
	results := scanner.Scan(ctx, ports)

	found := 0
	for _, r := range results {
		if !r.Responding() {
			fmt.Printf("%-20s %v\n", r.Port, r.Err)
			continue
		}
		found++
		fmt.Printf("%-20s %s firmware %s (%d LAN ports)\n",
			r.Port, r.Identity.Model, r.Identity.Firmware, r.Identity.LANPorts())

		if discoverReceivers {
			if err := printReceivers(cmd, open, r.Identity); err != nil {
				fmt.Printf("  enumeration failed: %v\n", err)
			}
		}
	}

	fmt.Printf("\n%d sender(s) found\n", found)
	if found == 0 {
		os.Exit(1)
	}
	return nil
}

func printReceivers(cmd *cobra.Command, open discovery.Opener, id discovery.Identity) error {
	link, err := open(id.Port)
	if err != nil {
		return err
	}
	defer link.Close()

	lans, err := discovery.WalkLANs(cmd.Context(), link, id, cfg.Topology.LANPorts)
	for _, lan := range lans {
		fmt.Printf("  LAN %d: %d receiver(s)\n", lan.Port+1, len(lan.Receivers))
		for _, r := range lan.Receivers {
			fmt.Printf("    #%-3d %s\n", r.Index+1, r.Model)
		}
	}
	return err
}
