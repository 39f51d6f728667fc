// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/novaprobe/pkg/controller"
	"github.com/Thermoquad/novaprobe/pkg/discovery"
	"github.com/spf13/cobra"
)

var receiversCmd = &cobra.Command{
	Use:   "receivers",
	Short: "Enumerate receiver cards and show their status",
	Long: `Enumerate the receiver cards on every LAN port of the sender and read
each card's model, firmware, brightness, display and lock state, gamma and
monitoring card values.

Enumeration on a LAN stops at the first card that does not answer.

Exit codes:
  0 - Receivers read
  2 - Connection error or no sender found`,
	RunE: runReceivers,
}

func init() {
	rootCmd.AddCommand(receiversCmd)
}

func runReceivers(cmd *cobra.Command, args []string) error {
	conn, err := connect(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()
	c := conn.controller()

	fmt.Printf("Connection: %s\n", connectionInfo(conn.port))
	fmt.Printf("Sender: %s firmware %s\n\n", conn.id.Model, conn.id.Firmware)

	lans, err := discovery.WalkLANs(cmd.Context(), conn.link, conn.id, cfg.Topology.LANPorts)
	for _, lan := range lans {
		fmt.Printf("LAN %d: %d receiver(s)\n", lan.Port+1, len(lan.Receivers))
		for _, r := range lan.Receivers {
			printReceiver(c, r)
		}
	}
	if err != nil {
		return err
	}

	total := discovery.TotalReceivers(lans)
	if expected := cfg.Topology.ReceiverCards; expected > 0 && total != expected {
		fmt.Printf("\nFound %d receiver(s), expected %d\n", total, expected)
	}
	return nil
}

func printReceiver(c *controller.Controller, r discovery.Receiver) {
	firmware, _ := c.ReceiverFirmware(r.LAN, r.Index)
	brightness, _ := c.Brightness(r.LAN, r.Index)
	kill, _ := c.KillMode(r.LAN, r.Index)
	lock, _ := c.LockMode(r.LAN, r.Index)
	gamma, _ := c.Gamma(r.LAN, r.Index)
	mon, _ := c.Monitoring(r.LAN, r.Index)

	fmt.Printf("  Receiver %d: %s firmware %s\n", r.Index+1, r.Model, firmware)
	if b, ok := brightness.Get(); ok {
		printValue("  Brightness", fmt.Sprintf("%d%% (R %d G %d B %d)", b.Percent, b.Red, b.Green, b.Blue))
	} else {
		printField("  Brightness", brightness)
	}
	printField("  Display", kill)
	printField("  Lock", lock)
	printField("  Gamma", gamma)
	m, ok := mon.Get()
	switch {
	case !ok:
		printField("  Monitoring", mon)
	case !m.CardPresent:
		printValue("  Monitoring", "no monitoring card")
	default:
		printValue("  Temperature", m.Temperature.String()+" °C")
		printValue("  Voltage", m.Voltage.String()+" V")
	}
}
