// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Thermoquad/novaprobe/pkg/controller"
	"github.com/Thermoquad/novaprobe/pkg/discovery"
	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/spf13/cobra"
)

var modulesFlash bool

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Show module status of every receiver",
	Long: `Read the module status block of every receiver and report each module's
status byte and faulty signal lines per data group.

The layout comes from topology.modules and topology.data_groups. Lines in
topology.ignored_lines (default RFU and R) never fault a module.

With --flash, a module flash check is started on each receiver and read back
after flash.wait (default 15s).

Exit codes:
  0 - All modules OK
  1 - At least one module fault
  2 - Connection error or no sender found`,
	RunE: runModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
	modulesCmd.Flags().BoolVar(&modulesFlash, "flash", false, "Run the module flash check")
}

func runModules(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, err := connect(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()
	c := conn.controller()

	layout := c.Layout()
	fmt.Printf("Connection: %s\n", connectionInfo(conn.port))
	fmt.Printf("Layout: %d modules x %d data groups, ignoring %s\n\n",
		layout.Modules, layout.DataGroups, strings.Join(layout.Ignored, ", "))

	lans, err := discovery.WalkLANs(ctx, conn.link, conn.id, cfg.Topology.LANPorts)
	if err != nil {
		return err
	}

	faults := 0
	for _, lan := range lans {
		for _, r := range lan.Receivers {
			faults += printModules(c, r)
			if modulesFlash {
				if err := printFlash(cmd, c, r); err != nil {
					return err
				}
			}
		}
	}

	if faults > 0 {
		fmt.Printf("\n%d module fault(s)\n", faults)
		os.Exit(1)
	}
	return nil
}

func printModules(c *controller.Controller, r discovery.Receiver) int {
	fmt.Printf("LAN %d receiver %d (%s)\n", r.LAN+1, r.Index+1, r.Model)

	status, _ := c.ModuleStatus(r.LAN, r.Index)
	reports, ok := status.Get()
	if !ok {
		fmt.Printf("  module status %s\n", novastar.NotAvailable)
		return 0
	}

	faults := 0
	for _, m := range reports {
		line := fmt.Sprintf("  Module %d: %s (0x%02X)", m.Index+1, m.Status, m.StatusByte)
		if lines := m.FaultyLines(); len(lines) > 0 {
			line += " lines " + strings.Join(lines, ",")
		}
		fmt.Println(line)
		if m.Status.Faulty() {
			faults++
		}
	}
	return faults
}

func printFlash(cmd *cobra.Command, c *controller.Controller, r discovery.Receiver) error {
	fmt.Printf("  Flash check running (%v)...\n", cfg.Flash.Wait)
	flash, err := c.CheckModuleFlash(cmd.Context(), r.LAN, r.Index)
	if err != nil && cmd.Context().Err() != nil {
		return err
	}
	reports, ok := flash.Get()
	if !ok {
		fmt.Printf("  Flash readback %s\n", novastar.NotAvailable)
		return nil
	}
	for _, f := range reports {
		fmt.Printf("  Flash %d: %s\n", f.Index+1, f.Status)
	}
	return nil
}
