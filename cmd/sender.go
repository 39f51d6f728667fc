// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/spf13/cobra"
)

var senderCmd = &cobra.Command{
	Use:   "sender",
	Short: "Show sender card status",
	Long: `Read the sender card identity, DVI signal, input source, cabinet size and
auto-brightness configuration. Values that cannot be read show as N/A.

Exit codes:
  0 - Sender read
  2 - Connection error or no sender found`,
	RunE: runSender,
}

func init() {
	rootCmd.AddCommand(senderCmd)
}

func runSender(cmd *cobra.Command, args []string) error {
	conn, err := connect(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()
	c := conn.controller()

	fmt.Printf("Connection: %s\n\n", connectionInfo(conn.port))

	dvi, _ := c.DVISignal()
	width, _ := c.CabinetWidth()
	height, _ := c.CabinetHeight()
	redundancy, _ := c.Redundancy()
	printField("Model", conn.id.Model)
	printField("Firmware", conn.id.Firmware)
	printValue("LAN ports", fmt.Sprint(conn.id.LANPorts()))
	printField("DVI signal", dvi)
	printValue("Cabinet", fmt.Sprintf("%s x %s", width, height))
	printField("Redundancy", redundancy)

	mode, _ := c.InputSourceMode()
	selected, _ := c.InputSourceSelected()
	status, _ := c.InputSourceStatus()
	fmt.Println()
	printField("Input mode", mode)
	printField("Input selected", selected)
	printValue("Input status", joinField(status))

	alsMode, _ := c.AutoBrightnessMode()
	settings, _ := c.AutoBrightnessSettings()
	lux, _ := c.AmbientLight()
	fmt.Println()
	printField("Auto brightness", alsMode)
	if s, ok := settings.Get(); ok {
		printValue("Lux range", fmt.Sprintf("%d - %d", s.MinLux, s.MaxLux))
		printValue("Brightness range", fmt.Sprintf("%d%% - %d%% in %d steps", s.MinBrightnessPercent, s.MaxBrightnessPercent, s.Steps))
	}
	printField("Ambient light", lux)

	card, _ := c.FunctionCardModel(0)
	printField("Function card", card)
	if card.Valid() {
		cardLux, _ := c.FunctionCardLight(0)
		printField("Function card light", cardLux)
	}
	return nil
}

func printValue(label, value string) {
	fmt.Printf("  %-20s %s\n", label+":", value)
}

func printField[T any](label string, f novastar.Field[T]) {
	printValue(label, f.String())
}

func joinField(f novastar.Field[[]string]) string {
	v, ok := f.Get()
	if !ok {
		return novastar.NotAvailable
	}
	if len(v) == 0 {
		return "none"
	}
	return strings.Join(v, ", ")
}
