// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/Thermoquad/novaprobe/pkg/discovery"
	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/spf13/cobra"
)

var (
	brightnessLAN    int
	brightnessLux    float64
	brightnessMaxLux float64
	displayLAN       int
)

var brightnessCmd = &cobra.Command{
	Use:   "brightness",
	Short: "Read or set receiver brightness",
}

var brightnessGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the brightness of every receiver",
	RunE:  runBrightnessGet,
}

var brightnessSetCmd = &cobra.Command{
	Use:   "set [percent]",
	Short: "Set the brightness of every receiver on a LAN",
	Long: `Broadcast a brightness level to every receiver on one LAN port (or all
LAN ports with --lan 0).

The level is given in percent, or derived from an ambient light reading with
--lux: level = lux / max-lux * 255, clamped to 0-255.

Examples:
  novaprobe brightness set 60
  novaprobe brightness set --lux 1200 --max-lux 5000 --lan 1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrightnessSet,
}

var displayCmd = &cobra.Command{
	Use:       "display <on|off>",
	Short:     "Switch the display on or off",
	Long:      `Broadcast the display power (kill mode) to every receiver on a LAN port.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runDisplay,
}

func init() {
	rootCmd.AddCommand(brightnessCmd)
	brightnessCmd.AddCommand(brightnessGetCmd)
	brightnessCmd.AddCommand(brightnessSetCmd)
	brightnessSetCmd.Flags().IntVar(&brightnessLAN, "lan", 0, "LAN port (1-based, 0 for all)")
	brightnessSetCmd.Flags().Float64Var(&brightnessLux, "lux", -1, "Derive the level from this ambient light reading")
	brightnessSetCmd.Flags().Float64Var(&brightnessMaxLux, "max-lux", 5000, "Lux reading mapped to full brightness")

	rootCmd.AddCommand(displayCmd)
	displayCmd.Flags().IntVar(&displayLAN, "lan", 0, "LAN port (1-based, 0 for all)")
}

func runBrightnessGet(cmd *cobra.Command, args []string) error {
	conn, err := connect(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()
	c := conn.controller()

	lans, err := discovery.WalkLANs(cmd.Context(), conn.link, conn.id, cfg.Topology.LANPorts)
	for _, lan := range lans {
		for _, r := range lan.Receivers {
			b, _ := c.Brightness(r.LAN, r.Index)
			level := b.String()
			if v, ok := b.Get(); ok {
				level = fmt.Sprintf("%d%% (level %d)", v.Percent, v.Level)
			}
			fmt.Printf("LAN %d receiver %d: %s\n", r.LAN+1, r.Index+1, level)
		}
	}
	return err
}

func runBrightnessSet(cmd *cobra.Command, args []string) error {
	if (len(args) == 1) == (brightnessLux >= 0) {
		return fmt.Errorf("give either a percent or --lux")
	}
	var level uint8
	if len(args) == 1 {
		percent, err := strconv.Atoi(args[0])
		if err != nil || percent < 0 || percent > 100 {
			return fmt.Errorf("percent must be 0-100, got %q", args[0])
		}
		level = uint8(percent * 255 / 100)
	} else {
		if brightnessMaxLux <= 0 {
			return fmt.Errorf("--max-lux must be positive")
		}
		level = novastar.BrightnessForLux(brightnessLux, brightnessMaxLux)
	}

	conn, err := connect(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()
	c := conn.controller()

	lans, err := targetLANs(brightnessLAN, conn.id)
	if err != nil {
		return err
	}
	for _, lan := range lans {
		err := c.SetBrightness(lan, level)
		switch {
		case errors.Is(err, novastar.ErrNoResponse):
			fmt.Printf("LAN %d: no receivers acknowledged\n", lan+1)
			continue
		case err != nil:
			return fmt.Errorf("LAN %d: %w", lan+1, err)
		}
		fmt.Printf("LAN %d: brightness set to level %d\n", lan+1, level)
	}
	return nil
}

func runDisplay(cmd *cobra.Command, args []string) error {
	var on bool
	switch args[0] {
	case "on":
		on = true
	case "off":
	default:
		return fmt.Errorf("expected on or off, got %q", args[0])
	}

	conn, err := connect(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()
	c := conn.controller()

	lans, err := targetLANs(displayLAN, conn.id)
	if err != nil {
		return err
	}
	for _, lan := range lans {
		err := c.SetDisplayPower(lan, on)
		switch {
		case errors.Is(err, novastar.ErrNoResponse):
			fmt.Printf("LAN %d: no receivers acknowledged\n", lan+1)
			continue
		case err != nil:
			return fmt.Errorf("LAN %d: %w", lan+1, err)
		}
		fmt.Printf("LAN %d: display %s\n", lan+1, args[0])
	}
	return nil
}

// targetLANs resolves a 1-based LAN flag, 0 meaning every LAN of the sender
func targetLANs(lan int, id discovery.Identity) ([]uint8, error) {
	if lan > 0 {
		l, _, err := cardAddress(lan, 1)
		return []uint8{l}, err
	}
	count := cfg.Topology.LANPorts
	if count <= 0 {
		count = id.LANPorts()
	}
	lans := make([]uint8, count)
	for i := range lans {
		lans[i] = uint8(i)
	}
	return lans, nil
}
