// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/spf13/cobra"
)

var (
	rawLAN  int
	rawCard int
)

var rawCmd = &cobra.Command{
	Use:   "raw <command>",
	Short: "Send one command and dump the exchange",
	Long: `Build the named command from the catalogue, send it and hex dump the
request and response with the decoded status.

Write commands are sent as defined in the catalogue. Use "novaprobe commands"
for the list of names.

Examples:
  novaprobe raw sender_model --port /dev/ttyUSB0
  novaprobe raw monitoring --lan 1 --card 3

Exit codes:
  0 - Response received with status OK
  1 - No response or device error
  2 - Connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runRaw,
}

func init() {
	rootCmd.AddCommand(rawCmd)
	rawCmd.Flags().IntVar(&rawLAN, "lan", 1, "LAN port (1-based)")
	rawCmd.Flags().IntVar(&rawCard, "card", 1, "Receiver card (1-based)")
}

func runRaw(cmd *cobra.Command, args []string) error {
	t, ok := novastar.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	lan, card, err := cardAddress(rawLAN, rawCard)
	if err != nil {
		return err
	}

	open, err := newOpener(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	ports, err := candidatePorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	link, err := open(ports[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Close()

	frame := novastar.Build(t, lan, card)
	fmt.Printf("Connection: %s\n", connectionInfo(ports[0]))
	fmt.Printf("Command:    %s\n\n", novastar.FormatTemplate(t))
	fmt.Printf("TX %s\n%s", novastar.FormatRequest(frame), novastar.HexDump(frame))

	resp, err := link.Exchange(frame)
	if err != nil {
		fmt.Printf("RX %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("RX %s\n%s", novastar.FormatResponse(resp), novastar.HexDump(resp))

	if err := novastar.Validate(resp); err != nil {
		fmt.Printf("\nDevice error: %v\n", err)
		os.Exit(1)
	}
	return nil
}

// cardAddress converts 1-based LAN and card numbers to wire addresses
func cardAddress(lan, card int) (uint8, uint8, error) {
	if lan < 1 || lan > novastar.MaxLANPorts {
		return 0, 0, fmt.Errorf("LAN must be 1-%d, got %d", novastar.MaxLANPorts, lan)
	}
	if card < 1 || card > 256 {
		return 0, 0, fmt.Errorf("card must be 1-256, got %d", card)
	}
	return uint8(lan - 1), uint8(card - 1), nil
}
