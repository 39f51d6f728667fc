// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/novaprobe/pkg/health"
	"github.com/spf13/cobra"
)

var checkQuiet bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run every health check for a monitoring agent",
	Long: `Run the full status sweep and print one <check>_alarm / <check>_output
pair per check, in the format monitoring agents scrape.

Checks: sender, dvi, receivers, brightness, temperature, modules, display, lock.
The expected receiver count comes from topology.receiver_cards (0 skips it).

Examples:
  novaprobe check --port /dev/ttyUSB0
  NOVAPROBE_TOPOLOGY_RECEIVER_CARDS=12 novaprobe check

Exit codes:
  0 - OK
  1 - WARNING
  2 - CRITICAL
  3 - UNKNOWN`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "Only print the overall status line")
}

func runCheck(cmd *cobra.Command, args []string) error {
	snap, err := sweep(cmd.Context())
	if err != nil {
		fmt.Printf("UNKNOWN: %v\n", err)
		os.Exit(health.Unknown.ExitCode())
	}

	health.Log(logger, snap.Results)
	if !checkQuiet {
		for _, r := range snap.Results {
			for _, line := range r.Lines() {
				fmt.Println(line)
			}
		}
	}

	severity := snap.Severity()
	fmt.Printf("%s: %d receiver(s) on %s\n", severity, snap.ReceiverCount(), snap.Port)
	if code := severity.ExitCode(); code != 0 {
		_ = logger.Sync()
		os.Exit(code)
	}
	return nil
}
