// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/report"
	"github.com/Thermoquad/novaprobe/pkg/session"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	snapshotFormat string
	snapshotOutput string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run a full sweep and print it as JSON, YAML or CBOR",
	Long: `Run the full status sweep (sender, every receiver on every LAN, health
checks) and encode the result.

Examples:
  novaprobe snapshot --format yaml
  novaprobe snapshot --format cbor --output sweep.cbor`,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&snapshotFormat, "format", "f", "json",
		"Output format: "+strings.Join(report.Formats(), ", "))
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "Write to file instead of stdout")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	snap, err := sweep(cmd.Context())
	if err != nil {
		return err
	}

	out := os.Stdout
	if snapshotOutput != "" {
		f, err := os.Create(snapshotOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return report.Encode(out, snapshotFormat, snap)
}

// sweep connects to the sender and runs the full sweep. A sender that cannot
// be reached yields an evaluated not-found snapshot rather than an error.
func sweep(ctx context.Context, extra ...session.Option) (*report.Snapshot, error) {
	conn, err := connect(ctx, extra...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("no sender", zap.Error(err))
		port := portName
		if ports, perr := candidatePorts(); perr == nil {
			port = strings.Join(ports, ",")
		}
		snap := &report.Snapshot{RunID: uuid.NewString(), Port: port, Taken: time.Now()}
		snap.Evaluate(cfg.Topology.ReceiverCards)
		return snap, nil
	}
	defer conn.Close()

	snap, err := conn.controller().Snapshot(ctx, conn.port, cfg.SweepTopology())
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", conn.port, err)
	}
	return snap, nil
}
