// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"context"

	"github.com/Thermoquad/novaprobe/pkg/discovery"
	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/Thermoquad/novaprobe/pkg/report"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topology is the installation the sweep is checked against
type Topology struct {
	// ExpectedReceivers is the receiver count across all LANs, 0 to skip
	ExpectedReceivers int
	// LANPorts overrides the count implied by the sender model when positive
	LANPorts int
	// Modules per receiver card
	Modules int
	// DataGroups per module
	DataGroups int
	// IgnoredLines are signal lines excluded from fault detection
	IgnoredLines []string
}

// DefaultTopology is the default module layout with no expected count
func DefaultTopology() Topology {
	l := novastar.DefaultModuleLayout()
	return Topology{Modules: l.Modules, DataGroups: l.DataGroups, IgnoredLines: l.Ignored}
}

// ModuleLayout returns the module layout the topology describes
func (t Topology) ModuleLayout() novastar.ModuleLayout {
	return novastar.ModuleLayout{Modules: t.Modules, DataGroups: t.DataGroups, Ignored: t.IgnoredLines}
}

// Snapshot runs the full sweep on port: sender identity and configuration,
// receiver enumeration on every LAN, then every receiver reading. The
// result is evaluated against top. Only a cancelled ctx is returned as an
// error; unreadable values are N/A and show up in the results.
func (c *Controller) Snapshot(ctx context.Context, port string, top Topology) (*report.Snapshot, error) {
	start := c.now()
	snap := &report.Snapshot{
		RunID: uuid.NewString(),
		Port:  port,
		Taken: start,
	}
	logger := c.logger.With(zap.String("run_id", snap.RunID), zap.String("port", port))

	id, err := discovery.Identify(c.ex, port)
	if err != nil {
		logger.Warn("sender not responding", zap.Error(err))
		snap.Duration = c.now().Sub(start)
		snap.Evaluate(top.ExpectedReceivers)
		return snap, ctx.Err()
	}
	snap.Found = true

	c.readSender(snap, id)
	if err := ctx.Err(); err != nil {
		return snap, err
	}

	lans, err := discovery.WalkLANs(ctx, c.ex, id, top.LANPorts)
	for _, lan := range lans {
		out := report.LAN{Port: lan.Port}
		for _, r := range lan.Receivers {
			if err := ctx.Err(); err != nil {
				return snap, err
			}
			out.Receivers = append(out.Receivers, c.readReceiver(r, top.ModuleLayout()))
		}
		snap.LANs = append(snap.LANs, out)
	}
	if err != nil {
		return snap, err
	}

	snap.Duration = c.now().Sub(start)
	snap.Evaluate(top.ExpectedReceivers)
	logger.Info("sweep complete",
		zap.Int("receivers", snap.ReceiverCount()),
		zap.Stringer("severity", snap.Severity()),
		zap.Duration("duration", snap.Duration))
	return snap, nil
}

func (c *Controller) readSender(snap *report.Snapshot, id discovery.Identity) {
	snap.Sender.Model = id.Model
	snap.Sender.Firmware = id.Firmware
	snap.Sender.LANPorts = id.LANPorts()
	snap.Sender.DVI, _ = c.DVISignal()
	snap.Sender.Width, _ = c.CabinetWidth()
	snap.Sender.Height, _ = c.CabinetHeight()
	snap.Sender.Redundancy, _ = c.Redundancy()

	snap.Inputs.Mode, _ = c.InputSourceMode()
	snap.Inputs.Selected, _ = c.InputSourceSelected()
	snap.Inputs.Status, _ = c.InputSourceStatus()

	snap.Brightness.Mode, _ = c.AutoBrightnessMode()
	snap.Brightness.Settings, _ = c.AutoBrightnessSettings()
	snap.Brightness.Lux, _ = c.AmbientLight()
	snap.Brightness.FunctionCard, _ = c.FunctionCardModel(0)
	if snap.Brightness.FunctionCard.Valid() {
		snap.Brightness.CardLux, _ = c.FunctionCardLight(0)
	}
}

func (c *Controller) readReceiver(r discovery.Receiver, layout novastar.ModuleLayout) report.Receiver {
	out := report.Receiver{LAN: r.LAN, Index: r.Index, Model: r.Model}
	out.Firmware, _ = c.ReceiverFirmware(r.LAN, r.Index)
	out.Brightness, _ = c.Brightness(r.LAN, r.Index)
	out.Kill, _ = c.KillMode(r.LAN, r.Index)
	out.Lock, _ = c.LockMode(r.LAN, r.Index)
	out.Gamma, _ = c.Gamma(r.LAN, r.Index)
	out.Monitoring, _ = c.Monitoring(r.LAN, r.Index)
	out.Modules, _ = c.moduleStatus(r.LAN, r.Index, layout)
	return out
}
