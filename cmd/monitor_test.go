// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/controller"
	"github.com/Thermoquad/novaprobe/pkg/report"
	"github.com/Thermoquad/novaprobe/pkg/simulator"
)

func simulatedSnapshot(t *testing.T, dev *simulator.Device) *report.Snapshot {
	t.Helper()
	c := controller.New(dev, controller.WithSleep(func(time.Duration) {}))
	snap, err := c.Snapshot(context.Background(), "sim", controller.DefaultTopology())
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

// ============================================================
// Monitor Dashboard
// ============================================================

func TestMonitorModel_SweepDone(t *testing.T) {
	snap := simulatedSnapshot(t, simulator.NewDevice(3))
	m := newMonitorModel(nil, time.Minute)

	next, cmd := m.Update(sweepDoneMsg{snapshot: snap})
	m = next.(monitorModel)
	if cmd == nil {
		t.Error("next sweep must be scheduled")
	}
	if m.sweeping {
		t.Error("sweep should be finished")
	}
	if got := len(m.receivers.Rows()); got != 3 {
		t.Errorf("expected 3 receiver rows, got %d", got)
	}
	if len(m.eventLog) != len(snap.Results) {
		t.Errorf("first sweep logs every check, got %d events", len(m.eventLog))
	}

	view := m.View()
	for _, want := range []string{"NOVAPROBE - MONITOR", "MCTRL500", "Receivers (3)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestMonitorModel_OnlyChangesLogged(t *testing.T) {
	dev := simulator.NewDevice(1)
	m := newMonitorModel(nil, time.Minute)

	next, _ := m.Update(sweepDoneMsg{snapshot: simulatedSnapshot(t, dev)})
	m = next.(monitorModel)
	before := len(m.eventLog)

	next, _ = m.Update(sweepDoneMsg{snapshot: simulatedSnapshot(t, dev)})
	m = next.(monitorModel)
	if len(m.eventLog) != before {
		t.Errorf("unchanged sweep logged %d events", len(m.eventLog)-before)
	}

	dev.Receiver(0, 0).Kill = 0xFF
	next, _ = m.Update(sweepDoneMsg{snapshot: simulatedSnapshot(t, dev)})
	m = next.(monitorModel)
	last := m.eventLog[len(m.eventLog)-1]
	if !last.isError || !strings.HasPrefix(last.message, "display WARNING") {
		t.Errorf("unexpected event %+v", last)
	}
}

func TestMonitorModel_SweepError(t *testing.T) {
	m := newMonitorModel(nil, time.Minute)
	next, _ := m.Update(sweepDoneMsg{err: errors.New("port gone")})
	m = next.(monitorModel)

	if !strings.Contains(m.View(), "port gone") {
		t.Error("error must be shown before the first snapshot")
	}
}

// ============================================================
// Argument Helpers
// ============================================================

func TestCardAddress(t *testing.T) {
	lan, card, err := cardAddress(2, 256)
	if err != nil || lan != 1 || card != 255 {
		t.Errorf("got %d %d %v", lan, card, err)
	}
	for _, bad := range [][2]int{{0, 1}, {17, 1}, {1, 0}, {1, 257}} {
		if _, _, err := cardAddress(bad[0], bad[1]); err == nil {
			t.Errorf("%v should be rejected", bad)
		}
	}
}
