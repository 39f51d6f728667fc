// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package discovery

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/Thermoquad/novaprobe/pkg/simulator"
)

// ============================================================
// Helpers
// ============================================================

// simLink wraps a simulated device as a closable link
type simLink struct {
	*simulator.Device
	closed bool
}

func (l *simLink) Close() error {
	l.closed = true
	return nil
}

// countingExchanger answers receiver queries for cards below n and records
// every card index queried
type countingExchanger struct {
	n       int
	err     error
	queried []int
}

func (c *countingExchanger) Exchange(frame []byte) ([]byte, error) {
	card := int(binary.LittleEndian.Uint16(frame[novastar.OffsetCard:]))
	c.queried = append(c.queried, card)
	if card >= c.n {
		return nil, c.err
	}
	return []byte{0xAA, 0x55, 0x00, 0x00, 0x00, 0xFE, 0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00, 0x08, 0x45, 0x00, 0x00}, nil
}

// ============================================================
// Receiver Enumeration
// ============================================================

func TestEnumerateReceivers_StopsAtFirstMissingCard(t *testing.T) {
	for _, n := range []int{0, 1, 3, 8} {
		ex := &countingExchanger{n: n, err: novastar.ErrNoResponse}

		receivers, err := EnumerateReceivers(context.Background(), ex, 0)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(receivers) != n {
			t.Errorf("n=%d: found %d receivers", n, len(receivers))
		}

		// Exactly cards 0..n are queried, never n+1
		if len(ex.queried) != n+1 {
			t.Errorf("n=%d: queried %v", n, ex.queried)
		}
		for i, card := range ex.queried {
			if card != i {
				t.Errorf("n=%d: query %d addressed card %d", n, i, card)
			}
		}
	}
}

func TestEnumerateReceivers_AnyFailureEnds(t *testing.T) {
	ex := &countingExchanger{n: 2, err: errors.New("transport failed")}

	receivers, err := EnumerateReceivers(context.Background(), ex, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(receivers) != 2 || len(ex.queried) != 3 {
		t.Errorf("found %d, queried %v", len(receivers), ex.queried)
	}
	for _, r := range receivers {
		if r.LAN != 1 {
			t.Errorf("receiver %d reports LAN %d", r.Index, r.LAN)
		}
	}
}

func TestEnumerator_States(t *testing.T) {
	ex := &countingExchanger{n: 1, err: novastar.ErrNoResponse}
	e := NewEnumerator(ex, 0)

	if e.State() != Searching {
		t.Errorf("initial state %v", e.State())
	}
	if !e.Next() || e.State() != Found || e.Receiver().Index != 0 {
		t.Errorf("expected Found(0), got %v", e.State())
	}
	if e.Receiver().Model.Or(novastar.ReceiverModel{}).Name != "Nova A5s" {
		t.Errorf("model %v", e.Receiver().Model)
	}
	if e.Next() || e.State() != Done || e.Count() != 1 {
		t.Errorf("expected Done(1), got %v(%d)", e.State(), e.Count())
	}
	if !errors.Is(e.Err(), novastar.ErrNoResponse) {
		t.Errorf("expected ErrNoResponse, got %v", e.Err())
	}

	// Done is terminal
	if e.Next() || len(ex.queried) != 2 {
		t.Errorf("queried after Done: %v", ex.queried)
	}
}

func TestEnumerator_DeviceErrorEnds(t *testing.T) {
	dev := simulator.NewDevice(3)
	dev.Status = novastar.StatusInvalidCmd

	receivers, err := EnumerateReceivers(context.Background(), dev, 0)
	if err != nil || len(receivers) != 0 {
		t.Errorf("found %d receivers (%v)", len(receivers), err)
	}
}

func TestEnumerateReceivers_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := &countingExchanger{n: 5}
	_, err := EnumerateReceivers(ctx, ex, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(ex.queried) != 0 {
		t.Errorf("queried %v after cancel", ex.queried)
	}
}

func TestWalkLANs(t *testing.T) {
	dev := simulator.NewDevice(3)
	dev.LANs[1] = []*simulator.Receiver{simulator.NewReceiver(4, 4)}

	id, err := Identify(dev, "sim")
	if err != nil {
		t.Fatal(err)
	}

	lans, err := WalkLANs(context.Background(), dev, id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lans) != 2 {
		t.Fatalf("MCTRL500 should walk 2 LANs, got %d", len(lans))
	}
	if len(lans[0].Receivers) != 3 || len(lans[1].Receivers) != 1 {
		t.Errorf("receivers per LAN: %d, %d", len(lans[0].Receivers), len(lans[1].Receivers))
	}
	if TotalReceivers(lans) != 4 {
		t.Errorf("total %d", TotalReceivers(lans))
	}

	lans, _ = WalkLANs(context.Background(), dev, id, 1)
	if len(lans) != 1 {
		t.Errorf("override should walk 1 LAN, got %d", len(lans))
	}
}

func TestWalkLANs_MSD600(t *testing.T) {
	dev := simulator.NewDevice(1)
	dev.Model = [2]byte{0x01, 0x11}

	id, err := Identify(dev, "sim")
	if err != nil {
		t.Fatal(err)
	}
	if id.LANPorts() != 4 {
		t.Fatalf("MSD600 reports %d LAN ports", id.LANPorts())
	}
	lans, _ := WalkLANs(context.Background(), dev, id, 0)
	if len(lans) != 4 {
		t.Errorf("walked %d LANs", len(lans))
	}
}

// ============================================================
// Identify and Scan
// ============================================================

func TestIdentify_Sender(t *testing.T) {
	id, err := Identify(simulator.NewDevice(0), "/dev/ttyUSB0")
	if err != nil {
		t.Fatal(err)
	}
	if id.Port != "/dev/ttyUSB0" {
		t.Errorf("port %q", id.Port)
	}
	if m, _ := id.Model.Get(); m != novastar.SenderMCTRL500 {
		t.Errorf("model %q", m)
	}
	if fw, _ := id.Firmware.Get(); fw != "4.6.1.0" {
		t.Errorf("firmware %q", fw)
	}
}

func TestIdentify_Silent(t *testing.T) {
	dev := simulator.NewDevice(0)
	dev.Silent = true

	if _, err := Identify(dev, "sim"); !errors.Is(err, novastar.ErrNoResponse) {
		t.Errorf("expected ErrNoResponse, got %v", err)
	}
}

func TestScanner_Scan(t *testing.T) {
	var mu sync.Mutex
	links := map[string]*simLink{}

	open := func(name string) (Link, error) {
		switch name {
		case "busy":
			return nil, errors.New("device busy")
		case "silent":
			dev := simulator.NewDevice(0)
			dev.Silent = true
			l := &simLink{Device: dev}
			mu.Lock()
			links[name] = l
			mu.Unlock()
			return l, nil
		default:
			l := &simLink{Device: simulator.NewDevice(1)}
			mu.Lock()
			links[name] = l
			mu.Unlock()
			return l, nil
		}
	}

	ports := []string{"busy", "silent", "ok1", "ok2"}
	results := NewScanner(open, WithWorkers(3)).Scan(context.Background(), ports)
	if len(results) != len(ports) {
		t.Fatalf("got %d results", len(results))
	}

	for i, r := range results {
		if r.Port != ports[i] {
			t.Errorf("result %d is for %q", i, r.Port)
		}
	}
	if !errors.Is(results[0].Err, novastar.ErrPortUnavailable) {
		t.Errorf("busy: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, novastar.ErrNoResponse) {
		t.Errorf("silent: %v", results[1].Err)
	}
	if !results[2].Responding() || !results[3].Responding() {
		t.Errorf("ok ports not responding: %v %v", results[2].Err, results[3].Err)
	}

	for name, l := range links {
		if !l.closed {
			t.Errorf("%s left open", name)
		}
	}
}

func TestScanner_First(t *testing.T) {
	open := func(name string) (Link, error) {
		dev := simulator.NewDevice(0)
		dev.Silent = name != "b"
		return &simLink{Device: dev}, nil
	}
	s := NewScanner(open)

	id, err := s.First(context.Background(), []string{"a", "b", "c"})
	if err != nil || id.Port != "b" {
		t.Errorf("first = %q (%v)", id.Port, err)
	}

	_, err = s.First(context.Background(), []string{"a", "c"})
	if !errors.Is(err, ErrNoSender) {
		t.Errorf("expected ErrNoSender, got %v", err)
	}
}

func TestScanner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	open := func(string) (Link, error) {
		t.Error("opened a port after cancel")
		return nil, errors.New("unreachable")
	}
	results := NewScanner(open).Scan(ctx, []string{"a", "b"})
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: %v", r.Port, r.Err)
		}
	}
}
