// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/health"
	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/fxamacker/cbor/v2"
)

func sampleSnapshot() *Snapshot {
	healthy := []novastar.ModuleReport{{Index: 0, Status: novastar.ModuleOK, StatusByte: 0xFF}}
	receiver := Receiver{
		LAN:        0,
		Index:      0,
		Model:      novastar.Of(novastar.ReceiverModel{Name: "Nova A5s", ID: "4508"}),
		Firmware:   novastar.Of("4.6.1.0a"),
		Brightness: novastar.Of(novastar.BrightnessLevels{Level: 255, Percent: 100}),
		Kill:       novastar.Of(novastar.KillOn),
		Lock:       novastar.Of(novastar.LockNormal),
		Gamma:      novastar.Of(2.8),
		Monitoring: novastar.Of(novastar.Monitoring{
			CardPresent: true,
			Temperature: novastar.Of(35.0),
			Voltage:     novastar.Of(5.0),
		}),
		Modules: novastar.Of(healthy),
	}
	return &Snapshot{
		RunID: "run-1",
		Port:  "/dev/ttyUSB0",
		Taken: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Found: true,
		Sender: Sender{
			Model:    novastar.Of(novastar.SenderMCTRL500),
			Firmware: novastar.Of("4.6.1.0"),
			LANPorts: 2,
			DVI:      novastar.Of(novastar.SignalValid),
		},
		LANs: []LAN{{Port: 0, Receivers: []Receiver{receiver}}, {Port: 1}},
	}
}

// ============================================================
// Evaluation
// ============================================================

func TestEvaluate_Healthy(t *testing.T) {
	s := sampleSnapshot()
	results := s.Evaluate(1)

	if len(results) != 8 {
		t.Errorf("expected 8 results, got %d", len(results))
	}
	if s.Severity() != health.OK {
		for _, r := range results {
			t.Logf("%+v", r)
		}
		t.Errorf("expected OK, got %s", s.Severity())
	}
}

func TestEvaluate_NotFound(t *testing.T) {
	s := &Snapshot{Port: "/dev/ttyUSB0"}
	results := s.Evaluate(4)
	if len(results) != 1 || results[0].Check != health.CheckSender || s.Severity() != health.Critical {
		t.Errorf("unexpected %+v", results)
	}
}

func TestEvaluate_NoReceivers(t *testing.T) {
	s := sampleSnapshot()
	s.LANs = nil
	s.Evaluate(2)

	if s.Severity() != health.Critical {
		t.Errorf("missing receivers must be CRITICAL, got %s", s.Severity())
	}
	for _, r := range s.Results {
		if r.Check == health.CheckModules {
			t.Error("per-receiver checks need at least one receiver")
		}
	}
}

func TestEvaluate_WarningsCombine(t *testing.T) {
	s := sampleSnapshot()
	r := &s.LANs[0].Receivers[0]
	r.Brightness = novastar.Of(novastar.BrightnessLevels{})
	r.Lock = novastar.Of(novastar.LockLocked)
	s.Evaluate(0)

	if s.Severity() != health.Warning {
		t.Errorf("expected WARNING, got %s", s.Severity())
	}
}

// ============================================================
// Encoding
// ============================================================

func TestEncode_JSON(t *testing.T) {
	s := sampleSnapshot()
	s.Sender.Width = novastar.NA[uint16]()
	s.Evaluate(1)

	var buf bytes.Buffer
	if err := Encode(&buf, "json", s); err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	sender := doc["sender"].(map[string]any)
	if sender["model"] != "MCTRL500" {
		t.Errorf("model %v", sender["model"])
	}
	if v, ok := sender["cabinet_width"]; !ok || v != nil {
		t.Errorf("N/A field must encode as null, got %v", v)
	}
	if !strings.Contains(buf.String(), `"severity": "OK"`) {
		t.Error("severity should encode by name")
	}
}

func TestEncode_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, "yaml", sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"run_id: run-1", "model: MCTRL500", "temperature: 35", "cabinet_width: null"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML missing %q:\n%s", want, out)
		}
	}
}

func TestEncode_CBOR(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, "cbor", sampleSnapshot()); err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := cbor.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid CBOR: %v", err)
	}
	if doc["port"] != "/dev/ttyUSB0" {
		t.Errorf("port %v", doc["port"])
	}
	sender, ok := doc["sender"].(map[any]any)
	if !ok {
		t.Fatalf("sender is %T", doc["sender"])
	}
	if sender["cabinet_height"] != nil {
		t.Errorf("N/A field must encode as null, got %v", sender["cabinet_height"])
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			s := sampleSnapshot()
			s.Sender.Width = novastar.NA[uint16]()
			s.Evaluate(1)

			var buf bytes.Buffer
			if err := Encode(&buf, format, s); err != nil {
				t.Fatal(err)
			}
			back, err := Decode(&buf, format)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			if back.RunID != s.RunID || !back.Taken.Equal(s.Taken) {
				t.Errorf("decoded %+v", back)
			}
			if back.Sender.Width.Valid() {
				t.Errorf("N/A width came back as %v", back.Sender.Width)
			}
			if back.Sender.Height.Valid() {
				t.Error("unset height must stay N/A")
			}
			if got := back.Sender.Model.Or(""); got != novastar.SenderMCTRL500 {
				t.Errorf("model %q", got)
			}
			if back.ReceiverCount() != 1 {
				t.Fatalf("expected 1 receiver, got %d", back.ReceiverCount())
			}
			mon := back.LANs[0].Receivers[0].Monitoring.Or(novastar.Monitoring{})
			if got := mon.Temperature.Or(-1); got != 35 {
				t.Errorf("temperature %v", got)
			}
			if back.Sender.Redundancy.Valid() || back.Brightness.Lux.Valid() {
				t.Error("unread readings must stay N/A")
			}
			if back.Severity() != health.OK {
				t.Errorf("severity %s", back.Severity())
			}
		})
	}
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := Decode(strings.NewReader("{}"), "xml")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, "xml", sampleSnapshot())
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFormats(t *testing.T) {
	got := strings.Join(Formats(), ",")
	if got != "cbor,json,yaml" {
		t.Errorf("formats %s", got)
	}
}

func TestMarshal_Storage(t *testing.T) {
	s := sampleSnapshot()
	s.Evaluate(1)

	data, err := Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	if back.RunID != s.RunID || back.ReceiverCount() != 1 || back.Severity() != health.OK {
		t.Errorf("decoded %+v", back)
	}
	if back.Sender.Width.Valid() {
		t.Error("N/A must stay N/A")
	}
	mon, _ := back.LANs[0].Receivers[0].Monitoring.Get()
	if mon.Temperature.Or(0) != 35 {
		t.Errorf("temperature %v", mon.Temperature)
	}
}
