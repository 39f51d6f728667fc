// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

import (
	"reflect"
	"testing"
)

// ============================================================
// Decoder Table
// ============================================================

// decoders exposes every decoder as a validity check for totality tests
var decoders = map[string]func([]byte) bool{
	"connection":      func(r []byte) bool { return DecodeConnection(r).Valid() },
	"sender_model":    func(r []byte) bool { return DecodeSenderModel(r).Valid() },
	"sender_firmware": func(r []byte) bool { return DecodeSenderFirmware(r).Valid() },
	"dvi":             func(r []byte) bool { return DecodeDVISignal(r).Valid() },
	"input_mode":      func(r []byte) bool { return DecodeInputSourceMode(r).Valid() },
	"input_selected":  func(r []byte) bool { return DecodeInputSourceSelected(r).Valid() },
	"input_status":    func(r []byte) bool { return DecodeInputSourceStatus(r).Valid() },
	"als_mode":        func(r []byte) bool { return DecodeALSMode(r).Valid() },
	"als_direct":      func(r []byte) bool { return DecodeALSDirect(r).Valid() },
	"als_function":    func(r []byte) bool { return DecodeALSFunctionCard(r).Valid() },
	"auto_brightness": func(r []byte) bool { return DecodeAutoBrightnessSettings(r).Valid() },
	"cabinet":         func(r []byte) bool { return DecodeCabinetDimension(r).Valid() },
	"function_card":   func(r []byte) bool { return DecodeFunctionCardModel(r).Valid() },
	"redundancy":      func(r []byte) bool { return DecodeRedundancy(r).Valid() },
	"edid":            func(r []byte) bool { return DecodeEDID(r).Valid() },
	"receiver_model":  func(r []byte) bool { return DecodeReceiverModel(r).Valid() },
	"receiver_fw":     func(r []byte) bool { return DecodeReceiverFirmware(r).Valid() },
	"temperature":     func(r []byte) bool { return DecodeTemperature(r).Valid() },
	"voltage":         func(r []byte) bool { return DecodeVoltage(r).Valid() },
	"monitoring":      func(r []byte) bool { return DecodeMonitoring(r).Valid() },
	"kill_mode":       func(r []byte) bool { return DecodeKillMode(r).Valid() },
	"lock_mode":       func(r []byte) bool { return DecodeLockMode(r).Valid() },
	"brightness":      func(r []byte) bool { return DecodeBrightness(r).Valid() },
	"gamma":           func(r []byte) bool { return DecodeGamma(r).Valid() },
	"ribbon_cable":    func(r []byte) bool { return DecodeRibbonCable(r).Valid() },
	"module_status":   func(r []byte) bool { return DecodeModuleStatus(r, DefaultModuleLayout()).Valid() },
	"flash_readback":  func(r []byte) bool { return DecodeFlashReadback(r).Valid() },
}

func TestDecoders_FailedValidationIsNotAvailable(t *testing.T) {
	full := make([]byte, 300)
	for i := range full {
		full[i] = 0xFF
	}
	inputs := map[string][]byte{
		"nil":             nil,
		"truncated":       {0xAA, 0x55},
		"timeout":         buildResponse(StatusTimeout, full...),
		"invalid command": buildResponse(StatusInvalidCmd, full...),
		"unknown status":  buildResponse(0x99, full...),
	}

	for name, decode := range decoders {
		for inputName, resp := range inputs {
			if decode(resp) {
				t.Errorf("%s: expected N/A for %s response", name, inputName)
			}
		}
	}
}

// ============================================================
// Sender Decoders
// ============================================================

func TestDecodeSenderModel(t *testing.T) {
	tests := []struct {
		b18, b19 byte
		want     SenderModel
		lanPorts int
	}{
		{0x01, 0x01, SenderMCTRL500, 2},
		{0x01, 0x00, SenderMSD300, 2},
		{0x01, 0x11, SenderMSD600, 4},
		{0x01, 99, SenderUnknown, 2},
		{0x00, 0x00, SenderUnknown, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got, ok := DecodeSenderModel(okResponse(tt.b18, tt.b19)).Get()
			if !ok {
				t.Fatal("expected a value")
			}
			if got != tt.want {
				t.Errorf("(%d,%d): expected %q, got %q", tt.b18, tt.b19, tt.want, got)
			}
			if got.LANPorts() != tt.lanPorts {
				t.Errorf("expected %d LAN ports, got %d", tt.lanPorts, got.LANPorts())
			}
		})
	}
}

func TestDecodeSenderModel_MSD600String(t *testing.T) {
	got := DecodeSenderModel(okResponse(0x01, 0x11)).String()
	if got != "MSD600/MCTRL600/MCTRL610/MCTRL660" {
		t.Errorf("unexpected model string %q", got)
	}
}

func TestDecodeConnection(t *testing.T) {
	if v, _ := DecodeConnection(okResponse(0x00, 0x00)).Get(); v {
		t.Error("zero ack must report absent")
	}
	if v, _ := DecodeConnection(okResponse(0x00, 0x01)).Get(); !v {
		t.Error("non-zero ack must report present")
	}
}

func TestDecodeFirmware(t *testing.T) {
	if got := DecodeSenderFirmware(okResponse(1, 2, 3, 4)).String(); got != "1.2.3.4" {
		t.Errorf("sender firmware: got %q", got)
	}
	if got := DecodeReceiverFirmware(okResponse(4, 5, 6, 0x1A)).String(); got != "4.5.6.1a" {
		t.Errorf("receiver firmware: got %q", got)
	}
}

func TestDecodeDVISignal(t *testing.T) {
	tests := map[byte]SignalState{
		0x00: SignalNotValid,
		0x01: SignalValid,
		0x02: SignalUnknown,
		0xFF: SignalUnknown,
	}
	for b, want := range tests {
		if got, _ := DecodeDVISignal(okResponse(b)).Get(); got != want {
			t.Errorf("0x%02X: expected %q, got %q", b, want, got)
		}
	}
}

func TestDecodeInputSource(t *testing.T) {
	if got, _ := DecodeInputSourceMode(okResponse(0x5A)).Get(); got != InputManual {
		t.Errorf("0x5A: expected MANUAL, got %q", got)
	}
	if got, _ := DecodeInputSourceMode(okResponse(0x00)).Get(); got != InputAutomatic {
		t.Errorf("0x00: expected AUTOMATIC, got %q", got)
	}

	selected := map[byte]string{
		0x58: "DVI",
		0x61: "Dual DVI",
		0x05: "HDMI",
		0x01: "3G-SDI",
		0x5F: "DisplayPort",
		0x5A: "HDMI 1.4",
		0x77: InputNotSelected,
	}
	for b, want := range selected {
		if got := DecodeInputSourceSelected(okResponse(b)).String(); got != want {
			t.Errorf("selected 0x%02X: expected %q, got %q", b, want, got)
		}
	}

	status, ok := DecodeInputSourceStatus(okResponse(0x45)).Get()
	if !ok || !reflect.DeepEqual(status, []string{"3G-SDI", "DVI-1", "DisplayPort"}) {
		t.Errorf("status 0x45: got %v", status)
	}
	if DecodeInputSourceStatus(okResponse(0xFF)).Valid() {
		t.Error("status 0xFF must be N/A")
	}
}

func TestDecodeALS(t *testing.T) {
	modes := map[byte]ALSMode{0x7D: ALSEnabled, 0xFF: ALSDisabled, 0x10: ALSUnknown}
	for b, want := range modes {
		if got, _ := DecodeALSMode(okResponse(b)).Get(); got != want {
			t.Errorf("mode 0x%02X: expected %q, got %q", b, want, got)
		}
	}

	if lux, ok := DecodeALSDirect(okResponse(0x02, 0x80)).Get(); !ok || lux != 514 {
		t.Errorf("expected 514 lux, got %v (ok=%v)", lux, ok)
	}
	if DecodeALSDirect(okResponse(0x02, 0x00)).Valid() {
		t.Error("reading without validity bit must be N/A")
	}

	if lux, ok := DecodeALSFunctionCard(okResponse(0x00, 0x00, 0x80, 0x03)).Get(); !ok || lux != 771 {
		t.Errorf("expected 771 lux, got %v (ok=%v)", lux, ok)
	}
	if DecodeALSFunctionCard(okResponse(0x00, 0x00, 0x00, 0x03)).Valid() {
		t.Error("function card reading without validity bit must be N/A")
	}
}

func TestDecodeAutoBrightnessSettings(t *testing.T) {
	payload := make([]byte, 47)
	payload[0] = 2     // sensors
	payload[4] = 0x10  // max lux low
	payload[5] = 0x27  // max lux high
	payload[6] = 0x0A  // min lux low
	payload[8] = 255   // max brightness
	payload[9] = 26    // min brightness
	payload[10] = 8    // steps
	payload[23] = 0x01 // function card position
	payload[25] = 0x05 // sensor address
	payload[31] = 1    // sensor position
	payload[32] = 2    // port position

	got, ok := DecodeAutoBrightnessSettings(okResponse(payload...)).Get()
	if !ok {
		t.Fatal("expected settings")
	}
	want := AutoBrightnessSettings{
		Sensors:              2,
		MaxLux:               10000,
		MinLux:               10,
		MaxBrightness:        255,
		MaxBrightnessPercent: 100,
		MinBrightness:        26,
		MinBrightnessPercent: 10,
		Steps:                8,
		FunctionCardPosition: 1,
		SensorAddress:        5,
		SensorPosition:       1,
		PortPosition:         2,
	}
	if got != want {
		t.Errorf("unexpected settings:\n  got  %+v\n  want %+v", got, want)
	}
}

func TestDecodeCabinetDimension(t *testing.T) {
	if got, _ := DecodeCabinetDimension(okResponse(0x40, 0x01)).Get(); got != 320 {
		t.Errorf("expected 320, got %d", got)
	}
}

func TestDecodeRedundancy(t *testing.T) {
	got, ok := DecodeRedundancy(okResponse(0b11_00_10_01)).Get()
	if !ok || !reflect.DeepEqual(got, []uint8{1, 2, 0, 3}) {
		t.Errorf("unexpected redundancy %v", got)
	}
}

func TestDecodeFunctionCardModel(t *testing.T) {
	if got := DecodeFunctionCardModel(okResponse(0x01, 0x81)).String(); got != "MFN300/MFN300-B" {
		t.Errorf("got %q", got)
	}
	if got := DecodeFunctionCardModel(okResponse(0x01, 0x82)).String(); got != "Unknown" {
		t.Errorf("got %q", got)
	}
}

// ============================================================
// Receiver Decoders
// ============================================================

func TestDecodeTemperature(t *testing.T) {
	tests := []struct {
		name     string
		b18, b19 byte
		want     float64
		valid    bool
	}{
		{"positive", 0x80, 0x28, 20.0, true},
		{"negative", 0x81, 0x28, -20.0, true},
		{"low bit of magnitude ignored", 0x80, 0x29, 20.0, true},
		{"zero", 0x80, 0x00, 0.0, true},
		{"validity clear", 0x00, 0x28, 0, false},
		{"sign without validity", 0x01, 0x28, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeTemperature(okResponse(tt.b18, tt.b19)).Get()
			if ok != tt.valid {
				t.Fatalf("validity: expected %v, got %v", tt.valid, ok)
			}
			if ok && got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDecodeVoltage(t *testing.T) {
	if v, ok := DecodeVoltage(okResponse(0x80, 0x28, 0x00, 0x80|50)).Get(); !ok || v != 5.0 {
		t.Errorf("expected 5.0 V, got %v (ok=%v)", v, ok)
	}
	if DecodeVoltage(okResponse(0x80, 0x28, 0x00, 50)).Valid() {
		t.Error("voltage without validity bit must be N/A")
	}
	if DecodeVoltage(okResponse(0x80, 0x28)).Valid() {
		t.Error("truncated voltage must be N/A")
	}
}

func TestDecodeMonitoring(t *testing.T) {
	payload := make([]byte, 256)
	payload[0] = 0x80
	payload[1] = 0x50
	payload[3] = 0x80 | 49
	payload[50-OffsetPayload] = 0xFF

	m, ok := DecodeMonitoring(okResponse(payload...)).Get()
	if !ok {
		t.Fatal("expected monitoring data")
	}
	if !m.CardPresent {
		t.Error("expected monitoring card present")
	}
	if v := m.Temperature.Or(-1); v != 40.0 {
		t.Errorf("expected 40.0 °C, got %v", v)
	}
	if v := m.Voltage.Or(-1); v != 4.9 {
		t.Errorf("expected 4.9 V, got %v", v)
	}

	payload[50-OffsetPayload] = 0x00
	m, _ = DecodeMonitoring(okResponse(payload...)).Get()
	if m.CardPresent {
		t.Error("expected monitoring card absent")
	}
}

func TestDecodeKillMode(t *testing.T) {
	tests := []struct {
		b         byte
		want      KillState
		cabinetOn bool
	}{
		{0x00, KillOn, true},
		{0xFF, KillOff, false},
		{0x42, KillUnknown, false},
	}
	for _, tt := range tests {
		got, ok := DecodeKillMode(okResponse(tt.b)).Get()
		if !ok || got != tt.want {
			t.Errorf("0x%02X: expected %q, got %q", tt.b, tt.want, got)
		}
		if got.CabinetOn() != tt.cabinetOn {
			t.Errorf("0x%02X: cabinet on expected %v", tt.b, tt.cabinetOn)
		}
	}
}

func TestDecodeLockMode(t *testing.T) {
	tests := map[byte]LockState{0x00: LockNormal, 0xFF: LockLocked, 0x01: LockUnknown}
	for b, want := range tests {
		if got, _ := DecodeLockMode(okResponse(b)).Get(); got != want {
			t.Errorf("0x%02X: expected %q, got %q", b, want, got)
		}
	}
}

func TestDecodeReceiverModel(t *testing.T) {
	tests := []struct {
		b18, b19 byte
		want     string
	}{
		{0x06, 0x45, "Nova A4s"},
		{0x08, 0x45, "Nova A5s"},
		{0x0A, 0x45, "Nova A7s"},
		{0x09, 0x45, "Nova A8s"},
		{0x0F, 0x45, "MRV 366/MRV 316"},
		{0x10, 0x45, "MRV 328"},
		{0x0E, 0x45, "MRV 308"},
		{0x21, 0x46, "Nova A5s Plus"},
		{0x01, 0x45, "Unknown (4501)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := DecodeReceiverModel(okResponse(tt.b18, tt.b19)).String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecodeBrightness(t *testing.T) {
	got, ok := DecodeBrightness(okResponse(128, 255, 254, 253, 252)).Get()
	if !ok {
		t.Fatal("expected brightness")
	}
	want := BrightnessLevels{Level: 128, Percent: 50, Red: 255, Green: 254, Blue: 253, VRed: 252}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	full, _ := DecodeBrightness(okResponse(255, 0, 0, 0, 0)).Get()
	if full.Percent != 100 {
		t.Errorf("expected 100%%, got %d", full.Percent)
	}

	zero, ok := DecodeBrightness(okResponse(0, 0, 0, 0, 0)).Get()
	if !ok || zero.Level != 0 {
		t.Error("zero brightness must be a reading, not N/A")
	}
}

func TestDecodeGamma(t *testing.T) {
	if g, _ := DecodeGamma(okResponse(28)).Get(); g != 2.8 {
		t.Errorf("expected 2.8, got %v", g)
	}
}

func TestDecodeRibbonCable(t *testing.T) {
	payload := make([]byte, 16)
	payload[15] = 0x42
	got, ok := DecodeRibbonCable(okResponse(payload...)).Get()
	if !ok || len(got) != 16 || got[15] != 0x42 {
		t.Errorf("unexpected ribbon data %v", got)
	}
}
