// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

import (
	"encoding/hex"
	"fmt"
)

// ReceiverModel identifies the receiver card hardware
type ReceiverModel struct {
	Name string `json:"name" yaml:"name" cbor:"name"`
	ID   string `json:"id" yaml:"id" cbor:"id"`
}

// String returns the model name, with the raw id for unknown models
func (m ReceiverModel) String() string {
	if m.Name == ReceiverUnknown {
		return fmt.Sprintf("%s (%s)", m.Name, m.ID)
	}
	return m.Name
}

// ReceiverUnknown names an unrecognised receiver id
const ReceiverUnknown = "Unknown"

// receiverModels is keyed by (byte 19, byte 18)
var receiverModels = map[[2]byte]string{
	{0x45, 0x06}: "Nova A4s",
	{0x45, 0x08}: "Nova A5s",
	{0x45, 0x0A}: "Nova A7s",
	{0x45, 0x09}: "Nova A8s",
	{0x45, 0x0F}: "MRV 366/MRV 316",
	{0x45, 0x10}: "MRV 328",
	{0x45, 0x0E}: "MRV 308",
	{0x46, 0x21}: "Nova A5s Plus",
}

// KillState is the cabinet output state. 0x00 means the display is driven.
type KillState string

const (
	KillOn      KillState = "On"
	KillOff     KillState = "Off"
	KillUnknown KillState = "Unknown"
)

var killStates = map[byte]KillState{
	0x00: KillOn,
	0xFF: KillOff,
}

// CabinetOn reports whether the cabinet is lit; Unknown counts as off
func (k KillState) CabinetOn() bool {
	return k == KillOn
}

// LockState is the receiver lock mode
type LockState string

const (
	LockNormal  LockState = "Normal"
	LockLocked  LockState = "Locked"
	LockUnknown LockState = "Unknown"
)

var lockStates = map[byte]LockState{
	0x00: LockNormal,
	0xFF: LockLocked,
}

// BrightnessLevels is the receiver brightness block
type BrightnessLevels struct {
	Level   uint8 `json:"level" yaml:"level" cbor:"level"`
	Percent int   `json:"percent" yaml:"percent" cbor:"percent"`
	Red     uint8 `json:"red" yaml:"red" cbor:"red"`
	Green   uint8 `json:"green" yaml:"green" cbor:"green"`
	Blue    uint8 `json:"blue" yaml:"blue" cbor:"blue"`
	VRed    uint8 `json:"vred" yaml:"vred" cbor:"vred"`
}

// Monitoring is the monitoring card block of a receiver
type Monitoring struct {
	CardPresent bool           `json:"card_present" yaml:"card_present" cbor:"card_present"`
	Temperature Field[float64] `json:"temperature" yaml:"temperature" cbor:"temperature"`
	Voltage     Field[float64] `json:"voltage" yaml:"voltage" cbor:"voltage"`
}

// DecodeReceiverModel maps (byte 19, byte 18) to the receiver model
func DecodeReceiverModel(resp []byte) Field[ReceiverModel] {
	b, ok := payloadAt(resp, OffsetPayload, 2)
	if !ok {
		return NA[ReceiverModel]()
	}
	id := hex.EncodeToString([]byte{b[1], b[0]})
	if name, found := receiverModels[[2]byte{b[1], b[0]}]; found {
		return Of(ReceiverModel{Name: name, ID: id})
	}
	return Of(ReceiverModel{Name: ReceiverUnknown, ID: id})
}

// DecodeReceiverFirmware renders bytes 18-21 as a version, the last byte in hex
func DecodeReceiverFirmware(resp []byte) Field[string] {
	b, ok := payloadAt(resp, OffsetPayload, 4)
	if !ok {
		return NA[string]()
	}
	return Of(fmt.Sprintf("%d.%d.%d.%02x", b[0], b[1], b[2], b[3]))
}

// DecodeTemperature returns the receiver temperature in °C. Byte 18 bit 7
// flags validity and bit 0 the sign; byte 19 without its low bit counts
// half degrees.
func DecodeTemperature(resp []byte) Field[float64] {
	b, ok := payloadAt(resp, OffsetPayload, 2)
	if !ok || b[0]&0x80 == 0 {
		return NA[float64]()
	}
	v := float64(b[1]&0xFE) * 0.5
	if b[0]&0x01 != 0 {
		v = -v
	}
	return Of(v)
}

// DecodeVoltage returns the receiver supply voltage. Byte 21 bit 7 flags
// validity; the low seven bits count tenths of a volt.
func DecodeVoltage(resp []byte) Field[float64] {
	b, ok := payloadAt(resp, OffsetPayload+3, 1)
	if !ok || b[0]&0x80 == 0 {
		return NA[float64]()
	}
	return Of(float64(b[0]&0x7F) / 10)
}

// DecodeMonitoring decodes a monitoring response: temperature, voltage and
// whether a monitoring card answered (byte 50 is 0xFF)
func DecodeMonitoring(resp []byte) Field[Monitoring] {
	if Validate(resp) != nil || len(resp) < OffsetPayload+4 {
		return NA[Monitoring]()
	}
	m := Monitoring{
		Temperature: DecodeTemperature(resp),
		Voltage:     DecodeVoltage(resp),
	}
	if b, ok := payloadAt(resp, 50, 1); ok {
		m.CardPresent = b[0] == 0xFF
	}
	return Of(m)
}

// DecodeKillMode maps byte 18 to the cabinet output state
func DecodeKillMode(resp []byte) Field[KillState] {
	b, ok := payloadAt(resp, OffsetPayload, 1)
	if !ok {
		return NA[KillState]()
	}
	if k, found := killStates[b[0]]; found {
		return Of(k)
	}
	return Of(KillUnknown)
}

// DecodeLockMode maps byte 18 to the lock state
func DecodeLockMode(resp []byte) Field[LockState] {
	b, ok := payloadAt(resp, OffsetPayload, 1)
	if !ok {
		return NA[LockState]()
	}
	if l, found := lockStates[b[0]]; found {
		return Of(l)
	}
	return Of(LockUnknown)
}

// DecodeBrightness decodes the global level and the colour channels
func DecodeBrightness(resp []byte) Field[BrightnessLevels] {
	b, ok := payloadAt(resp, OffsetPayload, 5)
	if !ok {
		return NA[BrightnessLevels]()
	}
	return Of(BrightnessLevels{
		Level:   b[0],
		Percent: roundPercent(b[0]),
		Red:     b[1],
		Green:   b[2],
		Blue:    b[3],
		VRed:    b[4],
	})
}

// DecodeGamma returns the gamma value stored in tenths at byte 18
func DecodeGamma(resp []byte) Field[float64] {
	b, ok := payloadAt(resp, OffsetPayload, 1)
	if !ok {
		return NA[float64]()
	}
	return Of(float64(b[0]) / 10)
}

// DecodeRibbonCable returns the 16 raw ribbon cable status bytes
func DecodeRibbonCable(resp []byte) Field[[]byte] {
	b, ok := payloadAt(resp, OffsetPayload, 16)
	if !ok {
		return NA[[]byte]()
	}
	return Of(append([]byte(nil), b...))
}
