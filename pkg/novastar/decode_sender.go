// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SenderModel identifies the sender card hardware
type SenderModel string

const (
	SenderMCTRL500 SenderModel = "MCTRL500"
	SenderMSD300   SenderModel = "MSD300/MCTRL300"
	SenderMSD600   SenderModel = "MSD600/MCTRL600/MCTRL610/MCTRL660"
	SenderUnknown  SenderModel = "Unknown"
)

var senderModels = map[[2]byte]SenderModel{
	{0x01, 0x01}: SenderMCTRL500,
	{0x01, 0x00}: SenderMSD300,
	{0x01, 0x11}: SenderMSD600,
}

// LANPorts returns the number of LAN/output ports the model drives
func (m SenderModel) LANPorts() int {
	if m == SenderMSD600 {
		return MSD600LANPorts
	}
	return DefaultLANPorts
}

// SignalState is the DVI input state
type SignalState string

const (
	SignalValid    SignalState = "Valid"
	SignalNotValid SignalState = "Not valid"
	SignalUnknown  SignalState = "Unknown"
)

var signalStates = map[byte]SignalState{
	0x00: SignalNotValid,
	0x01: SignalValid,
}

// InputMode is the input source selection mode
type InputMode string

const (
	InputAutomatic InputMode = "AUTOMATIC"
	InputManual    InputMode = "MANUAL"
)

// InputNotSelected is reported for unrecognised selected-input bytes
const InputNotSelected = "N/A or not selected"

var inputPorts = map[byte]string{
	0x58: "DVI",
	0x61: "Dual DVI",
	0x05: "HDMI",
	0x01: "3G-SDI",
	0x5F: "DisplayPort",
	0x5A: "HDMI 1.4",
}

// inputStatusBits lists the input status bitmask in bit order
var inputStatusBits = []struct {
	mask byte
	name string
}{
	{0x01, "3G-SDI"},
	{0x02, "HDMI"},
	{0x04, "DVI-1"},
	{0x08, "DVI-2"},
	{0x10, "DVI-3"},
	{0x20, "DVI-4"},
	{0x40, "DisplayPort"},
}

// ALSMode is the automatic brightness (light sensor) mode
type ALSMode string

const (
	ALSEnabled  ALSMode = "Enabled"
	ALSDisabled ALSMode = "Disabled"
	ALSUnknown  ALSMode = "Unknown"
)

var alsModes = map[byte]ALSMode{
	0x7D: ALSEnabled,
	0xFF: ALSDisabled,
}

// AutoBrightnessSettings is the sender's light sensor configuration
type AutoBrightnessSettings struct {
	Sensors              uint8  `json:"sensors" yaml:"sensors" cbor:"sensors"`
	MaxLux               uint16 `json:"max_lux" yaml:"max_lux" cbor:"max_lux"`
	MinLux               uint16 `json:"min_lux" yaml:"min_lux" cbor:"min_lux"`
	MaxBrightness        uint8  `json:"max_brightness" yaml:"max_brightness" cbor:"max_brightness"`
	MaxBrightnessPercent int    `json:"max_brightness_percent" yaml:"max_brightness_percent" cbor:"max_brightness_percent"`
	MinBrightness        uint8  `json:"min_brightness" yaml:"min_brightness" cbor:"min_brightness"`
	MinBrightnessPercent int    `json:"min_brightness_percent" yaml:"min_brightness_percent" cbor:"min_brightness_percent"`
	Steps                uint8  `json:"steps" yaml:"steps" cbor:"steps"`
	FunctionCardPosition uint16 `json:"function_card_position" yaml:"function_card_position" cbor:"function_card_position"`
	SensorAddress        uint8  `json:"sensor_address" yaml:"sensor_address" cbor:"sensor_address"`
	SensorPosition       uint8  `json:"sensor_position" yaml:"sensor_position" cbor:"sensor_position"`
	PortPosition         uint8  `json:"port_position" yaml:"port_position" cbor:"port_position"`
}

// DecodeConnection reports whether a controller acknowledged the connection query
func DecodeConnection(resp []byte) Field[bool] {
	b, ok := payloadAt(resp, OffsetPayload, 2)
	if !ok {
		return NA[bool]()
	}
	return Of(b[0] != 0 || b[1] != 0)
}

// DecodeSenderModel maps bytes 18-19 to the sender card model
func DecodeSenderModel(resp []byte) Field[SenderModel] {
	b, ok := payloadAt(resp, OffsetPayload, 2)
	if !ok {
		return NA[SenderModel]()
	}
	if m, found := senderModels[[2]byte{b[0], b[1]}]; found {
		return Of(m)
	}
	return Of(SenderUnknown)
}

// DecodeSenderFirmware renders bytes 18-21 as a dotted version
func DecodeSenderFirmware(resp []byte) Field[string] {
	b, ok := payloadAt(resp, OffsetPayload, 4)
	if !ok {
		return NA[string]()
	}
	return Of(fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3]))
}

// DecodeDVISignal maps byte 18 to the DVI input state
func DecodeDVISignal(resp []byte) Field[SignalState] {
	b, ok := payloadAt(resp, OffsetPayload, 1)
	if !ok {
		return NA[SignalState]()
	}
	if s, found := signalStates[b[0]]; found {
		return Of(s)
	}
	return Of(SignalUnknown)
}

// DecodeInputSourceMode reports manual selection when byte 18 is 0x5A
func DecodeInputSourceMode(resp []byte) Field[InputMode] {
	b, ok := payloadAt(resp, OffsetPayload, 1)
	if !ok {
		return NA[InputMode]()
	}
	if b[0] == 0x5A {
		return Of(InputManual)
	}
	return Of(InputAutomatic)
}

// DecodeInputSourceSelected maps byte 18 to the selected video input
func DecodeInputSourceSelected(resp []byte) Field[string] {
	b, ok := payloadAt(resp, OffsetPayload, 1)
	if !ok {
		return NA[string]()
	}
	if name, found := inputPorts[b[0]]; found {
		return Of(name)
	}
	return Of(InputNotSelected)
}

// DecodeInputSourceStatus lists the inputs flagged in the byte 18 bitmask.
// 0xFF means the sender does not report input status.
func DecodeInputSourceStatus(resp []byte) Field[[]string] {
	b, ok := payloadAt(resp, OffsetPayload, 1)
	if !ok || b[0] == 0xFF {
		return NA[[]string]()
	}
	inputs := []string{}
	for _, bit := range inputStatusBits {
		if b[0]&bit.mask != 0 {
			inputs = append(inputs, bit.name)
		}
	}
	return Of(inputs)
}

// DecodeALSMode maps byte 18 to the automatic brightness mode
func DecodeALSMode(resp []byte) Field[ALSMode] {
	b, ok := payloadAt(resp, OffsetPayload, 1)
	if !ok {
		return NA[ALSMode]()
	}
	if m, found := alsModes[b[0]]; found {
		return Of(m)
	}
	return Of(ALSUnknown)
}

// DecodeALSDirect returns the light sensor reading in lux. Byte 19 bit 7
// flags a valid reading.
func DecodeALSDirect(resp []byte) Field[float64] {
	b, ok := payloadAt(resp, OffsetPayload, 2)
	if !ok || b[1]&0x80 == 0 {
		return NA[float64]()
	}
	return Of(float64(b[0]) * 257)
}

// DecodeALSFunctionCard returns the function card light sensor reading in
// lux. Byte 20 bit 7 flags a valid reading held in byte 21.
func DecodeALSFunctionCard(resp []byte) Field[float64] {
	b, ok := payloadAt(resp, OffsetPayload, 4)
	if !ok || b[2]&0x80 == 0 {
		return NA[float64]()
	}
	return Of(float64(b[3]) * 257)
}

// DecodeAutoBrightnessSettings decodes the 47-byte light sensor block
func DecodeAutoBrightnessSettings(resp []byte) Field[AutoBrightnessSettings] {
	b, ok := payloadAt(resp, OffsetPayload, 33)
	if !ok {
		return NA[AutoBrightnessSettings]()
	}
	s := AutoBrightnessSettings{
		Sensors:              b[0],
		MaxLux:               uint16(b[5])<<8 | uint16(b[4]),
		MinLux:               uint16(b[7])<<8 | uint16(b[6]),
		MaxBrightness:        b[8],
		MaxBrightnessPercent: truncPercent(b[8]),
		MinBrightness:        b[9],
		MinBrightnessPercent: truncPercent(b[9]),
		Steps:                b[10],
		FunctionCardPosition: binary.LittleEndian.Uint16(b[23:25]),
		SensorAddress:        b[25],
		SensorPosition:       b[31],
		PortPosition:         b[32],
	}
	return Of(s)
}

// DecodeCabinetDimension decodes the little-endian width or height at 18
func DecodeCabinetDimension(resp []byte) Field[uint16] {
	b, ok := payloadAt(resp, OffsetPayload, 2)
	if !ok {
		return NA[uint16]()
	}
	return Of(binary.LittleEndian.Uint16(b))
}

// DecodeFunctionCardModel maps bytes 18-19 to the function card model
func DecodeFunctionCardModel(resp []byte) Field[string] {
	b, ok := payloadAt(resp, OffsetPayload, 2)
	if !ok {
		return NA[string]()
	}
	if b[0] == 0x01 && b[1] == 0x81 {
		return Of("MFN300/MFN300-B")
	}
	return Of("Unknown")
}

// DecodeRedundancy returns the 2-bit redundancy state of each of the four
// output ports packed into byte 18
func DecodeRedundancy(resp []byte) Field[[]uint8] {
	b, ok := payloadAt(resp, OffsetPayload, 1)
	if !ok {
		return NA[[]uint8]()
	}
	ports := make([]uint8, 4)
	for i := range ports {
		ports[i] = (b[0] >> (2 * i)) & 0x03
	}
	return Of(ports)
}

// DecodeEDID returns the raw EDID block read back from the sender
func DecodeEDID(resp []byte) Field[[]byte] {
	if Validate(resp) != nil || len(resp) <= OffsetPayload {
		return NA[[]byte]()
	}
	end := len(resp) - ChecksumSize
	if end > OffsetPayload+int(EDID.Length()) {
		end = OffsetPayload + int(EDID.Length())
	}
	if end <= OffsetPayload {
		return NA[[]byte]()
	}
	return Of(append([]byte(nil), resp[OffsetPayload:end]...))
}

// truncPercent converts a 0-255 level to a truncated percentage
func truncPercent(b byte) int {
	return int(100 * float64(b) / 255)
}

// roundPercent converts a 0-255 level to a rounded percentage
func roundPercent(b byte) int {
	return int(math.Round(100 * float64(b) / 255))
}
