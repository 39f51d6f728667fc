// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package novastar implements the Novastar sender/receiver card serial protocol.
//
// Requests are fixed-layout frames starting with 55 AA and ending in a
// 16-bit additive checksum. Responses start with AA 55, carry a status code at
// offset 2 and their payload from offset 18. This package builds request
// frames from immutable templates, validates responses and decodes the typed
// fields the controllers report.
package novastar

// Frame headers
const (
	RequestHeader0  = 0x55
	RequestHeader1  = 0xAA
	ResponseHeader0 = 0xAA
	ResponseHeader1 = 0x55
)

// Frame layout offsets
const (
	OffsetStatus     = 2
	OffsetCommand    = 3
	OffsetDevice     = 6
	OffsetPort       = 7
	OffsetCard       = 8
	OffsetReadWrite  = 10
	OffsetAddress    = 12
	OffsetLength     = 16
	OffsetPayload    = 18
	HeaderSize       = 18
	ChecksumSize     = 2
	MinResponseSize  = 3
	MinFrameSize     = HeaderSize + ChecksumSize
	checksumConstant = 0x5555
)

// DeviceType selects the card class a request is addressed to (offset 6)
type DeviceType uint8

const (
	DeviceSender       DeviceType = 0x00
	DeviceReceiver     DeviceType = 0x01
	DeviceFunctionCard DeviceType = 0x02
)

// String returns the card class name
func (d DeviceType) String() string {
	switch d {
	case DeviceSender:
		return "sender"
	case DeviceReceiver:
		return "receiver"
	case DeviceFunctionCard:
		return "function-card"
	default:
		return "unknown"
	}
}

// Access is the read/write flag at offset 10
type Access uint8

const (
	Read  Access = 0x00
	Write Access = 0x01
)

// Response status codes (offset 2)
const (
	StatusOK         = 0x00
	StatusTimeout    = 0x01
	StatusRequestCRC = 0x02
	StatusAckCRC     = 0x03
	StatusInvalidCmd = 0x04
)

// Addressing limits
const (
	CardIndexBroadcast = 0xFFFF
	DefaultLANPorts    = 2
	MSD600LANPorts     = 4
	MaxLANPorts        = 16
)

// Signal line names for the 16 bits of a module data group fault mask
var SignalLines = [16]string{
	"E", "LAT", "OE", "DCLK", "CTRL", "RFU", "RFU", "RFU",
	"R", "G", "B", "RFU", "A", "B_addr", "C", "D",
}

// DefaultIgnoredLines are masked out of module fault evaluation
var DefaultIgnoredLines = []string{"RFU", "R"}
