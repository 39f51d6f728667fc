// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

import "encoding/binary"

// Addressing describes which address bytes Build is allowed to overwrite
type Addressing uint8

const (
	// AddressNone targets the sender card itself; offsets 7 and 8 stay zero
	AddressNone Addressing = iota
	// AddressPort sets the LAN/output port only
	AddressPort
	// AddressPortCard sets the LAN/output port and the receiver card index
	AddressPortCard
	// AddressBroadcast sets the LAN/output port; the card index stays 0xFFFF
	AddressBroadcast
)

// String returns the addressing mode name
func (a Addressing) String() string {
	switch a {
	case AddressNone:
		return "none"
	case AddressPort:
		return "port"
	case AddressPortCard:
		return "port+card"
	case AddressBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Template is an immutable request frame description.
// The zero value is not usable; templates come from NewTemplate or the catalogue.
type Template struct {
	name       string
	command    byte
	device     DeviceType
	access     Access
	address    uint32
	length     uint16
	payload    []byte
	addressing Addressing
	raw        []byte
}

// NewTemplate renders a request template. For write templates the data length
// field follows the payload; read templates carry the requested length.
func NewTemplate(name string, command byte, device DeviceType, access Access, address uint32, length uint16, addressing Addressing, payload ...byte) Template {
	t := Template{
		name:       name,
		command:    command,
		device:     device,
		access:     access,
		address:    address,
		length:     length,
		addressing: addressing,
	}
	if len(payload) > 0 {
		t.payload = append([]byte(nil), payload...)
		t.length = uint16(len(payload))
	}
	t.raw = t.render()
	return t
}

// render lays the template out as a frame with the checksum filled in
func (t Template) render() []byte {
	frame := make([]byte, HeaderSize+len(t.payload)+ChecksumSize)
	frame[0] = RequestHeader0
	frame[1] = RequestHeader1
	frame[OffsetCommand] = t.command
	frame[4] = 0xFE
	frame[OffsetDevice] = byte(t.device)
	if t.addressing == AddressBroadcast {
		binary.LittleEndian.PutUint16(frame[OffsetCard:], CardIndexBroadcast)
	}
	frame[OffsetReadWrite] = byte(t.access)
	binary.LittleEndian.PutUint32(frame[OffsetAddress:], t.address)
	binary.LittleEndian.PutUint16(frame[OffsetLength:], t.length)
	copy(frame[OffsetPayload:], t.payload)
	putChecksum(frame)
	return frame
}

// Name returns the catalogue name
func (t Template) Name() string { return t.name }

// Command returns the command-type byte (offset 3)
func (t Template) Command() byte { return t.command }

// Device returns the addressed card class
func (t Template) Device() DeviceType { return t.device }

// Access returns the read/write flag
func (t Template) Access() Access { return t.access }

// Address returns the register address
func (t Template) Address() uint32 { return t.address }

// Length returns the data length field
func (t Template) Length() uint16 { return t.length }

// Addressing returns which address fields Build may set
func (t Template) Addressing() Addressing { return t.addressing }

// Size returns the frame length in bytes
func (t Template) Size() int { return len(t.raw) }

// Payload returns a copy of the write payload
func (t Template) Payload() []byte {
	return append([]byte(nil), t.payload...)
}

// Bytes returns a copy of the unaddressed frame
func (t Template) Bytes() []byte {
	return append([]byte(nil), t.raw...)
}

// WithLength returns a copy requesting n bytes of data
func (t Template) WithLength(n uint16) Template {
	c := t
	c.length = n
	c.payload = append([]byte(nil), t.payload...)
	c.raw = c.render()
	return c
}

// WithPayload returns a copy carrying p as write data; the length follows p
func (t Template) WithPayload(p []byte) Template {
	c := t
	c.payload = append([]byte(nil), p...)
	c.length = uint16(len(p))
	c.raw = c.render()
	return c
}

// Build returns a freshly allocated frame addressed to lan/card with its
// checksum recomputed. Address bytes the template does not carry are left alone.
func Build(t Template, lan, card uint8) []byte {
	frame := append([]byte(nil), t.raw...)
	if len(frame) < MinFrameSize {
		return frame
	}
	switch t.addressing {
	case AddressPort, AddressBroadcast:
		frame[OffsetPort] = lan
	case AddressPortCard:
		frame[OffsetPort] = lan
		frame[OffsetCard] = card
	}
	putChecksum(frame)
	return frame
}
