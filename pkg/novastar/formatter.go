// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FormatHex renders bytes as space separated upper-case hex, the way the
// controller logs frames
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// FormatStatus names a response status byte
func FormatStatus(code byte) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusRequestCRC:
		return "REQUEST_CHECKSUM_ERROR"
	case StatusAckCRC:
		return "ACK_CHECKSUM_ERROR"
	case StatusInvalidCmd:
		return "INVALID_COMMAND"
	default:
		return "UNKNOWN_ERROR"
	}
}

// FormatTemplate renders a one line description of a template
func FormatTemplate(t Template) string {
	rw := "R"
	if t.Access() == Write {
		rw = "W"
	}
	return fmt.Sprintf("%-26s cmd=0x%02X dev=%-13s %s addr=0x%08X len=%-3d %s",
		t.Name(), t.Command(), t.Device(), rw, t.Address(), t.Length(), t.Addressing())
}

// FormatRequest describes an outbound frame
func FormatRequest(frame []byte) string {
	if len(frame) < MinFrameSize {
		return fmt.Sprintf("short frame (%d bytes): %s", len(frame), FormatHex(frame))
	}
	result := fmt.Sprintf("cmd=0x%02X dev=%s port=%d card=%d addr=0x%08X len=%d",
		frame[OffsetCommand],
		DeviceType(frame[OffsetDevice]),
		frame[OffsetPort],
		binary.LittleEndian.Uint16(frame[OffsetCard:]),
		binary.LittleEndian.Uint32(frame[OffsetAddress:]),
		binary.LittleEndian.Uint16(frame[OffsetLength:]))
	if !ChecksumValid(frame) {
		result += fmt.Sprintf(" checksum=0x%04X (expected 0x%04X)", StoredChecksum(frame), FrameChecksum(frame))
	}
	return result
}

// FormatResponse describes an inbound frame
func FormatResponse(resp []byte) string {
	if len(resp) < MinResponseSize {
		return fmt.Sprintf("malformed (%d bytes): %s", len(resp), FormatHex(resp))
	}
	result := fmt.Sprintf("status=%s (0x%02X) bytes=%d", FormatStatus(resp[OffsetStatus]), resp[OffsetStatus], len(resp))
	if n, ok := ResponseLength(resp); ok {
		result += fmt.Sprintf(" len=%d", n)
	}
	if !HasResponseHeader(resp) {
		result += " header=unexpected"
	}
	return result
}

// HexDump renders data 16 bytes per line with offsets
func HexDump(data []byte) string {
	var sb strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&sb, "  %04X  %s\n", off, FormatHex(data[off:end]))
	}
	return sb.String()
}
