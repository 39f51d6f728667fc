// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

// CalculateChecksum sums every byte of data and adds the protocol constant.
// The caller passes the frame body, bytes [2, len-2).
func CalculateChecksum(data []byte) uint16 {
	sum := uint16(checksumConstant)
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// FrameChecksum computes the checksum over frame[2:len-2].
// Frames too short to carry a checksum return 0.
func FrameChecksum(frame []byte) uint16 {
	if len(frame) < OffsetStatus+ChecksumSize {
		return 0
	}
	return CalculateChecksum(frame[OffsetStatus : len(frame)-ChecksumSize])
}

// StoredChecksum returns the little-endian checksum in the last two bytes
func StoredChecksum(frame []byte) uint16 {
	if len(frame) < ChecksumSize {
		return 0
	}
	n := len(frame)
	return uint16(frame[n-2]) | uint16(frame[n-1])<<8
}

// ChecksumValid reports whether the trailing checksum matches the frame body
func ChecksumValid(frame []byte) bool {
	if len(frame) < MinFrameSize {
		return false
	}
	return FrameChecksum(frame) == StoredChecksum(frame)
}

// putChecksum writes the checksum into the final two bytes, low byte first
func putChecksum(frame []byte) {
	crc := FrameChecksum(frame)
	n := len(frame)
	frame[n-2] = byte(crc)
	frame[n-1] = byte(crc >> 8)
}
