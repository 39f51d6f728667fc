// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Transport level errors
var (
	// ErrNoResponse means nothing was read back after the settle delay.
	// It is the normal "no card at this address" outcome.
	ErrNoResponse = errors.New("no response")
	// ErrPortUnavailable means the OS refused to open the port
	ErrPortUnavailable = errors.New("port unavailable")
)

// Device reported errors
var (
	ErrMalformedResponse = errors.New("malformed response")
	ErrDeviceTimeout     = errors.New("device timeout")
	ErrRequestChecksum   = errors.New("request checksum error")
	ErrAckChecksum       = errors.New("ack checksum error")
	ErrInvalidCommand    = errors.New("invalid command")
	ErrUnknownStatus     = errors.New("unknown error")
)

// StatusError carries the raw status byte of a failed response
type StatusError struct {
	Code byte
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (status 0x%02X)", e.Unwrap(), e.Code)
}

// Unwrap maps the status byte to its sentinel
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case StatusTimeout:
		return ErrDeviceTimeout
	case StatusRequestCRC:
		return ErrRequestChecksum
	case StatusAckCRC:
		return ErrAckChecksum
	case StatusInvalidCmd:
		return ErrInvalidCommand
	default:
		return ErrUnknownStatus
	}
}

// Validate checks the status byte of a response. It never panics: truncated
// input yields ErrMalformedResponse.
func Validate(resp []byte) error {
	if len(resp) < MinResponseSize {
		return ErrMalformedResponse
	}
	if resp[OffsetStatus] == StatusOK {
		return nil
	}
	return &StatusError{Code: resp[OffsetStatus]}
}

// IsDeviceError reports whether err is one of the device status errors
func IsDeviceError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// IsRecoverable reports whether err means "nothing usable at this address"
// rather than a broken link
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNoResponse) || errors.Is(err, ErrMalformedResponse) || IsDeviceError(err)
}

// Payload returns the response data from offset 18, or nil if absent
func Payload(resp []byte) []byte {
	if len(resp) <= OffsetPayload {
		return nil
	}
	return resp[OffsetPayload:]
}

// ResponseLength returns the data length echoed at offsets 16-17
func ResponseLength(resp []byte) (uint16, bool) {
	if len(resp) < OffsetLength+2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(resp[OffsetLength:]), true
}

// HasResponseHeader reports whether resp starts with AA 55
func HasResponseHeader(resp []byte) bool {
	return len(resp) >= 2 && resp[0] == ResponseHeader0 && resp[1] == ResponseHeader1
}

// payloadAt returns n bytes starting at absolute offset off after validating
// the response. ok is false when validation fails or the bytes are missing.
func payloadAt(resp []byte, off, n int) ([]byte, bool) {
	if Validate(resp) != nil {
		return nil, false
	}
	if off < 0 || n < 0 || len(resp) < off+n {
		return nil, false
	}
	return resp[off : off+n], true
}
