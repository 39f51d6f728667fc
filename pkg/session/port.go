// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"errors"
	"fmt"
	"io"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"go.bug.st/serial"
)

// Port is the byte link a Session drives. Reads must not block: a read with
// nothing pending returns 0 bytes.
type Port interface {
	io.Reader
	io.Writer
	io.Closer
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// SerialPort wraps a serial port opened for the Novastar link
type SerialPort struct {
	serial.Port
	name string
}

// Name returns the device path
func (s *SerialPort) Name() string {
	return s.name
}

// OpenSerial opens name at baud, 8N1, with a zero read timeout so reads
// return whatever is already buffered
func OpenSerial(name string, baud int) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, classifyOpenError(name, err)
	}

	if err := port.SetReadTimeout(0); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: %s: set read timeout: %w", novastar.ErrPortUnavailable, name, err)
	}

	return &SerialPort{Port: port, name: name}, nil
}

// classifyOpenError wraps every open failure as ErrPortUnavailable, keeping
// the serial library's reason in the message
func classifyOpenError(name string, err error) error {
	reason := "open failed"
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound:
			reason = "not found"
		case serial.PortBusy:
			reason = "busy"
		case serial.PermissionDenied:
			reason = "permission denied"
		case serial.InvalidSerialPort:
			reason = "not a serial port"
		case serial.InvalidSpeed:
			reason = "invalid baud rate"
		}
	}
	return fmt.Errorf("%w: %s: %s: %w", novastar.ErrPortUnavailable, name, reason, err)
}
