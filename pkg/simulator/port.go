// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simulator

import (
	"errors"
	"sync"
)

// Port adapts a Device to a byte link: each Write queues the device's answer
// for the following Reads
type Port struct {
	dev *Device

	mu     sync.Mutex
	buf    []byte
	closed bool
}

// NewPort returns a link to dev
func NewPort(dev *Device) *Port {
	return &Port{dev: dev}
}

// Read drains queued response bytes, returning 0 when none are pending
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("simulator: port closed")
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

// Write hands a request frame to the device
func (p *Port) Write(b []byte) (int, error) {
	resp, _ := p.dev.Exchange(b)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("simulator: port closed")
	}
	p.buf = append(p.buf, resp...)
	return len(b), nil
}

// ResetInputBuffer discards queued bytes
func (p *Port) ResetInputBuffer() error {
	p.mu.Lock()
	p.buf = nil
	p.mu.Unlock()
	return nil
}

// ResetOutputBuffer is a no-op
func (p *Port) ResetOutputBuffer() error {
	return nil
}

// Close marks the port closed
func (p *Port) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
