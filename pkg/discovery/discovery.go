// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package discovery locates Novastar senders on the host serial ports and
// enumerates the receiver cards chained behind each LAN port.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/Thermoquad/novaprobe/pkg/session"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// ErrNoSender is returned when no scanned port answered the connection query
var ErrNoSender = errors.New("no sender found")

// Exchanger sends one frame and returns the raw response
type Exchanger interface {
	Exchange(frame []byte) ([]byte, error)
}

// Link is an open exchanger that must be closed after probing
type Link interface {
	Exchanger
	io.Closer
}

// Opener opens the named port
type Opener func(name string) (Link, error)

// SessionOpener opens serial ports as sessions with cfg
func SessionOpener(cfg session.Config, opts ...session.Option) Opener {
	return func(name string) (Link, error) {
		s, err := session.Open(name, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// PortInfo describes a host serial port
type PortInfo struct {
	Name         string `json:"name" yaml:"name"`
	IsUSB        bool   `json:"usb" yaml:"usb"`
	VID          string `json:"vid,omitempty" yaml:"vid,omitempty"`
	PID          string `json:"pid,omitempty" yaml:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	Product      string `json:"product,omitempty" yaml:"product,omitempty"`
}

// ListPorts returns the host serial ports sorted by name
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}

// PortNames returns the names of the host serial ports
func PortNames() ([]string, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return names, nil
}

// Identity is what a responding port reports about its sender
type Identity struct {
	Port     string                               `json:"port" yaml:"port" cbor:"port"`
	Model    novastar.Field[novastar.SenderModel] `json:"model" yaml:"model" cbor:"model"`
	Firmware novastar.Field[string]               `json:"firmware" yaml:"firmware" cbor:"firmware"`
}

// LANPorts returns the output port count implied by the sender model
func (id Identity) LANPorts() int {
	return id.Model.Or(novastar.SenderUnknown).LANPorts()
}

// Identify sends the connection query and, when acknowledged, reads the sender
// model and firmware. Model and firmware failures leave those fields N/A.
func Identify(ex Exchanger, port string) (Identity, error) {
	id := Identity{Port: port}

	resp, err := ex.Exchange(novastar.Build(novastar.Connection, 0, 0))
	if err != nil {
		return id, err
	}
	if err := novastar.Validate(resp); err != nil {
		return id, err
	}
	if !novastar.DecodeConnection(resp).Or(false) {
		return id, novastar.ErrNoResponse
	}

	if resp, err := ex.Exchange(novastar.Build(novastar.SenderModelQuery, 0, 0)); err == nil {
		id.Model = novastar.DecodeSenderModel(resp)
	}
	if resp, err := ex.Exchange(novastar.Build(novastar.SenderFirmware, 0, 0)); err == nil {
		id.Firmware = novastar.DecodeSenderFirmware(resp)
	}
	return id, nil
}

// Result is the outcome of probing one port
type Result struct {
	Port     string
	Identity Identity
	Err      error
}

// Responding reports whether the port answered the connection query
func (r Result) Responding() bool {
	return r.Err == nil
}

// Scanner queries ports through an Opener
type Scanner struct {
	open    Opener
	workers int
	logger  *zap.Logger
}

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// WithWorkers sets how many ports are queried at once
func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the scanner logger
func WithLogger(logger *zap.Logger) ScannerOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScanner creates a scanner. One worker by default.
func NewScanner(open Opener, opts ...ScannerOption) *Scanner {
	s := &Scanner{open: open, workers: 1, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckPort opens name, identifies the sender on it and closes it again
func (s *Scanner) CheckPort(name string) Result {
	link, err := s.open(name)
	if err != nil {
		s.logger.Warn("port unavailable", zap.String("port", name), zap.Error(err))
		if !errors.Is(err, novastar.ErrPortUnavailable) {
			err = fmt.Errorf("%w: %s: %w", novastar.ErrPortUnavailable, name, err)
		}
		return Result{Port: name, Err: err}
	}
	defer link.Close()

	id, err := Identify(link, name)
	if err != nil {
		s.logger.Debug("port not responding", zap.String("port", name), zap.Error(err))
		return Result{Port: name, Identity: id, Err: err}
	}
	s.logger.Info("sender found",
		zap.String("port", name),
		zap.Stringer("model", id.Model),
		zap.Stringer("firmware", id.Firmware))
	return Result{Port: name, Identity: id}
}

// Scan queries every port and returns results in the order of ports. A
// cancelled context leaves the remaining ports with ctx.Err().
func (s *Scanner) Scan(ctx context.Context, ports []string) []Result {
	results := make([]Result, len(ports))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(s.workers, len(ports)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.CheckPort(ports[i])
			}
		}()
	}

	next := 0
feed:
	for ; next < len(ports); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(ports); i++ {
		results[i] = Result{Port: ports[i], Err: ctx.Err()}
	}
	return results
}

// First queries ports in order and returns the first responding sender
func (s *Scanner) First(ctx context.Context, ports []string) (Identity, error) {
	for _, name := range ports {
		if err := ctx.Err(); err != nil {
			return Identity{}, err
		}
		if r := s.CheckPort(name); r.Responding() {
			return r.Identity, nil
		}
	}
	return Identity{}, ErrNoSender
}
