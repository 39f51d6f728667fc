// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session owns one Novastar link and runs strictly serialized
// request/response exchanges over it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrClosed is returned by Exchange after Close
var ErrClosed = errors.New("session closed")

// Defaults used when a Config field is zero
const (
	DefaultBaudRate = 115200
	DefaultSettle   = 500 * time.Millisecond
	readChunkSize   = 256
	maxResponseSize = 64 * 1024
)

// Config holds the link parameters
type Config struct {
	BaudRate int
	// Settle is the fixed delay between write and read. The controller has no
	// ready signal, so this is a polling delay rather than a timeout.
	Settle time.Duration
	// Pace limits exchanges per second; zero means unlimited
	Pace float64
}

// DefaultConfig returns 115200 baud with a 500ms settle delay
func DefaultConfig() Config {
	return Config{BaudRate: DefaultBaudRate, Settle: DefaultSettle}
}

func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.Settle < 0 {
		c.Settle = 0
	}
	return c
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSleep replaces the settle delay implementation, for tests
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Session) {
		s.sleep = sleep
	}
}

// WithObserver registers a callback invoked after every exchange
func WithObserver(fn func(request, response []byte, err error, elapsed time.Duration)) Option {
	return func(s *Session) {
		s.observers = append(s.observers, fn)
	}
}

// Session is one open link. Exchanges are serialized; the protocol allows a
// single outstanding request per port.
type Session struct {
	name      string
	port      Port
	cfg       Config
	limiter   *rate.Limiter
	logger    *zap.Logger
	sleep     func(time.Duration)
	observers []func(request, response []byte, err error, elapsed time.Duration)

	mu     sync.Mutex
	closed bool
	stats  *novastar.Statistics
}

// Open opens the serial port name and returns a session on it
func Open(name string, cfg Config, opts ...Option) (*Session, error) {
	cfg = cfg.withDefaults()
	port, err := OpenSerial(name, cfg.BaudRate)
	if err != nil {
		return nil, err
	}
	return New(name, port, cfg, opts...), nil
}

// New wraps an already open port
func New(name string, port Port, cfg Config, opts ...Option) *Session {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.Pace > 0 {
		limit = rate.Limit(cfg.Pace)
	}

	s := &Session{
		name:    name,
		port:    port,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  zap.NewNop(),
		sleep:   time.Sleep,
		stats:   novastar.NewStatistics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("port", name))
	return s
}

// Name returns the port name
func (s *Session) Name() string {
	return s.name
}

// Config returns the link parameters
func (s *Session) Config() Config {
	return s.cfg
}

// Exchange flushes both buffers, writes frame, waits the settle delay and
// reads whatever arrived. An empty read is ErrNoResponse.
func (s *Session) Exchange(frame []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	if err := s.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.exchangeLocked(frame)
	elapsed := time.Since(start)

	s.stats.Update(frame, resp, err)
	s.logExchange(frame, resp, err, elapsed)
	for _, fn := range s.observers {
		fn(frame, resp, err, elapsed)
	}
	return resp, err
}

func (s *Session) exchangeLocked(frame []byte) ([]byte, error) {
	if err := s.port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("flush input: %w", err)
	}
	if err := s.port.ResetOutputBuffer(); err != nil {
		return nil, fmt.Errorf("flush output: %w", err)
	}

	if _, err := s.port.Write(frame); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	s.sleep(s.cfg.Settle)

	var resp []byte
	buf := make([]byte, readChunkSize)
	for len(resp) < maxResponseSize {
		n, err := s.port.Read(buf)
		resp = append(resp, buf[:n]...)
		if err != nil {
			if len(resp) > 0 {
				break
			}
			return nil, fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			break
		}
	}

	if len(resp) == 0 {
		return nil, novastar.ErrNoResponse
	}
	return resp, nil
}

// ExchangeContext runs Exchange and returns early when ctx ends. The exchange
// itself still runs to completion and keeps the session busy until then.
func (s *Session) ExchangeContext(ctx context.Context, frame []byte) ([]byte, error) {
	type result struct {
		resp []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := s.Exchange(frame)
		ch <- result{resp, err}
	}()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) logExchange(frame, resp []byte, err error, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("tx", novastar.FormatHex(frame)),
		zap.Duration("elapsed", elapsed),
	}
	if len(resp) > 0 {
		fields = append(fields, zap.String("rx", novastar.FormatHex(resp)))
	}

	switch {
	case err == nil:
		if verr := novastar.Validate(resp); verr != nil {
			s.logger.Warn("device reported error", append(fields, zap.Error(verr))...)
			return
		}
		s.logger.Debug("exchange", fields...)
	case errors.Is(err, novastar.ErrNoResponse):
		s.logger.Debug("no response", fields...)
	default:
		s.logger.Warn("exchange failed", append(fields, zap.Error(err))...)
	}
}

// Statistics returns a copy of the exchange counters
func (s *Session) Statistics() novastar.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := *s.stats
	stats.CalculateRates()
	return stats
}

// Close releases the port. It waits for an exchange in flight and is safe
// to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}
