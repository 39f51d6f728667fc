// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package controller reads and writes a Novastar sender and its receivers
// through typed methods, one per command, and runs the full status sweep.
package controller

import (
	"time"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"go.uber.org/zap"
)

// DefaultFlashWait is how long the receivers need to finish a module flash
// check before the readback is meaningful
const DefaultFlashWait = 15 * time.Second

// Exchanger sends one frame and returns the raw response.
// *session.Session satisfies it.
type Exchanger interface {
	Exchange(frame []byte) ([]byte, error)
}

// Controller drives one sender
type Controller struct {
	ex        Exchanger
	logger    *zap.Logger
	layout    novastar.ModuleLayout
	flashWait time.Duration
	sleep     func(time.Duration)
	now       func() time.Time
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithModuleLayout sets the module status layout of the receivers
func WithModuleLayout(layout novastar.ModuleLayout) Option {
	return func(c *Controller) {
		c.layout = layout
	}
}

// WithFlashWait sets the delay between starting a module flash check and
// reading it back
func WithFlashWait(d time.Duration) Option {
	return func(c *Controller) {
		c.flashWait = d
	}
}

// WithSleep replaces time.Sleep, for tests
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a controller over ex
func New(ex Exchanger, opts ...Option) *Controller {
	c := &Controller{
		ex:        ex,
		logger:    zap.NewNop(),
		layout:    novastar.DefaultModuleLayout(),
		flashWait: DefaultFlashWait,
		sleep:     time.Sleep,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Layout returns the module layout in use
func (c *Controller) Layout() novastar.ModuleLayout {
	return c.layout
}

// Exchange builds t for lan/card, sends it and validates the response
func (c *Controller) Exchange(t novastar.Template, lan, card uint8) ([]byte, error) {
	resp, err := c.ex.Exchange(novastar.Build(t, lan, card))
	if err != nil {
		return nil, err
	}
	if err := novastar.Validate(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// read exchanges t and decodes the response. The field is N/A whenever the
// error is non-nil.
func read[T any](c *Controller, t novastar.Template, lan, card uint8, decode func([]byte) novastar.Field[T]) (novastar.Field[T], error) {
	resp, err := c.Exchange(t, lan, card)
	if err != nil {
		c.logger.Debug("read failed",
			zap.String("command", t.Name()),
			zap.Uint8("lan", lan),
			zap.Uint8("card", card),
			zap.Error(err))
		return novastar.NA[T](), err
	}
	return decode(resp), nil
}

// write exchanges a write template and checks the acknowledgement
func (c *Controller) write(t novastar.Template, lan, card uint8) error {
	_, err := c.Exchange(t, lan, card)
	if err != nil {
		c.logger.Warn("write failed",
			zap.String("command", t.Name()),
			zap.Uint8("lan", lan),
			zap.Error(err))
	}
	return err
}
