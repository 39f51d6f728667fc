// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"context"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"go.uber.org/zap"
)

// ReceiverModel reads the receiver card model
func (c *Controller) ReceiverModel(lan, card uint8) (novastar.Field[novastar.ReceiverModel], error) {
	return read(c, novastar.ReceiverModelQuery, lan, card, novastar.DecodeReceiverModel)
}

// ReceiverFirmware reads the receiver firmware version
func (c *Controller) ReceiverFirmware(lan, card uint8) (novastar.Field[string], error) {
	return read(c, novastar.ReceiverFirmware, lan, card, novastar.DecodeReceiverFirmware)
}

// Brightness reads the receiver output brightness
func (c *Controller) Brightness(lan, card uint8) (novastar.Field[novastar.BrightnessLevels], error) {
	return read(c, novastar.Brightness, lan, card, novastar.DecodeBrightness)
}

// KillMode reads whether the cabinet output is driven
func (c *Controller) KillMode(lan, card uint8) (novastar.Field[novastar.KillState], error) {
	return read(c, novastar.KillMode, lan, card, novastar.DecodeKillMode)
}

// LockMode reads the receiver lock mode
func (c *Controller) LockMode(lan, card uint8) (novastar.Field[novastar.LockState], error) {
	return read(c, novastar.LockMode, lan, card, novastar.DecodeLockMode)
}

// Gamma reads the receiver gamma value
func (c *Controller) Gamma(lan, card uint8) (novastar.Field[float64], error) {
	return read(c, novastar.Gamma, lan, card, novastar.DecodeGamma)
}

// Monitoring reads temperature, voltage and monitoring card presence
func (c *Controller) Monitoring(lan, card uint8) (novastar.Field[novastar.Monitoring], error) {
	return read(c, novastar.MonitoringQuery, lan, card, novastar.DecodeMonitoring)
}

// RibbonCable reads the raw ribbon cable status block
func (c *Controller) RibbonCable(lan, card uint8) (novastar.Field[[]byte], error) {
	return read(c, novastar.RibbonCable, lan, card, novastar.DecodeRibbonCable)
}

// ModuleStatus reads the module status block sized for the configured layout
func (c *Controller) ModuleStatus(lan, card uint8) (novastar.Field[[]novastar.ModuleReport], error) {
	return c.moduleStatus(lan, card, c.layout)
}

func (c *Controller) moduleStatus(lan, card uint8, layout novastar.ModuleLayout) (novastar.Field[[]novastar.ModuleReport], error) {
	t := novastar.NewModuleStatus(layout.Modules, layout.DataGroups)
	return read(c, t, lan, card, func(resp []byte) novastar.Field[[]novastar.ModuleReport] {
		return novastar.DecodeModuleStatus(resp, layout)
	})
}

// StartModuleFlash asks the receiver to verify its module flash
func (c *Controller) StartModuleFlash(lan, card uint8) error {
	return c.write(novastar.ModuleFlashStart, lan, card)
}

// ModuleFlashReadback reads the result of the last flash check
func (c *Controller) ModuleFlashReadback(lan, card uint8) (novastar.Field[[]novastar.FlashReport], error) {
	return read(c, novastar.ModuleFlashReadback, lan, card, novastar.DecodeFlashReadback)
}

// CheckModuleFlash starts a flash check, waits for the receivers to finish
// it and reads the result back
func (c *Controller) CheckModuleFlash(ctx context.Context, lan, card uint8) (novastar.Field[[]novastar.FlashReport], error) {
	if err := c.StartModuleFlash(lan, card); err != nil {
		return novastar.NA[[]novastar.FlashReport](), err
	}

	c.logger.Info("waiting for module flash check",
		zap.Uint8("lan", lan),
		zap.Uint8("card", card),
		zap.Duration("wait", c.flashWait))
	if err := c.wait(ctx, c.flashWait); err != nil {
		return novastar.NA[[]novastar.FlashReport](), err
	}

	return c.ModuleFlashReadback(lan, card)
}

// wait sleeps for d unless ctx ends first
func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	done := make(chan struct{})
	go func() {
		c.sleep(d)
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetBrightness broadcasts level to every receiver on lan
func (c *Controller) SetBrightness(lan, level uint8) error {
	return c.write(novastar.NewSetBrightness(level), lan, 0)
}

// SetBrightnessForLux maps lux against maxLux and broadcasts the level
func (c *Controller) SetBrightnessForLux(lan uint8, lux, maxLux float64) (uint8, error) {
	level := novastar.BrightnessForLux(lux, maxLux)
	return level, c.SetBrightness(lan, level)
}

// SetDisplayPower switches every receiver on lan on or off
func (c *Controller) SetDisplayPower(lan uint8, on bool) error {
	return c.write(novastar.NewSetDisplayPower(on), lan, 0)
}
