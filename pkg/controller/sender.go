// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import "github.com/Thermoquad/novaprobe/pkg/novastar"

// Connected reports whether a sender answers on the port
func (c *Controller) Connected() (novastar.Field[bool], error) {
	return read(c, novastar.Connection, 0, 0, novastar.DecodeConnection)
}

// SenderModel reads the sender card model
func (c *Controller) SenderModel() (novastar.Field[novastar.SenderModel], error) {
	return read(c, novastar.SenderModelQuery, 0, 0, novastar.DecodeSenderModel)
}

// SenderFirmware reads the sender firmware version
func (c *Controller) SenderFirmware() (novastar.Field[string], error) {
	return read(c, novastar.SenderFirmware, 0, 0, novastar.DecodeSenderFirmware)
}

// DVISignal reads whether the DVI input carries a valid signal
func (c *Controller) DVISignal() (novastar.Field[novastar.SignalState], error) {
	return read(c, novastar.DVISignal, 0, 0, novastar.DecodeDVISignal)
}

// InputSourceMode reads whether the input is chosen manually or automatically
func (c *Controller) InputSourceMode() (novastar.Field[novastar.InputMode], error) {
	return read(c, novastar.InputSourceMode, 0, 0, novastar.DecodeInputSourceMode)
}

// InputSourceSelected reads the active video input
func (c *Controller) InputSourceSelected() (novastar.Field[string], error) {
	return read(c, novastar.InputSourceSelected, 0, 0, novastar.DecodeInputSourceSelected)
}

// InputSourceStatus lists the inputs currently carrying a signal
func (c *Controller) InputSourceStatus() (novastar.Field[[]string], error) {
	return read(c, novastar.InputSourceStatus, 0, 0, novastar.DecodeInputSourceStatus)
}

// AutoBrightnessMode reads the ambient light sensor mode
func (c *Controller) AutoBrightnessMode() (novastar.Field[novastar.ALSMode], error) {
	return read(c, novastar.AutoBrightnessMode, 0, 0, novastar.DecodeALSMode)
}

// AutoBrightnessSettings reads the automatic brightness curve
func (c *Controller) AutoBrightnessSettings() (novastar.Field[novastar.AutoBrightnessSettings], error) {
	return read(c, novastar.AutoBrightness, 0, 0, novastar.DecodeAutoBrightnessSettings)
}

// AmbientLight reads the light sensor attached directly to the sender
func (c *Controller) AmbientLight() (novastar.Field[float64], error) {
	return read(c, novastar.ALSDirect, 0, 0, novastar.DecodeALSDirect)
}

// CabinetWidth reads the configured cabinet width in pixels
func (c *Controller) CabinetWidth() (novastar.Field[uint16], error) {
	return read(c, novastar.CabinetWidth, 0, 0, novastar.DecodeCabinetDimension)
}

// CabinetHeight reads the configured cabinet height in pixels
func (c *Controller) CabinetHeight() (novastar.Field[uint16], error) {
	return read(c, novastar.CabinetHeight, 0, 0, novastar.DecodeCabinetDimension)
}

// EDID reads the raw EDID block the sender presents
func (c *Controller) EDID() (novastar.Field[[]byte], error) {
	return read(c, novastar.EDID, 0, 0, novastar.DecodeEDID)
}

// Redundancy returns the 2-bit backup state of each output port
func (c *Controller) Redundancy() (novastar.Field[[]uint8], error) {
	return read(c, novastar.Redundancy, 0, 0, novastar.DecodeRedundancy)
}

// FunctionCardModel reads the function card fitted on a LAN port
func (c *Controller) FunctionCardModel(lan uint8) (novastar.Field[string], error) {
	return read(c, novastar.FunctionCardModel, lan, 0, novastar.DecodeFunctionCardModel)
}

// FunctionCardLight refreshes the function card sensor register and reads
// the ambient light level from it
func (c *Controller) FunctionCardLight(lan uint8) (novastar.Field[float64], error) {
	if err := c.write(novastar.FunctionCardRefresh, lan, 0); err != nil {
		return novastar.NA[float64](), err
	}
	return read(c, novastar.ALSFunctionCard, lan, 0, novastar.DecodeALSFunctionCard)
}
