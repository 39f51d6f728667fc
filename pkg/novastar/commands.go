// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

import "sort"

// Sender card queries
var (
	Connection          = NewTemplate("connection", 0xAA, DeviceSender, Read, 0x00000002, 2, AddressNone)
	SenderModelQuery    = NewTemplate("sender_model", 0x32, DeviceSender, Read, 0x00000002, 2, AddressNone)
	SenderFirmware      = NewTemplate("sender_firmware", 0x15, DeviceSender, Read, 0x04100004, 4, AddressNone)
	InputSourceMode     = NewTemplate("input_source_mode", 0x32, DeviceSender, Read, 0x02000022, 1, AddressNone)
	InputSourceSelected = NewTemplate("input_source_selected", 0x32, DeviceSender, Read, 0x02000023, 1, AddressNone)
	InputSourceStatus   = NewTemplate("input_source_status", 0x32, DeviceSender, Read, 0x0200004D, 1, AddressNone)
	DVISignal           = NewTemplate("dvi_signal", 0x16, DeviceSender, Read, 0x02000017, 1, AddressNone)
	AutoBrightnessMode  = NewTemplate("auto_brightness_mode", 0x5B, DeviceSender, Read, 0x0A000000, 1, AddressNone)
	AutoBrightness      = NewTemplate("auto_brightness_settings", 0x5B, DeviceSender, Read, 0x0A000001, 47, AddressNone)
	ALSDirect           = NewTemplate("als_direct", 0x5B, DeviceSender, Read, 0x0200000F, 2, AddressNone)
	CabinetWidth        = NewTemplate("cabinet_width", 0x32, DeviceSender, Read, 0x02100006, 2, AddressNone)
	CabinetHeight       = NewTemplate("cabinet_height", 0x32, DeviceSender, Read, 0x02100008, 2, AddressNone)
	EDID                = NewTemplate("edid", 0x15, DeviceSender, Read, 0x08000000, 127, AddressNone)
	Redundancy          = NewTemplate("redundancy", 0x15, DeviceSender, Read, 0x02001E00, 1, AddressNone)
)

// Receiver card queries
var (
	ReceiverModelQuery  = NewTemplate("receiver_model", 0x15, DeviceReceiver, Read, 0x00000000, 2, AddressPortCard)
	ReceiverFirmware    = NewTemplate("receiver_firmware", 0x32, DeviceReceiver, Read, 0x08000004, 4, AddressPortCard)
	MonitoringQuery     = NewTemplate("monitoring", 0x32, DeviceReceiver, Read, 0x0A000000, 256, AddressPortCard)
	Brightness          = NewTemplate("brightness", 0x14, DeviceReceiver, Read, 0x02000001, 5, AddressPortCard)
	KillMode            = NewTemplate("kill_mode", 0x80, DeviceReceiver, Read, 0x02000100, 1, AddressPortCard)
	LockMode            = NewTemplate("lock_mode", 0x80, DeviceReceiver, Read, 0x02000102, 1, AddressPortCard)
	Gamma               = NewTemplate("gamma", 0x15, DeviceReceiver, Read, 0x02000000, 1, AddressPortCard)
	RibbonCable         = NewTemplate("ribbon_cable", 0x32, DeviceReceiver, Read, 0x0A000042, 16, AddressPortCard)
	ModuleStatus        = NewTemplate("module_status", 0xC4, DeviceReceiver, Read, 0x0A00000A, 24, AddressPortCard)
	ModuleFlashStart    = NewTemplate("module_flash_start", 0xF2, DeviceReceiver, Write, 0x01000074, 1, AddressPortCard, 0x04)
	ModuleFlashReadback = NewTemplate("module_flash_readback", 0x03, DeviceReceiver, Read, 0x03003010, 16, AddressPortCard)
)

// Function card queries
var (
	FunctionCardModel   = NewTemplate("function_card_model", 0x32, DeviceFunctionCard, Read, 0x00000002, 2, AddressPort)
	FunctionCardRefresh = NewTemplate("function_card_refresh", 0x15, DeviceFunctionCard, Write, 0x06000000, 11, AddressPort,
		0x00, 0x00, 0x00, 0x00, 0x55, 0xAA, 0x01, 0x02, 0x80, 0xFF, 0x81)
	ALSFunctionCard = NewTemplate("als_function_card", 0x15, DeviceFunctionCard, Read, 0x06000000, 5, AddressPort)
)

// Broadcast writes to every receiver on a LAN port
var (
	SetBrightness   = NewTemplate("set_brightness", 0x14, DeviceReceiver, Write, 0x02000001, 5, AddressBroadcast, 0x80, 0x80, 0x80, 0x80, 0x80)
	SetDisplayPower = NewTemplate("display_power", 0x80, DeviceReceiver, Write, 0x02000100, 1, AddressBroadcast, DisplayOn)
)

// Kill mode payloads
const (
	DisplayOn  = 0x00
	DisplayOff = 0xFF
)

var catalogue = map[string]Template{}

func init() {
	for _, t := range []Template{
		Connection, SenderModelQuery, SenderFirmware, InputSourceMode, InputSourceSelected,
		InputSourceStatus, DVISignal, AutoBrightnessMode, AutoBrightness, ALSDirect,
		CabinetWidth, CabinetHeight, EDID, Redundancy,
		ReceiverModelQuery, ReceiverFirmware, MonitoringQuery, Brightness, KillMode, LockMode,
		Gamma, RibbonCable, ModuleStatus, ModuleFlashStart, ModuleFlashReadback,
		FunctionCardModel, FunctionCardRefresh, ALSFunctionCard,
		SetBrightness, SetDisplayPower,
	} {
		catalogue[t.Name()] = t
	}
}

// Lookup returns the catalogue template with the given name
func Lookup(name string) (Template, bool) {
	t, ok := catalogue[name]
	return t, ok
}

// Catalogue returns every known template sorted by name
func Catalogue() []Template {
	out := make([]Template, 0, len(catalogue))
	for _, t := range catalogue {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// NewSetBrightness returns the broadcast write setting all five channels to level
func NewSetBrightness(level uint8) Template {
	return SetBrightness.WithPayload([]byte{level, level, level, level, level})
}

// NewSetDisplayPower returns the broadcast kill-mode write
func NewSetDisplayPower(on bool) Template {
	if on {
		return SetDisplayPower.WithPayload([]byte{DisplayOn})
	}
	return SetDisplayPower.WithPayload([]byte{DisplayOff})
}

// NewModuleStatus sizes the module status read for the given topology
func NewModuleStatus(modules, dataGroups int) Template {
	return ModuleStatus.WithLength(uint16(modules * ModuleElementSize(dataGroups)))
}

// BrightnessForLux maps an illuminance to a 0-255 brightness level relative
// to the display's full-scale lux
func BrightnessForLux(lux, maxLux float64) uint8 {
	if maxLux <= 0 || lux <= 0 {
		return 0
	}
	level := lux / (maxLux / 255)
	if level >= 255 {
		return 255
	}
	return uint8(level + 0.5)
}
