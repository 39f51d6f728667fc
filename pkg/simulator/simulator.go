// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package simulator answers Novastar request frames the way a sender with a
// chain of receiver cards would. It backs the --simulate flag and the tests
// of the packages that drive real hardware.
package simulator

import (
	"encoding/binary"
	"sync"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
)

// Receiver is one simulated receiver card
type Receiver struct {
	Model       [2]byte // bytes 18-19 of the model response
	Firmware    [4]byte
	Brightness  [5]byte
	Kill        byte
	Lock        byte
	Gamma       byte
	Temperature [2]byte // bytes 18-19 of the monitoring response
	Voltage     byte    // byte 21 of the monitoring response
	MonitorCard bool
	Modules     [][]byte // one element per module
	Flash       [][4]byte
	Ribbon      [16]byte
}

// Device is a simulated sender. Zero-value fields answer with zero bytes.
type Device struct {
	mu sync.Mutex

	Model          [2]byte
	Firmware       [4]byte
	DVI            byte
	InputMode      byte
	InputSelected  byte
	InputStatus    byte
	ALSMode        byte
	ALSDirect      [2]byte
	AutoBrightness [47]byte
	Width          uint16
	Height         uint16
	Redundancy     byte
	EDID           [127]byte

	// FunctionCard is the function card model; zero means none fitted
	FunctionCard [2]byte
	// FunctionCardLux is the function card sensor byte; zero reads invalid
	FunctionCardLux byte

	// LANs holds the receiver chain behind each output port
	LANs [][]*Receiver

	// Silent makes every exchange return no data
	Silent bool
	// Status, when non-zero, is reported in every response
	Status byte

	requests [][]byte
}

// NewDevice returns an MCTRL500 with a valid DVI signal and count receivers
// of model Nova A5s on LAN 0
func NewDevice(count int) *Device {
	d := &Device{
		Model:         [2]byte{0x01, 0x01},
		Firmware:      [4]byte{4, 6, 1, 0},
		DVI:           0x01,
		InputSelected: 0x58,
		InputStatus:   0x04,
		ALSMode:       0xFF,
		Width:         128,
		Height:        128,
		LANs:          [][]*Receiver{make([]*Receiver, 0, count), nil},
	}
	for i := 0; i < count; i++ {
		d.LANs[0] = append(d.LANs[0], NewReceiver(4, 4))
	}
	return d
}

// NewReceiver returns a healthy Nova A5s with a monitoring card and modules
// status elements sized for dataGroups
func NewReceiver(modules, dataGroups int) *Receiver {
	r := &Receiver{
		Model:       [2]byte{0x08, 0x45},
		Firmware:    [4]byte{4, 6, 1, 0x0a},
		Brightness:  [5]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		Gamma:       28,
		Temperature: [2]byte{0x80, 70},
		Voltage:     0x80 | 50,
		MonitorCard: true,
	}
	for i := 0; i < modules; i++ {
		e := make([]byte, novastar.ModuleElementSize(dataGroups))
		e[0] = 0xFF
		r.Modules = append(r.Modules, e)
		r.Flash = append(r.Flash, [4]byte{0x05, 0x05, 0, 0})
	}
	return r
}

// Requests returns a copy of every frame received so far
func (d *Device) Requests() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.requests))
	for i, r := range d.requests {
		out[i] = append([]byte(nil), r...)
	}
	return out
}

// Receiver returns the receiver at (lan, card), or nil
func (d *Device) Receiver(lan, card int) *Receiver {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.receiverLocked(lan, card)
}

func (d *Device) receiverLocked(lan, card int) *Receiver {
	if lan < 0 || lan >= len(d.LANs) || card < 0 || card >= len(d.LANs[lan]) {
		return nil
	}
	return d.LANs[lan][card]
}

// Exchange answers one request frame. Frames with a bad checksum, unknown
// commands and absent receivers produce no response.
func (d *Device) Exchange(frame []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, append([]byte(nil), frame...))
	if d.Silent || !novastar.ChecksumValid(frame) {
		return nil, novastar.ErrNoResponse
	}

	tmpl, ok := match(frame)
	if !ok {
		return nil, novastar.ErrNoResponse
	}

	payload, ok := d.answer(tmpl, frame)
	if !ok {
		return nil, novastar.ErrNoResponse
	}
	return d.respond(frame, payload), nil
}

// match finds the catalogue template a frame was built from
func match(frame []byte) (novastar.Template, bool) {
	device := novastar.DeviceType(frame[novastar.OffsetDevice])
	access := novastar.Access(frame[novastar.OffsetReadWrite])
	address := binary.LittleEndian.Uint32(frame[novastar.OffsetAddress:])
	for _, t := range novastar.Catalogue() {
		if t.Command() == frame[novastar.OffsetCommand] && t.Device() == device &&
			t.Access() == access && t.Address() == address {
			return t, true
		}
	}
	return novastar.Template{}, false
}

func (d *Device) answer(t novastar.Template, frame []byte) ([]byte, bool) {
	lan := int(frame[novastar.OffsetPort])
	card := int(binary.LittleEndian.Uint16(frame[novastar.OffsetCard:]))
	length := int(binary.LittleEndian.Uint16(frame[novastar.OffsetLength:]))

	if t.Device() == novastar.DeviceSender {
		return d.answerSender(t, length)
	}
	if t.Device() == novastar.DeviceFunctionCard {
		return d.answerFunctionCard(t)
	}

	if t.Addressing() == novastar.AddressBroadcast {
		return d.broadcast(t, lan, frame)
	}

	r := d.receiverLocked(lan, card)
	if r == nil {
		return nil, false
	}
	switch t.Name() {
	case novastar.ReceiverModelQuery.Name():
		return r.Model[:], true
	case novastar.ReceiverFirmware.Name():
		return r.Firmware[:], true
	case novastar.Brightness.Name():
		return r.Brightness[:], true
	case novastar.KillMode.Name():
		return []byte{r.Kill}, true
	case novastar.LockMode.Name():
		return []byte{r.Lock}, true
	case novastar.Gamma.Name():
		return []byte{r.Gamma}, true
	case novastar.RibbonCable.Name():
		return r.Ribbon[:], true
	case novastar.MonitoringQuery.Name():
		p := make([]byte, 40)
		p[0], p[1] = r.Temperature[0], r.Temperature[1]
		p[3] = r.Voltage
		if r.MonitorCard {
			p[50-novastar.OffsetPayload] = 0xFF
		}
		return p, true
	case novastar.ModuleStatus.Name():
		var p []byte
		for _, e := range r.Modules {
			p = append(p, e...)
		}
		if len(p) > length {
			p = p[:length]
		}
		return p, true
	case novastar.ModuleFlashStart.Name():
		return nil, true
	case novastar.ModuleFlashReadback.Name():
		var p []byte
		for _, e := range r.Flash {
			p = append(p, e[:]...)
		}
		return p, true
	}
	return nil, false
}

func (d *Device) answerSender(t novastar.Template, length int) ([]byte, bool) {
	var p []byte
	switch t.Name() {
	case novastar.Connection.Name():
		p = []byte{0x01, 0x00}
	case novastar.SenderModelQuery.Name():
		p = d.Model[:]
	case novastar.SenderFirmware.Name():
		p = d.Firmware[:]
	case novastar.DVISignal.Name():
		p = []byte{d.DVI}
	case novastar.InputSourceMode.Name():
		p = []byte{d.InputMode}
	case novastar.InputSourceSelected.Name():
		p = []byte{d.InputSelected}
	case novastar.InputSourceStatus.Name():
		p = []byte{d.InputStatus}
	case novastar.AutoBrightnessMode.Name():
		p = []byte{d.ALSMode}
	case novastar.AutoBrightness.Name():
		p = d.AutoBrightness[:]
	case novastar.ALSDirect.Name():
		p = d.ALSDirect[:]
	case novastar.CabinetWidth.Name():
		p = binary.LittleEndian.AppendUint16(nil, d.Width)
	case novastar.CabinetHeight.Name():
		p = binary.LittleEndian.AppendUint16(nil, d.Height)
	case novastar.Redundancy.Name():
		p = []byte{d.Redundancy}
	case novastar.EDID.Name():
		p = d.EDID[:]
	default:
		return nil, false
	}
	if len(p) > length && length > 0 {
		p = p[:length]
	}
	return append([]byte(nil), p...), true
}

func (d *Device) answerFunctionCard(t novastar.Template) ([]byte, bool) {
	if d.FunctionCard == [2]byte{} {
		return nil, false
	}
	switch t.Name() {
	case novastar.FunctionCardModel.Name():
		return d.FunctionCard[:], true
	case novastar.FunctionCardRefresh.Name():
		return nil, true
	case novastar.ALSFunctionCard.Name():
		p := make([]byte, 5)
		if d.FunctionCardLux != 0 {
			p[2] = 0x80
			p[3] = d.FunctionCardLux
		}
		return p, true
	}
	return nil, false
}

// broadcast applies a broadcast write to every receiver on lan
func (d *Device) broadcast(t novastar.Template, lan int, frame []byte) ([]byte, bool) {
	if lan >= len(d.LANs) || len(d.LANs[lan]) == 0 {
		return nil, false
	}
	payload := frame[novastar.OffsetPayload : len(frame)-novastar.ChecksumSize]
	for _, r := range d.LANs[lan] {
		switch t.Name() {
		case novastar.SetBrightness.Name():
			copy(r.Brightness[:], payload)
		case novastar.SetDisplayPower.Name():
			if len(payload) > 0 {
				r.Kill = payload[0]
			}
		}
	}
	return nil, true
}

// respond echoes the request addressing with the response header, status,
// payload and a fresh checksum
func (d *Device) respond(frame, payload []byte) []byte {
	resp := make([]byte, novastar.HeaderSize, novastar.HeaderSize+len(payload)+novastar.ChecksumSize)
	copy(resp, frame[:novastar.HeaderSize])
	resp[0] = novastar.ResponseHeader0
	resp[1] = novastar.ResponseHeader1
	resp[novastar.OffsetStatus] = d.Status
	binary.LittleEndian.PutUint16(resp[novastar.OffsetLength:], uint16(len(payload)))
	resp = append(resp, payload...)
	resp = append(resp, 0, 0)
	binary.LittleEndian.PutUint16(resp[len(resp)-2:], novastar.FrameChecksum(resp))
	return resp
}
