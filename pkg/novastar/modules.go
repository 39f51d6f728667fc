// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

// ModuleState is the decoded state of one LED module
type ModuleState string

const (
	ModuleOK        ModuleState = "OK"
	ModuleError     ModuleState = "Error or no module available"
	ModuleUnknown   ModuleState = "Unknown module state"
	ModuleLineFault ModuleState = "signal line fault"
)

// Healthy reports whether the module reported OK
func (s ModuleState) Healthy() bool {
	return s == ModuleOK
}

// Faulty reports a module error or signal line fault. An unrecognised
// status byte is neither healthy nor faulty.
func (s ModuleState) Faulty() bool {
	return s == ModuleError || s == ModuleLineFault
}

// moduleElementBase is the size of a module status element without data groups
const moduleElementBase = 22

// ModuleElementSize returns the byte size of one module status element
func ModuleElementSize(dataGroups int) int {
	return moduleElementBase + 2*dataGroups
}

// ModuleLayout describes the module status block of a receiver. The data
// group count is a property of the hardware and comes from configuration.
type ModuleLayout struct {
	Modules    int
	DataGroups int
	Ignored    []string
}

// DefaultModuleLayout is four modules of four data groups, ignoring RFU and R
func DefaultModuleLayout() ModuleLayout {
	return ModuleLayout{
		Modules:    4,
		DataGroups: 4,
		Ignored:    append([]string(nil), DefaultIgnoredLines...),
	}
}

// ignoredMask returns the bits of SignalLines named in Ignored
func (l ModuleLayout) ignoredMask() uint16 {
	var mask uint16
	for bit, name := range SignalLines {
		for _, ignored := range l.Ignored {
			if name == ignored {
				mask |= 1 << bit
			}
		}
	}
	return mask
}

// GroupFault is the line fault mask of one data group
type GroupFault struct {
	Group int      `json:"group" yaml:"group" cbor:"group"`
	Mask  uint16   `json:"mask" yaml:"mask" cbor:"mask"`
	Lines []string `json:"lines" yaml:"lines" cbor:"lines"`
}

// ModuleReport is the decoded status of one module
type ModuleReport struct {
	Index      int          `json:"index" yaml:"index" cbor:"index"`
	Status     ModuleState  `json:"status" yaml:"status" cbor:"status"`
	StatusByte byte         `json:"status_byte" yaml:"status_byte" cbor:"status_byte"`
	Faults     []GroupFault `json:"faults,omitempty" yaml:"faults,omitempty" cbor:"faults,omitempty"`
	// Unmasked is set when a fault hits a line not in the ignore list
	Unmasked bool `json:"unmasked_fault" yaml:"unmasked_fault" cbor:"unmasked_fault"`
}

// FaultyLines returns every faulty line name across groups
func (r ModuleReport) FaultyLines() []string {
	var lines []string
	for _, g := range r.Faults {
		lines = append(lines, g.Lines...)
	}
	return lines
}

// DecodeModuleStatus decodes the module status block starting at offset 18.
// Only complete elements are decoded; a response holding none is N/A.
func DecodeModuleStatus(resp []byte, layout ModuleLayout) Field[[]ModuleReport] {
	if Validate(resp) != nil || layout.Modules <= 0 || layout.DataGroups < 0 {
		return NA[[]ModuleReport]()
	}
	size := ModuleElementSize(layout.DataGroups)
	ignored := layout.ignoredMask()

	reports := []ModuleReport{}
	for i := 0; i < layout.Modules; i++ {
		start := OffsetPayload + i*size
		e, ok := payloadAt(resp, start, size)
		if !ok {
			break
		}
		reports = append(reports, decodeModuleElement(i, e, layout.DataGroups, ignored))
	}
	if len(reports) == 0 {
		return NA[[]ModuleReport]()
	}
	return Of(reports)
}

func decodeModuleElement(index int, e []byte, groups int, ignored uint16) ModuleReport {
	r := ModuleReport{Index: index, StatusByte: e[0]}
	switch e[0] {
	case 0xFF:
		r.Status = ModuleOK
	case 0x00:
		r.Status = ModuleError
	default:
		r.Status = ModuleUnknown
	}

	for g := 0; g < groups; g++ {
		off := moduleElementBase + 2*g
		mask := uint16(e[off+1])<<8 | uint16(e[off])
		if mask == 0 {
			continue
		}
		fault := GroupFault{Group: g, Mask: mask}
		for bit := 0; bit < 16; bit++ {
			if mask&(1<<bit) != 0 {
				fault.Lines = append(fault.Lines, SignalLines[bit])
			}
		}
		if mask&^ignored != 0 {
			r.Unmasked = true
		}
		r.Faults = append(r.Faults, fault)
	}

	if r.Status == ModuleOK && r.Unmasked {
		r.Status = ModuleLineFault
	}
	return r
}

// FlashState is the decoded result of a module flash readback element
type FlashState string

const (
	FlashOK      FlashState = "OK"
	FlashError   FlashState = "Error or no module flash available"
	FlashUnknown FlashState = "Unknown module state"
)

// FlashReport is the flash check result of one module
type FlashReport struct {
	Index  int        `json:"index" yaml:"index" cbor:"index"`
	Flash  FlashState `json:"flash" yaml:"flash" cbor:"flash"`
	Ack    FlashState `json:"ack" yaml:"ack" cbor:"ack"`
	Status FlashState `json:"status" yaml:"status" cbor:"status"`
}

func flashState(b byte) FlashState {
	switch b {
	case 0x05:
		return FlashOK
	case 0x03:
		return FlashError
	default:
		return FlashUnknown
	}
}

// DecodeFlashReadback decodes the module flash readback. The module count is
// the echoed data length divided by the 4-byte element size.
func DecodeFlashReadback(resp []byte) Field[[]FlashReport] {
	if Validate(resp) != nil {
		return NA[[]FlashReport]()
	}
	length, ok := ResponseLength(resp)
	if !ok {
		return NA[[]FlashReport]()
	}
	count := int(length&0xFF) / 4

	reports := []FlashReport{}
	for i := 0; i < count; i++ {
		e, ok := payloadAt(resp, OffsetPayload+4*i, 4)
		if !ok {
			break
		}
		r := FlashReport{Index: i, Flash: flashState(e[0]), Ack: flashState(e[1])}
		switch {
		case r.Flash == FlashOK && r.Ack == FlashOK:
			r.Status = FlashOK
		case r.Flash == FlashError || r.Ack == FlashError:
			r.Status = FlashError
		default:
			r.Status = FlashUnknown
		}
		reports = append(reports, r)
	}
	if len(reports) == 0 {
		return NA[[]FlashReport]()
	}
	return Of(reports)
}
