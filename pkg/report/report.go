// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package report holds the result of one full controller sweep and encodes
// it for storage and output.
package report

import (
	"time"

	"github.com/Thermoquad/novaprobe/pkg/health"
	"github.com/Thermoquad/novaprobe/pkg/novastar"
)

// Sender is the sender card identity and configuration
type Sender struct {
	Model      novastar.Field[novastar.SenderModel] `json:"model" yaml:"model" cbor:"model"`
	Firmware   novastar.Field[string]               `json:"firmware" yaml:"firmware" cbor:"firmware"`
	LANPorts   int                                  `json:"lan_ports" yaml:"lan_ports" cbor:"lan_ports"`
	DVI        novastar.Field[novastar.SignalState] `json:"dvi" yaml:"dvi" cbor:"dvi"`
	Width      novastar.Field[uint16]               `json:"cabinet_width" yaml:"cabinet_width" cbor:"cabinet_width"`
	Height     novastar.Field[uint16]               `json:"cabinet_height" yaml:"cabinet_height" cbor:"cabinet_height"`
	Redundancy novastar.Field[[]uint8]              `json:"redundancy" yaml:"redundancy" cbor:"redundancy"`
}

// Inputs is the video input configuration
type Inputs struct {
	Mode     novastar.Field[novastar.InputMode] `json:"mode" yaml:"mode" cbor:"mode"`
	Selected novastar.Field[string]             `json:"selected" yaml:"selected" cbor:"selected"`
	Status   novastar.Field[[]string]           `json:"status" yaml:"status" cbor:"status"`
}

// Brightness is the automatic brightness configuration and sensor reading
type Brightness struct {
	Mode         novastar.Field[novastar.ALSMode]                `json:"mode" yaml:"mode" cbor:"mode"`
	Settings     novastar.Field[novastar.AutoBrightnessSettings] `json:"settings" yaml:"settings" cbor:"settings"`
	Lux          novastar.Field[float64]                         `json:"lux" yaml:"lux" cbor:"lux"`
	FunctionCard novastar.Field[string]                          `json:"function_card" yaml:"function_card" cbor:"function_card"`
	CardLux      novastar.Field[float64]                         `json:"function_card_lux" yaml:"function_card_lux" cbor:"function_card_lux"`
}

// Receiver is everything read from one receiver card
type Receiver struct {
	LAN        uint8                                     `json:"lan" yaml:"lan" cbor:"lan"`
	Index      uint8                                     `json:"index" yaml:"index" cbor:"index"`
	Model      novastar.Field[novastar.ReceiverModel]    `json:"model" yaml:"model" cbor:"model"`
	Firmware   novastar.Field[string]                    `json:"firmware" yaml:"firmware" cbor:"firmware"`
	Brightness novastar.Field[novastar.BrightnessLevels] `json:"brightness" yaml:"brightness" cbor:"brightness"`
	Kill       novastar.Field[novastar.KillState]        `json:"kill" yaml:"kill" cbor:"kill"`
	Lock       novastar.Field[novastar.LockState]        `json:"lock" yaml:"lock" cbor:"lock"`
	Gamma      novastar.Field[float64]                   `json:"gamma" yaml:"gamma" cbor:"gamma"`
	Monitoring novastar.Field[novastar.Monitoring]       `json:"monitoring" yaml:"monitoring" cbor:"monitoring"`
	Modules    novastar.Field[[]novastar.ModuleReport]   `json:"modules" yaml:"modules" cbor:"modules"`
}

// LAN is one sender output port and its receiver chain
type LAN struct {
	Port      uint8      `json:"port" yaml:"port" cbor:"port"`
	Receivers []Receiver `json:"receivers" yaml:"receivers" cbor:"receivers"`
}

// Snapshot is one full sweep of a controller
type Snapshot struct {
	RunID      string          `json:"run_id" yaml:"run_id" cbor:"run_id"`
	Port       string          `json:"port" yaml:"port" cbor:"port"`
	Taken      time.Time       `json:"taken" yaml:"taken" cbor:"taken"`
	Duration   time.Duration   `json:"duration" yaml:"duration" cbor:"duration"`
	Found      bool            `json:"found" yaml:"found" cbor:"found"`
	Sender     Sender          `json:"sender" yaml:"sender" cbor:"sender"`
	Inputs     Inputs          `json:"inputs" yaml:"inputs" cbor:"inputs"`
	Brightness Brightness      `json:"brightness" yaml:"brightness" cbor:"brightness"`
	LANs       []LAN           `json:"lans" yaml:"lans" cbor:"lans"`
	Results    []health.Result `json:"results" yaml:"results" cbor:"results"`
}

// ReceiverCount returns the receivers found across all LANs
func (s *Snapshot) ReceiverCount() int {
	n := 0
	for _, l := range s.LANs {
		n += len(l.Receivers)
	}
	return n
}

// Receivers returns every receiver in LAN then index order
func (s *Snapshot) Receivers() []Receiver {
	var all []Receiver
	for _, l := range s.LANs {
		all = append(all, l.Receivers...)
	}
	return all
}

// Evaluate fills Results with one result per check. expected is the
// configured receiver count, 0 when unchecked.
func (s *Snapshot) Evaluate(expected int) []health.Result {
	if !s.Found {
		s.Results = []health.Result{health.Sender(s.Port, false)}
		return s.Results
	}

	results := []health.Result{
		health.Sender(s.Port, true),
		health.DVI(s.Sender.DVI),
		health.Receivers(s.ReceiverCount(), expected),
	}

	var brightness, temperature, modules, display, lock []health.Result
	for _, r := range s.Receivers() {
		brightness = append(brightness, health.Brightness(r.LAN, r.Index, r.Brightness))
		temperature = append(temperature, health.Temperature(r.LAN, r.Index, r.Monitoring))
		modules = append(modules, health.Modules(r.LAN, r.Index, r.Modules))
		display = append(display, health.Display(r.LAN, r.Index, r.Kill))
		lock = append(lock, health.Lock(r.LAN, r.Index, r.Lock))
	}

	if len(brightness) > 0 {
		results = append(results,
			health.Combine(health.CheckBrightness, "brightness above 0 on all receivers", brightness),
			health.Combine(health.CheckTemperature, "temperature and voltage valid on all receivers", temperature),
			health.Combine(health.CheckModules, "all modules OK", modules),
			health.Combine(health.CheckDisplay, "display on", display),
			health.Combine(health.CheckLock, "no receiver locked", lock),
		)
	}

	s.Results = results
	return results
}

// Severity returns the worst result severity
func (s *Snapshot) Severity() health.Severity {
	return health.Worst(s.Results)
}
