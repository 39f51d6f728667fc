// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package discovery

import (
	"context"
	"fmt"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
)

// MaxReceivers bounds enumeration on one LAN port; card indices are one byte
const MaxReceivers = 256

// EnumState is the receiver enumeration state
type EnumState uint8

const (
	Searching EnumState = iota
	Found
	Done
)

// String returns the state name
func (s EnumState) String() string {
	switch s {
	case Searching:
		return "Searching"
	case Found:
		return "Found"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("EnumState(%d)", s)
	}
}

// Receiver is one receiver card found during enumeration
type Receiver struct {
	LAN   uint8                                  `json:"lan" yaml:"lan" cbor:"lan"`
	Index uint8                                  `json:"index" yaml:"index" cbor:"index"`
	Model novastar.Field[novastar.ReceiverModel] `json:"model" yaml:"model" cbor:"model"`
}

// Enumerator walks receiver card indices on one LAN port. Each Next queries
// the current index: a valid response moves to Found and advances, any
// failure moves to Done. Indices are contiguous from 0, so enumeration never
// queries past the first card that fails to answer.
type Enumerator struct {
	ex    Exchanger
	lan   uint8
	state EnumState
	index int
	last  Receiver
	err   error
}

// NewEnumerator starts Searching at card 0 on lan
func NewEnumerator(ex Exchanger, lan uint8) *Enumerator {
	return &Enumerator{ex: ex, lan: lan}
}

// Next queries the next card index and reports whether one was found
func (e *Enumerator) Next() bool {
	if e.state == Done {
		return false
	}
	if e.index >= MaxReceivers {
		e.state = Done
		return false
	}

	resp, err := e.ex.Exchange(novastar.Build(novastar.ReceiverModelQuery, e.lan, uint8(e.index)))
	if err == nil {
		err = novastar.Validate(resp)
	}
	if err != nil {
		e.state = Done
		e.err = err
		return false
	}

	e.state = Found
	e.last = Receiver{
		LAN:   e.lan,
		Index: uint8(e.index),
		Model: novastar.DecodeReceiverModel(resp),
	}
	e.index++
	return true
}

// Receiver returns the card found by the last successful Next
func (e *Enumerator) Receiver() Receiver {
	return e.last
}

// State returns the current state
func (e *Enumerator) State() EnumState {
	return e.state
}

// Count returns the number of cards found so far
func (e *Enumerator) Count() int {
	return e.index
}

// Err returns the failure that ended enumeration. ErrNoResponse is the
// normal end of the chain.
func (e *Enumerator) Err() error {
	return e.err
}

// EnumerateReceivers returns the receivers on lan in index order. The
// terminating failure is not an error; only a cancelled ctx is.
func EnumerateReceivers(ctx context.Context, ex Exchanger, lan uint8) ([]Receiver, error) {
	var receivers []Receiver
	e := NewEnumerator(ex, lan)
	for {
		if err := ctx.Err(); err != nil {
			return receivers, err
		}
		if !e.Next() {
			return receivers, nil
		}
		receivers = append(receivers, e.Receiver())
	}
}

// LAN is the enumeration result for one output port
type LAN struct {
	Port      uint8      `json:"port" yaml:"port" cbor:"port"`
	Receivers []Receiver `json:"receivers" yaml:"receivers" cbor:"receivers"`
}

// WalkLANs enumerates every output port of the sender. lanPorts overrides
// the count implied by the model when positive.
func WalkLANs(ctx context.Context, ex Exchanger, id Identity, lanPorts int) ([]LAN, error) {
	if lanPorts <= 0 {
		lanPorts = id.LANPorts()
	}
	if lanPorts > novastar.MaxLANPorts {
		lanPorts = novastar.MaxLANPorts
	}

	lans := make([]LAN, 0, lanPorts)
	for port := 0; port < lanPorts; port++ {
		receivers, err := EnumerateReceivers(ctx, ex, uint8(port))
		lans = append(lans, LAN{Port: uint8(port), Receivers: receivers})
		if err != nil {
			return lans, err
		}
	}
	return lans, nil
}

// TotalReceivers sums the receivers across lans
func TotalReceivers(lans []LAN) int {
	n := 0
	for _, l := range lans {
		n += len(l.Receivers)
	}
	return n
}
