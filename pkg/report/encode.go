// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for an unregistered encoding name
var ErrUnknownFormat = errors.New("unknown report format")

// Encoder writes a snapshot in one format
type Encoder func(w io.Writer, s *Snapshot) error

var encoders = map[string]Encoder{
	"json": encodeJSON,
	"yaml": encodeYAML,
	"cbor": encodeCBOR,
}

// Formats returns the registered format names
func Formats() []string {
	names := make([]string, 0, len(encoders))
	for name := range encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode writes s to w in the named format
func Encode(w io.Writer, format string, s *Snapshot) error {
	enc, ok := encoders[format]
	if !ok {
		return fmt.Errorf("%w: %q (use one of %v)", ErrUnknownFormat, format, Formats())
	}
	return enc(w, s)
}

func encodeJSON(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func encodeYAML(w io.Writer, s *Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

func encodeCBOR(w io.Writer, s *Snapshot) error {
	data, err := cbor.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decoder reads a snapshot in one format
type Decoder func(r io.Reader) (*Snapshot, error)

var decoders = map[string]Decoder{
	"json": decodeJSON,
	"yaml": decodeYAML,
	"cbor": decodeCBOR,
}

// Decode reads a snapshot written by Encode in the named format
func Decode(r io.Reader, format string) (*Snapshot, error) {
	dec, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q (use one of %v)", ErrUnknownFormat, format, Formats())
	}
	return dec(r)
}

func decodeJSON(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeYAML(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeCBOR(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal returns the compact JSON form used for storage
func Marshal(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes the compact JSON form
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
