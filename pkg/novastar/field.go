// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package novastar

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// NotAvailable is the textual form of a missing reading
const NotAvailable = "N/A"

// Field is a decoded value or the "N/A" marker. The zero Field is N/A, so a
// zero reading and a missing reading stay distinguishable.
type Field[T any] struct {
	value T
	ok    bool
}

// Of wraps an available value
func Of[T any](v T) Field[T] {
	return Field[T]{value: v, ok: true}
}

// NA returns an unavailable field
func NA[T any]() Field[T] {
	return Field[T]{}
}

// Get returns the value and whether it is available
func (f Field[T]) Get() (T, bool) {
	return f.value, f.ok
}

// Valid reports whether the field carries a value
func (f Field[T]) Valid() bool {
	return f.ok
}

// Or returns the value, or fallback when unavailable
func (f Field[T]) Or(fallback T) T {
	if !f.ok {
		return fallback
	}
	return f.value
}

// String renders the value, or "N/A"
func (f Field[T]) String() string {
	if !f.ok {
		return NotAvailable
	}
	if s, ok := any(f.value).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(f.value)
}

// MarshalJSON encodes the value, or null
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON accepts the value or null
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Of(v)
	return nil
}

// MarshalYAML encodes the value, or null
func (f Field[T]) MarshalYAML() (interface{}, error) {
	if !f.ok {
		return nil, nil
	}
	return f.value, nil
}

// UnmarshalYAML accepts the value or null
func (f *Field[T]) UnmarshalYAML(value *yaml.Node) error {
	if value.ShortTag() == "!!null" {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := value.Decode(&v); err != nil {
		return err
	}
	*f = Of(v)
	return nil
}

// MarshalCBOR encodes the value, or CBOR null
func (f Field[T]) MarshalCBOR() ([]byte, error) {
	if !f.ok {
		return cbor.Marshal(nil)
	}
	return cbor.Marshal(f.value)
}

// UnmarshalCBOR accepts the value, null or undefined
func (f *Field[T]) UnmarshalCBOR(data []byte) error {
	if len(data) == 1 && (data[0] == cborNull || data[0] == cborUndefined) {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Of(v)
	return nil
}

// CBOR simple values for null and undefined
const (
	cborNull      = 0xF6
	cborUndefined = 0xF7
)

// Map converts an available value; unavailable stays unavailable
func Map[T, U any](f Field[T], fn func(T) U) Field[U] {
	if !f.ok {
		return NA[U]()
	}
	return Of(fn(f.value))
}
