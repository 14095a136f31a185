// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"fmt"
)

// Kind identifies a field's value kind for codec lookup. The zero
// value KindNone means "no custom codec": values pass through both
// directions unchanged.
type Kind string

const (
	// KindNone marks a field with no registered codec.
	KindNone Kind = ""

	// KindKey marks a field holding a reference to another record by
	// store key. Encodes to the key's portable token.
	KindKey Kind = "key"

	// KindDate marks a calendar-date field. The wire carries it as a
	// timestamp at midnight; decode strips the time-of-day back off.
	KindDate Kind = "date"

	// KindTime marks a bare time-of-day field. Not encodable: the
	// wire's timestamp type needs a date to anchor to and inventing
	// one would be silent data corruption.
	KindTime Kind = "time"

	// KindFloat marks a floating-point field. Decode widens integral
	// wire values to float64.
	KindFloat Kind = "float"

	// KindInt marks an integer field. Decode narrows a float with no
	// fractional part back to int64 and leaves anything else alone.
	KindInt Kind = "int"
)

// Func converts one field value. The field name is provided for error
// context only.
type Func func(field string, value any) (any, error)

// ValueCodecError reports a field value the registered codec could not
// convert. It is fatal to the enclosing entity's encode or transform;
// the reconciliation engine attaches the entity's key (when known) and
// propagates it out of the session.
type ValueCodecError struct {
	Field string
	Kind  Kind
	Err   error
}

func (e *ValueCodecError) Error() string {
	return fmt.Sprintf("property: field %q (kind %q): %v", e.Field, e.Kind, e.Err)
}

func (e *ValueCodecError) Unwrap() error { return e.Err }

// Registry maps field kinds to encode and decode functions. Populate
// during startup, read-only thereafter. The zero value is not usable;
// construct with New or Default.
type Registry struct {
	encoders map[Kind]Func
	decoders map[Kind]Func
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		encoders: make(map[Kind]Func),
		decoders: make(map[Kind]Func),
	}
}

// RegisterEncoder installs fn as the encoder for kind. The last
// registration for a kind wins. Startup-only: not safe to call
// concurrently with Encode/Decode.
func (r *Registry) RegisterEncoder(kind Kind, fn Func) {
	r.encoders[kind] = fn
}

// RegisterDecoder installs fn as the decoder for kind. Same rules as
// RegisterEncoder.
func (r *Registry) RegisterDecoder(kind Kind, fn Func) {
	r.decoders[kind] = fn
}

// Encode normalizes a store-side value into its wire form. Fields
// whose kind has no registered encoder pass through unchanged.
func (r *Registry) Encode(field string, kind Kind, value any) (any, error) {
	fn, ok := r.encoders[kind]
	if !ok {
		return value, nil
	}
	converted, err := fn(field, value)
	if err != nil {
		return nil, codecError(field, kind, err)
	}
	return converted, nil
}

// Decode normalizes a wire-side value into its store form. Fields
// whose kind has no registered decoder pass through unchanged.
func (r *Registry) Decode(field string, kind Kind, value any) (any, error) {
	fn, ok := r.decoders[kind]
	if !ok {
		return value, nil
	}
	converted, err := fn(field, value)
	if err != nil {
		return nil, codecError(field, kind, err)
	}
	return converted, nil
}

// codecError wraps err in a ValueCodecError unless it already is one
// (custom codecs may construct their own for better messages).
func codecError(field string, kind Kind, err error) error {
	if _, ok := err.(*ValueCodecError); ok {
		return err
	}
	return &ValueCodecError{Field: field, Kind: kind, Err: err}
}
