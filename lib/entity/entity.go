// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"github.com/bureau-foundation/storegraph/lib/entitykey"
)

// Entity is a typed domain record backed by the external key-addressed
// store. Implementations provide static, explicit field access — a
// switch over declared field names, not reflection.
//
// Get returns the current value of a field and whether the field is
// known to this instance. Set assigns a field value; implementations
// return an error for unknown fields or values of the wrong shape.
// Computed (derived) fields should support Get and reject Set, though
// the engine never attempts to Set a field classified as computed.
type Entity interface {
	// EntityKind returns the registered kind name for this type.
	EntityKind() string

	// EntityKey returns the store key, or the zero Key when the
	// record has not been persisted.
	EntityKey() entitykey.Key

	// SetEntityKey assigns the store key. Called during decode when
	// the wire form carried a key for this entity.
	SetEntityKey(entitykey.Key)

	// Get returns the named field's value.
	Get(field string) (value any, ok bool)

	// Set assigns the named field's value.
	Set(field string, value any) error
}
