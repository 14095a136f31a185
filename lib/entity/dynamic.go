// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"sort"

	"github.com/bureau-foundation/storegraph/lib/entitykey"
)

// Dynamic is a schema-less Entity backed by a field map. It serves
// kinds whose field set is open-ended: every Set succeeds, and the
// encoder emits undeclared fields alongside the declared ones.
//
// Dynamic is not safe for concurrent use; like any entity instance it
// is owned by one session (or one caller) at a time.
type Dynamic struct {
	kind   string
	key    entitykey.Key
	fields map[string]any
}

// NewDynamic returns an empty Dynamic entity of the given kind.
func NewDynamic(kind string) *Dynamic {
	return &Dynamic{
		kind:   kind,
		fields: make(map[string]any),
	}
}

// EntityKind implements Entity.
func (d *Dynamic) EntityKind() string { return d.kind }

// EntityKey implements Entity.
func (d *Dynamic) EntityKey() entitykey.Key { return d.key }

// SetEntityKey implements Entity.
func (d *Dynamic) SetEntityKey(key entitykey.Key) { d.key = key }

// Get implements Entity.
func (d *Dynamic) Get(field string) (any, bool) {
	value, ok := d.fields[field]
	return value, ok
}

// Set implements Entity. Always succeeds.
func (d *Dynamic) Set(field string, value any) error {
	d.fields[field] = value
	return nil
}

// FieldNames returns the names of all fields currently present,
// sorted for deterministic iteration.
func (d *Dynamic) FieldNames() []string {
	names := make([]string, 0, len(d.fields))
	for name := range d.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
