// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/storegraph/lib/entity"
	"github.com/bureau-foundation/storegraph/lib/property"
)

// UnsupportedTypeError reports a type that cannot be classified:
// missing kind or factory, duplicate or reserved field names, or a
// kind registered twice. It surfaces at registration time, before any
// session starts.
type UnsupportedTypeError struct {
	Kind   string
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("descriptor: unsupported type %q: %s", e.Kind, e.Reason)
}

// Field declares one field of an entity kind.
type Field struct {
	// Name is the field name as it appears on the wire and in store
	// records.
	Name string `yaml:"name"`

	// Kind selects the property codec applied to this field's values.
	// KindNone (the default) passes values through unchanged.
	Kind property.Kind `yaml:"kind,omitempty"`

	// Repeated marks a sequence-valued field. Property codecs apply
	// per element.
	Repeated bool `yaml:"repeated,omitempty"`

	// Computed marks a derived, read-only field: encoded (it reports
	// current state) but never decoded (the store rejects writes to
	// it).
	Computed bool `yaml:"computed,omitempty"`
}

// Type is the compiled classification for one entity kind. Construct
// a Type literal with the declared fields and hand it to
// Registry.Register, which compiles and returns it. After compilation
// a Type is read-only.
type Type struct {
	// Kind is the entity kind name, matching Entity.EntityKind of
	// instances.
	Kind string

	// New constructs an empty instance of the kind. Called during
	// decode transform and when materializing fetched records.
	New func() entity.Entity

	// Fields declares the kind's fields in declaration order.
	Fields []Field

	// Discriminator names the synthetic polymorphism field to strip,
	// if the kind participates in a single-table hierarchy. Empty for
	// ordinary kinds.
	Discriminator string

	// Dynamic marks kinds whose instances carry undeclared fields
	// (entity.Dynamic). The encoder emits undeclared fields as-is in
	// addition to the declared ones.
	Dynamic bool

	fields    map[string]Field
	encodable map[string]bool
	decodable map[string]bool
}

// compile validates the declarations and builds the classification
// sets.
func (t *Type) compile() error {
	if t.Kind == "" {
		return &UnsupportedTypeError{Kind: "(unnamed)", Reason: "kind name is empty"}
	}
	if t.New == nil {
		return &UnsupportedTypeError{Kind: t.Kind, Reason: "no factory function"}
	}

	t.fields = make(map[string]Field, len(t.Fields))
	t.encodable = make(map[string]bool, len(t.Fields))
	t.decodable = make(map[string]bool, len(t.Fields))

	for _, field := range t.Fields {
		if field.Name == "" {
			return &UnsupportedTypeError{Kind: t.Kind, Reason: "field with empty name"}
		}
		if _, exists := t.fields[field.Name]; exists {
			return &UnsupportedTypeError{
				Kind:   t.Kind,
				Reason: fmt.Sprintf("duplicate field %q", field.Name),
			}
		}
		t.fields[field.Name] = field

		// Internal fields stay classified but never cross the wire
		// in either direction.
		if strings.HasPrefix(field.Name, "_") {
			continue
		}
		// The discriminator is redundant with the wire type tag.
		if field.Name == t.Discriminator && t.Discriminator != "" {
			continue
		}

		t.encodable[field.Name] = true
		if !field.Computed {
			t.decodable[field.Name] = true
		}
	}

	return nil
}

// Field returns the declaration for the named field.
func (t *Type) Field(name string) (Field, bool) {
	field, ok := t.fields[name]
	return field, ok
}

// Encodable reports whether the named field participates in encode.
// Undeclared names are not encodable (Dynamic kinds handle undeclared
// fields separately in the engine).
func (t *Type) Encodable(name string) bool { return t.encodable[name] }

// Decodable reports whether the named field participates in decode.
func (t *Type) Decodable(name string) bool { return t.decodable[name] }

// EncodableFields returns the encodable field declarations in
// declaration order.
func (t *Type) EncodableFields() []Field {
	fields := make([]Field, 0, len(t.encodable))
	for _, field := range t.Fields {
		if t.encodable[field.Name] {
			fields = append(fields, field)
		}
	}
	return fields
}

// Registry is the process-wide mapping from entity kind to compiled
// Type. Populate during startup; read-only thereafter.
type Registry struct {
	types map[string]*Type
}

// NewRegistry returns an empty type registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register compiles t and adds it to the registry. Registering a kind
// twice fails: re-registration during startup must go through an
// explicit new registry, not silent replacement.
func (r *Registry) Register(t *Type) (*Type, error) {
	if err := t.compile(); err != nil {
		return nil, err
	}
	if _, exists := r.types[t.Kind]; exists {
		return nil, &UnsupportedTypeError{Kind: t.Kind, Reason: "kind already registered"}
	}
	r.types[t.Kind] = t
	return t, nil
}

// Lookup returns the compiled Type for a kind.
func (r *Registry) Lookup(kind string) (*Type, bool) {
	t, ok := r.types[kind]
	return t, ok
}
