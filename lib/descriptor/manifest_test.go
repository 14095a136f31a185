// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/storegraph/lib/entity"
	"github.com/bureau-foundation/storegraph/lib/property"
)

const sampleManifest = `
types:
  - kind: person
    fields:
      - name: name
      - name: birthday
        kind: date
      - name: friend
        kind: key
      - name: age
        computed: true
      - name: tags
        repeated: true
  - kind: animal
    discriminator: class
    fields:
      - name: class
      - name: species
`

func TestLoadManifest(t *testing.T) {
	registry := NewRegistry()
	if err := LoadManifest(strings.NewReader(sampleManifest), registry); err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	person, ok := registry.Lookup("person")
	if !ok {
		t.Fatal("person not registered")
	}
	if !person.Dynamic {
		t.Error("manifest type not marked Dynamic")
	}

	birthday, ok := person.Field("birthday")
	if !ok || birthday.Kind != property.KindDate {
		t.Errorf("birthday field: %+v, %v", birthday, ok)
	}
	if person.Decodable("age") {
		t.Error("computed manifest field is decodable")
	}
	tags, _ := person.Field("tags")
	if !tags.Repeated {
		t.Error("repeated manifest field not repeated")
	}

	animal, ok := registry.Lookup("animal")
	if !ok {
		t.Fatal("animal not registered")
	}
	if animal.Encodable("class") {
		t.Error("manifest discriminator crosses the wire")
	}

	// Factories produce fresh Dynamic instances of the right kind.
	instance := person.New()
	if _, ok := instance.(*entity.Dynamic); !ok {
		t.Fatalf("factory produced %T", instance)
	}
	if instance.EntityKind() != "person" {
		t.Errorf("factory kind: %q", instance.EntityKind())
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	registry := NewRegistry()
	bad := `
types:
  - kind: person
    fields:
      - name: name
        typo: oops
`
	if err := LoadManifest(strings.NewReader(bad), registry); err == nil {
		t.Error("manifest with unknown field loaded, want error")
	}
}

func TestLoadManifestSurfacesRegistrationErrors(t *testing.T) {
	registry := NewRegistry()
	bad := `
types:
  - kind: person
    fields:
      - name: x
      - name: x
`
	err := LoadManifest(strings.NewReader(bad), registry)
	if err == nil {
		t.Fatal("manifest with duplicate field loaded, want error")
	}
	var unsupported *UnsupportedTypeError
	if !errors.As(err, &unsupported) {
		t.Errorf("error is %T, want *UnsupportedTypeError", err)
	}
}
