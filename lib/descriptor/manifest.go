// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/storegraph/lib/entity"
)

// Manifest is the YAML form of a set of field classifications for
// schema-less (Dynamic) kinds. Example:
//
//	types:
//	  - kind: person
//	    fields:
//	      - name: name
//	      - name: birthday
//	        kind: date
//	      - name: friend
//	        kind: key
//	      - name: age
//	        computed: true
//	      - name: tags
//	        repeated: true
type Manifest struct {
	Types []ManifestType `yaml:"types"`
}

// ManifestType declares one kind in a manifest.
type ManifestType struct {
	Kind          string  `yaml:"kind"`
	Discriminator string  `yaml:"discriminator,omitempty"`
	Fields        []Field `yaml:"fields"`
}

// LoadManifest parses a YAML manifest and registers every declared
// kind as a Dynamic type. Unknown YAML fields are rejected (strict
// decode) so a typo in a shared schema file fails loudly instead of
// silently dropping a classification. Semantic problems (empty kind,
// duplicate fields, already-registered kinds) surface as
// UnsupportedTypeError from Register.
func LoadManifest(r io.Reader, registry *Registry) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("descriptor: reading manifest: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		return fmt.Errorf("descriptor: parsing manifest: %w", err)
	}

	for _, declared := range manifest.Types {
		kind := declared.Kind
		_, err := registry.Register(&Type{
			Kind:          kind,
			New:           func() entity.Entity { return entity.NewDynamic(kind) },
			Fields:        declared.Fields,
			Discriminator: declared.Discriminator,
			Dynamic:       true,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
