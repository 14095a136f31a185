// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package descriptor classifies entity types for encoding and
// decoding.
//
// A Type declares an entity kind's fields once, at registration time:
// name, value kind (for property codec lookup), whether the field is
// repeated, and whether it is computed. Register compiles those
// declarations into the classification the engine consults on every
// field — the encodable set, the decodable set (computed fields are
// accepted on encode, where they report current state, but never on
// decode, where writing them back is meaningless or rejected by the
// store), and the per-field codec kinds. Compilation happens exactly
// once per type; lookups afterward are read-only map hits.
//
// Types participating in a single-table polymorphic hierarchy declare
// a discriminator field; it is stripped from both sets because the
// wire format's type tag already carries the concrete kind.
//
// Field classifications can also be loaded from a YAML manifest
// (LoadManifest) for schema-less Dynamic kinds, so field declarations
// can be shared with non-Go peers of the same store.
package descriptor
