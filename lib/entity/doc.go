// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package entity defines the contract a domain type must satisfy to
// participate in storegraph encoding and decoding.
//
// The engine never reflects over struct internals. A type opts in by
// implementing Entity: it names its kind, exposes its store key, and
// provides explicit field access by name. Which of those fields are
// encoded, decoded, repeated, or read-only is declared separately at
// registration time (lib/descriptor) — the Entity interface is purely
// the data surface.
//
// Dynamic is the schema-less counterpart: a map-backed Entity for
// kinds whose field set is open-ended. Declared fields still flow
// through the descriptor's classification; undeclared fields pass
// through encode untouched.
package entity
