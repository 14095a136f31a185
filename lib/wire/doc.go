// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire is the binary object-graph codec the reconciliation
// engine plugs into.
//
// A document is a single CBOR value in the module's standard
// deterministic encoding (lib/codec), with two private tags layered
// on top:
//
//   - tag 40601, an entity node: [id, kind, fields]. Each distinct
//     entity in the graph serializes exactly once, as a node.
//   - tag 40602, a back-reference: the id of a previously emitted
//     node. Every further occurrence of the same entity — including
//     occurrences discovered only after store-identity
//     canonicalization collapsed two instances into one — costs a
//     few bytes.
//
// Node ids are explicit in the document rather than implied by
// stream position, so decoding does not depend on traversal order
// and cyclic graphs need no special casing: the decoder registers a
// node's placeholder handle before decoding its fields, and a
// back-reference inside those fields lands on the handle.
//
// The codec owns traversal and reference bookkeeping only. Entity
// semantics — canonicalization, field classification, deferred
// hydration — live in the reconcile.Session the Encoder or Decoder
// is constructed with; one session serves exactly one document.
package wire
