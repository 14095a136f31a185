// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides storegraph's standard CBOR encoding
// configuration.
//
// Three layers of the module serialize data and all of them must agree
// byte-for-byte on how: the wire graph codec (lib/wire), the portable
// entity key token (lib/entitykey), and the SQLite store's record
// blobs (lib/sqlitestore). This package provides the shared CBOR
// encoding and decoding modes so that every layer encodes identically
// without duplicating configuration.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes — which is what
// lets the SQLite store compare record content hashes to detect no-op
// writes, and what makes wire blobs reproducible in tests.
//
// For buffer-oriented operations (tokens, store blobs):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
package codec
