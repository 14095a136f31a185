// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Storegraph-dump inspects a wire document without touching a store:
// it prints the document's CBOR diagnostic notation followed by a
// graph summary (entity nodes per kind, back-reference count, carried
// keys). Useful when debugging what a peer actually put on the wire.
//
// Exit codes:
//
//	0  document parsed
//	1  malformed document
//	2  usage error
package main
