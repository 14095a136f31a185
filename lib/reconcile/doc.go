// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile bridges the wire codec's identity-based reference
// table to a store whose client invents a fresh instance on every
// fetch.
//
// The wire format detects shared and cyclic references by object
// identity: encode each distinct object once, back-reference it
// thereafter. The store offers no such stability — fetching the same
// key twice yields two instances. This package reconciles the two
// worlds, in both directions, within the scope of a single Session
// (one encode or one decode operation):
//
// Encode: Canonicalize collapses every instance carrying the same
// (kind, key) onto one canonical instance via a session identity
// cache, so the codec's reference table sees one object where the
// store produced many. ResolveKey turns a bare key reference into the
// canonical instance, fetching it if this session has not seen it.
//
// Decode: DecodeNode returns a Placeholder for every entity node the
// moment its field values are read, before its backing record exists
// in memory — siblings and parents can reference it immediately, and
// cycles cost nothing. When the full graph has been read, Finalize
// performs exactly one batch fetch for every distinct key the graph
// mentioned, then transforms every placeholder depth-first into its
// final typed instance: stored fields first, decoded fields overlaid
// on top (the sender's values always win), nested placeholders
// resolved before their containers.
//
// A Session is single-owner and synchronous. The batch fetch is its
// only blocking call; a fetch failure aborts the whole decode with no
// partial results.
package reconcile
