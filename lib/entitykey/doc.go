// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package entitykey defines the opaque key that addresses a record in
// the external entity store.
//
// A Key pairs an entity kind with either a string name or a numeric
// ID. Keys are small comparable values: two Keys are equal exactly
// when they address the same record, regardless of which store fetch
// produced them. That structural equality is what the reconciliation
// layer's identity cache and fetch plan are built on.
//
// Keys cross process boundaries as portable tokens — a base64url
// wrapping of the key's CBOR form. Token and Parse are pure
// functions; no store I/O is ever needed to move between a Key and
// its token.
package entitykey
