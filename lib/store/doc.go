// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package store defines the client contract for the external
// key-addressed entity store, and an in-memory implementation.
//
// The contract deliberately mirrors the real store's awkward shape:
// every fetch returns a fresh Record instance, even for an unchanged
// underlying row — the client guarantees nothing about object
// identity. Reconciling that instability against the wire codec's
// identity-based reference table is the whole job of lib/reconcile;
// this package just states the rules the reconciler can rely on:
//
//   - GetMulti is one round trip, regardless of key count. It is the
//     only blocking call in a decode session.
//   - A missing record is an explicit miss (absent map entry, nil
//     Record), never an error. Transport and storage failures are
//     FetchError.
//
// Memory is the map-backed implementation used in tests and small
// embedded deployments; lib/sqlitestore is the durable one.
package store
