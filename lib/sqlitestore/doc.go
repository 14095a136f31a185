// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitestore is the SQLite-backed implementation of the
// store.Client contract.
//
// Records live in a single table keyed by the entity key's portable
// token. Field maps are stored as deterministic CBOR blobs,
// compressed with zstd or lz4 when that actually shrinks them (a
// one-byte algorithm tag rides with each row). A BLAKE3 hash of the
// uncompressed blob is stored alongside; because the CBOR encoding is
// deterministic, Put can compare hashes and skip rewriting an
// unchanged record entirely.
//
// Like every store.Client, fetches materialize a fresh Record per
// call and GetMulti is a single query regardless of key count.
package sqlitestore
