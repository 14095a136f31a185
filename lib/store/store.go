// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/storegraph/lib/entitykey"
)

// Record is one fetched row: its key and its stored field values.
// Every fetch materializes a fresh Record — callers must not assume
// two fetches of the same key return the same instance.
type Record struct {
	Key    entitykey.Key
	Fields map[string]any
}

// FetchError reports a store transport or storage failure. Missing
// records are not FetchErrors — they are explicit misses. A FetchError
// from the batch fetch aborts the whole decode session with no
// partial results.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client is the store access contract the reconciliation layer
// depends on.
type Client interface {
	// Get fetches one record. Returns (nil, nil) on a miss.
	Get(ctx context.Context, key entitykey.Key) (*Record, error)

	// GetMulti fetches all given keys in a single round trip. The
	// result maps each found key to its record; missing keys are
	// simply absent. An empty key list returns an empty map without
	// I/O.
	GetMulti(ctx context.Context, keys []entitykey.Key) (map[entitykey.Key]*Record, error)
}
