// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/bureau-foundation/storegraph/lib/entitykey"
)

// Memory is a map-backed Client for tests and embedded use.
//
// Like the real store, Memory returns a fresh Record instance on
// every fetch — tests that pass when run against Memory cannot be
// accidentally leaning on object identity the production client does
// not provide.
type Memory struct {
	mu      sync.Mutex
	records map[entitykey.Key]map[string]any

	// getMultiCalls counts GetMulti invocations. Tests assert the
	// batch-fetch-once property against it via GetMultiCalls.
	getMultiCalls int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[entitykey.Key]map[string]any)}
}

// Put stores a record's fields under its key, replacing any previous
// record. The field map is copied.
func (m *Memory) Put(key entitykey.Key, fields map[string]any) error {
	if key.IsZero() {
		return fmt.Errorf("store: cannot put record with zero key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = copyFields(fields)
	return nil
}

// Delete removes a record. Deleting an absent key is a no-op.
func (m *Memory) Delete(key entitykey.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
}

// Get implements Client.
func (m *Memory) Get(ctx context.Context, key entitykey.Key) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Op: "get", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &Record{Key: key, Fields: copyFields(fields)}, nil
}

// GetMulti implements Client.
func (m *Memory) GetMulti(ctx context.Context, keys []entitykey.Key) (map[entitykey.Key]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Op: "get-multi", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getMultiCalls++

	result := make(map[entitykey.Key]*Record, len(keys))
	for _, key := range keys {
		fields, ok := m.records[key]
		if !ok {
			continue
		}
		result[key] = &Record{Key: key, Fields: copyFields(fields)}
	}
	return result, nil
}

// GetMultiCalls returns how many times GetMulti has been invoked.
func (m *Memory) GetMultiCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getMultiCalls
}

// copyFields shallow-copies a field map. Values are shared; a fresh
// top-level map is enough to break the identity of the Record itself.
func copyFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for name, value := range fields {
		copied[name] = value
	}
	return copied
}
