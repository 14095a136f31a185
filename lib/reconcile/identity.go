// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"

	"github.com/bureau-foundation/storegraph/lib/descriptor"
	"github.com/bureau-foundation/storegraph/lib/entity"
	"github.com/bureau-foundation/storegraph/lib/entitykey"
)

// identityCache collapses the store's per-fetch instances onto one
// canonical instance per (kind, key) for the duration of one encode
// session. The wire codec's reference table keys on object identity;
// without this cache, two fetches of the same record would serialize
// as two unrelated objects instead of an object and a back-reference.
type identityCache struct {
	entries map[entitykey.Key]entity.Entity
}

func newIdentityCache() *identityCache {
	return &identityCache{entries: make(map[entitykey.Key]entity.Entity)}
}

// fetchFunc loads and materializes one record by key. A miss returns
// (nil, nil).
type fetchFunc func(ctx context.Context, t *descriptor.Type, key entitykey.Key) (entity.Entity, error)

// getOrFetch returns the canonical instance for key. An existing
// entry wins and the candidate is discarded — callers must continue
// with the returned instance, not the one they passed in. With no
// entry and a non-nil candidate, the candidate becomes canonical.
// With no entry and no candidate, fetch is invoked; a miss is a valid
// outcome and returns (nil, nil) without caching, so the encoder can
// write a null reference instead of failing the session.
func (c *identityCache) getOrFetch(ctx context.Context, t *descriptor.Type, key entitykey.Key, candidate entity.Entity, fetch fetchFunc) (entity.Entity, error) {
	if canonical, ok := c.entries[key]; ok {
		return canonical, nil
	}
	if candidate != nil {
		c.entries[key] = candidate
		return candidate, nil
	}
	fetched, err := fetch(ctx, t, key)
	if err != nil {
		return nil, err
	}
	if fetched == nil {
		return nil, nil
	}
	c.entries[key] = fetched
	return fetched, nil
}
