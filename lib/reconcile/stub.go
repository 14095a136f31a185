// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/storegraph/lib/descriptor"
	"github.com/bureau-foundation/storegraph/lib/entitykey"
	"github.com/bureau-foundation/storegraph/lib/store"
)

// entryState tracks a pending entity through its one-way life cycle:
// Pending (registered, key queued) → Transforming (reached by the
// sweep or by a nested reference) → Resolved (handle assigned,
// removed from the registry index). There are no reverse transitions.
type entryState int

const (
	statePending entryState = iota
	stateTransforming
	stateResolved
)

// pendingEntry is one registered stub: the placeholder handle, its
// target type, the decoded field values (which may contain nested
// placeholders), and the store key if the wire carried one.
type pendingEntry struct {
	placeholder *Placeholder
	typ         *descriptor.Type
	fields      map[string]any
	key         entitykey.Key
	state       entryState
}

// stubRegistry defers entity materialization until the whole graph is
// decoded, so that all referenced keys can be fetched in a single
// batch round trip instead of one fetch per entity.
type stubRegistry struct {
	// entries preserves registration order for the top-level
	// transform sweep. Nested references may promote an entry out of
	// order; that is safe because transform is idempotent.
	entries []*pendingEntry

	// byPlaceholder indexes pending (not yet transforming) entries.
	// An entry leaves the index the moment its transform starts,
	// which is what makes re-entrant transform of a shared or cyclic
	// entity a no-op.
	byPlaceholder map[*Placeholder]*pendingEntry

	// fetchPlan holds the distinct keys to batch-fetch, in first-seen
	// order. queued enforces the set semantics.
	fetchPlan []entitykey.Key
	queued    map[entitykey.Key]bool

	fetched   map[entitykey.Key]*store.Record
	fetchDone bool
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{
		byPlaceholder: make(map[*Placeholder]*pendingEntry),
		queued:        make(map[entitykey.Key]bool),
	}
}

// register records a decoded entity for deferred transform and queues
// its key for the batch fetch (deduplicated). Registration after the
// batch fetch has run is a session-ordering bug: the fetch plan is
// final once fetchAll executes.
func (r *stubRegistry) register(p *Placeholder, t *descriptor.Type, fields map[string]any, key entitykey.Key) error {
	if r.fetchDone {
		return fmt.Errorf("reconcile: stub registered after batch fetch (decode must complete before finalize)")
	}
	if _, exists := r.byPlaceholder[p]; exists {
		return fmt.Errorf("reconcile: placeholder registered twice")
	}

	entry := &pendingEntry{
		placeholder: p,
		typ:         t,
		fields:      fields,
		key:         key,
		state:       statePending,
	}
	r.entries = append(r.entries, entry)
	r.byPlaceholder[p] = entry

	if !key.IsZero() && !r.queued[key] {
		r.queued[key] = true
		r.fetchPlan = append(r.fetchPlan, key)
	}
	return nil
}

// fetchAll performs the session's single batch fetch. The first call
// hits the store; subsequent calls reuse the cached result. A store
// failure aborts the session — the caller must not fall back to
// per-entity fetches.
func (r *stubRegistry) fetchAll(ctx context.Context, client store.Client) error {
	if r.fetchDone {
		return nil
	}
	if len(r.fetchPlan) == 0 {
		r.fetched = map[entitykey.Key]*store.Record{}
		r.fetchDone = true
		return nil
	}
	fetched, err := client.GetMulti(ctx, r.fetchPlan)
	if err != nil {
		return err
	}
	r.fetched = fetched
	r.fetchDone = true
	return nil
}

// lookup returns the pending entry for a placeholder, if it has not
// yet started transforming.
func (r *stubRegistry) lookup(p *Placeholder) (*pendingEntry, bool) {
	entry, ok := r.byPlaceholder[p]
	return entry, ok
}

// begin moves an entry to Transforming and drops it from the pending
// index. From this point a second transform attempt on the same
// placeholder finds nothing and no-ops.
func (r *stubRegistry) begin(entry *pendingEntry) {
	entry.state = stateTransforming
	delete(r.byPlaceholder, entry.placeholder)
}

// finish marks an entry Resolved and releases the registry's
// references to the decoded field map; ownership of the handle now
// rests with the caller's decoded graph.
func (r *stubRegistry) finish(entry *pendingEntry) {
	entry.state = stateResolved
	entry.fields = nil
}

// record returns the batch-fetched record for key, if any.
func (r *stubRegistry) record(key entitykey.Key) *store.Record {
	return r.fetched[key]
}
