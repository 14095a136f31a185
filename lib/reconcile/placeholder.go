// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"

	"github.com/bureau-foundation/storegraph/lib/entity"
	"github.com/bureau-foundation/storegraph/lib/entitykey"
)

// Placeholder stands in for an entity between "decoded from the wire"
// and "transformed into its final type." It is a stable handle: every
// position in the decoded graph that references the entity holds the
// same *Placeholder, so when transform assigns the final instance,
// every holder observes it through the handle with no patching.
//
// A Placeholder carries no business fields. It is owned by the
// session's stub registry until transform; afterward the registry
// drops its reference and the handle belongs to whoever holds the
// decoded graph.
type Placeholder struct {
	entity entity.Entity
}

// NewPlaceholder returns a fresh unresolved placeholder. The wire
// codec creates the handle before decoding a node's fields so that a
// back-reference inside those fields (a cycle) can land on it, then
// hands it to Session.RegisterNode.
func NewPlaceholder() *Placeholder { return &Placeholder{} }

// Entity returns the final typed instance, or nil while the
// placeholder is still pending.
func (p *Placeholder) Entity() entity.Entity { return p.entity }

// Resolved reports whether transform has assigned the final instance.
func (p *Placeholder) Resolved() bool { return p.entity != nil }

// UnresolvedReferenceError reports a key the graph referenced that was
// found in neither the batch fetch results nor the session's own
// decoded entities. The default session policy treats this as
// "entity not found" and materializes from decoded values alone
// (optional-reference semantics); Options.StrictReferences surfaces
// it instead.
type UnresolvedReferenceError struct {
	Key entitykey.Key
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("reconcile: unresolved reference to %s", e.Key)
}
