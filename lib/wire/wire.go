// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bureau-foundation/storegraph/lib/codec"
	"github.com/bureau-foundation/storegraph/lib/entity"
	"github.com/bureau-foundation/storegraph/lib/entitykey"
	"github.com/bureau-foundation/storegraph/lib/reconcile"
)

// Private CBOR tags. Protocol constants: changing them breaks
// document compatibility.
const (
	// TagNode marks an entity node: [id, kind, fields].
	TagNode = 40601

	// TagBackref marks a back-reference to an earlier node's id.
	TagBackref = 40602

	// tagTimeRFC3339 is standard CBOR tag 0 (date/time string).
	tagTimeRFC3339 = 0

	// tagTimeEpoch is standard CBOR tag 1 (epoch-based date/time).
	tagTimeEpoch = 1
)

// Encoder serializes one object graph. It keeps an instance → node id
// table so each distinct canonical entity is emitted once and
// back-referenced thereafter. One Encoder per document, one document
// per session.
type Encoder struct {
	session *reconcile.Session
	ids     map[entity.Entity]int64
	next    int64
}

// NewEncoder returns an Encoder bound to an encode session.
func NewEncoder(session *reconcile.Session) *Encoder {
	return &Encoder{
		session: session,
		ids:     make(map[entity.Entity]int64),
	}
}

// Encode serializes value and everything reachable from it into a
// wire document.
func (e *Encoder) Encode(ctx context.Context, value any) ([]byte, error) {
	tree, err := e.walk(ctx, value)
	if err != nil {
		return nil, err
	}
	data, err := codec.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("wire: marshaling document: %w", err)
	}
	return data, nil
}

// walk converts a domain value into its wire tree form, delegating
// entity semantics to the session.
func (e *Encoder) walk(ctx context.Context, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil

	case *reconcile.Placeholder:
		if !v.Resolved() {
			return nil, fmt.Errorf("wire: cannot encode an unresolved placeholder")
		}
		return e.walk(ctx, v.Entity())

	case entity.Entity:
		return e.walkEntity(ctx, v)

	case entitykey.Key:
		// A bare key reference substitutes the record it addresses;
		// a missing record encodes as null.
		resolved, err := e.session.ResolveKey(ctx, v)
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			return nil, nil
		}
		return e.walkEntity(ctx, resolved)

	case time.Time:
		return codec.Tag{Number: tagTimeRFC3339, Content: v.UTC().Format(time.RFC3339Nano)}, nil

	case []byte:
		return v, nil

	case []any:
		elements := make([]any, len(v))
		for i, element := range v {
			walked, err := e.walk(ctx, element)
			if err != nil {
				return nil, err
			}
			elements[i] = walked
		}
		return elements, nil

	case map[string]any:
		// Sorted iteration keeps node-id assignment — and therefore
		// the document bytes — deterministic.
		fields := make(map[string]any, len(v))
		for _, name := range sortedNames(v) {
			walked, err := e.walk(ctx, v[name])
			if err != nil {
				return nil, err
			}
			fields[name] = walked
		}
		return fields, nil

	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil

	default:
		return nil, fmt.Errorf("wire: unsupported value type %T", value)
	}
}

// walkEntity emits an entity as a node on first encounter and a
// back-reference afterward. Canonicalization runs first, so two store
// instances of the same record share one node.
func (e *Encoder) walkEntity(ctx context.Context, instance entity.Entity) (any, error) {
	canonical, err := e.session.Canonicalize(ctx, instance)
	if err != nil {
		return nil, err
	}

	if id, seen := e.ids[canonical]; seen {
		return codec.Tag{Number: TagBackref, Content: id}, nil
	}

	// Assign the id before walking fields: a cycle back to this
	// entity must emit a back-reference, not recurse forever.
	id := e.next
	e.next++
	e.ids[canonical] = id

	fields, err := e.session.EncodeFields(ctx, canonical)
	if err != nil {
		return nil, err
	}
	wireFields := make(map[string]any, len(fields))
	for _, name := range sortedNames(fields) {
		walked, err := e.walk(ctx, fields[name])
		if err != nil {
			return nil, err
		}
		wireFields[name] = walked
	}

	return codec.Tag{
		Number:  TagNode,
		Content: []any{id, canonical.EntityKind(), wireFields},
	}, nil
}

// Decoder deserializes one wire document, deferring entity hydration
// to its session. One Decoder per document, one document per session.
type Decoder struct {
	session *reconcile.Session
	table   map[int64]*reconcile.Placeholder
}

// NewDecoder returns a Decoder bound to a decode session.
func NewDecoder(session *reconcile.Session) *Decoder {
	return &Decoder{
		session: session,
		table:   make(map[int64]*reconcile.Placeholder),
	}
}

// Decode deserializes a wire document, performs the session's single
// batch fetch, transforms every placeholder, and returns the fully
// hydrated root value. On any failure no partial graph is returned.
func (d *Decoder) Decode(ctx context.Context, data []byte) (any, error) {
	var tree any
	if err := codec.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("wire: unmarshaling document: %w", err)
	}

	root, err := d.walk(tree)
	if err != nil {
		return nil, err
	}

	if err := d.session.Finalize(ctx); err != nil {
		return nil, err
	}

	return substitute(root), nil
}

// walk converts a decoded CBOR tree into decoded domain values,
// registering entity stubs with the session as nodes appear.
func (d *Decoder) walk(value any) (any, error) {
	switch v := value.(type) {
	case codec.Tag:
		return d.walkTag(v)

	case []any:
		for i, element := range v {
			walked, err := d.walk(element)
			if err != nil {
				return nil, err
			}
			v[i] = walked
		}
		return v, nil

	case map[string]any:
		for name, element := range v {
			walked, err := d.walk(element)
			if err != nil {
				return nil, err
			}
			v[name] = walked
		}
		return v, nil

	default:
		return v, nil
	}
}

// walkTag dispatches the document's tagged forms.
func (d *Decoder) walkTag(tag codec.Tag) (any, error) {
	switch tag.Number {
	case TagNode:
		content, ok := tag.Content.([]any)
		if !ok || len(content) != 3 {
			return nil, fmt.Errorf("wire: malformed entity node: %v", tag.Content)
		}
		id, ok := asInt64(content[0])
		if !ok {
			return nil, fmt.Errorf("wire: entity node id is %T", content[0])
		}
		kind, ok := content[1].(string)
		if !ok {
			return nil, fmt.Errorf("wire: entity node kind is %T", content[1])
		}
		rawFields, ok := content[2].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("wire: entity node fields are %T", content[2])
		}
		if _, exists := d.table[id]; exists {
			return nil, fmt.Errorf("wire: duplicate entity node id %d", id)
		}

		// Register the handle before decoding fields: a cyclic
		// back-reference inside them must find it.
		placeholder := reconcile.NewPlaceholder()
		d.table[id] = placeholder

		wireFields := make(map[string]any, len(rawFields))
		for name, element := range rawFields {
			walked, err := d.walk(element)
			if err != nil {
				return nil, err
			}
			wireFields[name] = walked
		}
		if err := d.session.RegisterNode(placeholder, kind, wireFields); err != nil {
			return nil, err
		}
		return placeholder, nil

	case TagBackref:
		id, ok := asInt64(tag.Content)
		if !ok {
			return nil, fmt.Errorf("wire: back-reference id is %T", tag.Content)
		}
		placeholder, exists := d.table[id]
		if !exists {
			return nil, fmt.Errorf("wire: back-reference to unknown node id %d", id)
		}
		return placeholder, nil

	case tagTimeRFC3339:
		text, ok := tag.Content.(string)
		if !ok {
			return nil, fmt.Errorf("wire: time tag content is %T", tag.Content)
		}
		parsed, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return nil, fmt.Errorf("wire: malformed time %q: %w", text, err)
		}
		return parsed, nil

	case tagTimeEpoch:
		switch seconds := tag.Content.(type) {
		case int64:
			return time.Unix(seconds, 0).UTC(), nil
		case float64:
			return time.UnixMilli(int64(seconds * 1000)).UTC(), nil
		default:
			return nil, fmt.Errorf("wire: epoch time tag content is %T", tag.Content)
		}

	default:
		return nil, fmt.Errorf("wire: unknown tag %d", tag.Number)
	}
}

// asInt64 normalizes the integer types a decoded CBOR id can arrive
// as.
func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// sortedNames returns a map's keys in sorted order.
func sortedNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// substitute replaces resolved placeholders with their final
// instances throughout the returned graph, so callers never see a
// Placeholder. Entity fields were already resolved by the session's
// transform; this pass covers plain containers and the root itself.
func substitute(value any) any {
	switch v := value.(type) {
	case *reconcile.Placeholder:
		if v.Resolved() {
			return v.Entity()
		}
		return v
	case []any:
		for i, element := range v {
			v[i] = substitute(element)
		}
		return v
	case map[string]any:
		for name, element := range v {
			v[name] = substitute(element)
		}
		return v
	default:
		return value
	}
}
