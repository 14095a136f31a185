// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/storegraph/lib/descriptor"
	"github.com/bureau-foundation/storegraph/lib/entity"
	"github.com/bureau-foundation/storegraph/lib/entitykey"
	"github.com/bureau-foundation/storegraph/lib/property"
	"github.com/bureau-foundation/storegraph/lib/store"
)

// KeyField is the reserved attribute carrying an entity's portable
// key token on the wire. It rides inside the node's field map, which
// is why declared field names may not start with an underscore.
const KeyField = "_key"

// Options configures a Session.
type Options struct {
	// Types is the process-wide type registry. Required.
	Types *descriptor.Registry

	// Properties is the per-kind value codec registry. Defaults to
	// property.Default().
	Properties *property.Registry

	// Store is the entity store client. Required.
	Store store.Client

	// Logger receives operational messages (batch fetch size).
	// Defaults to a no-op logger.
	Logger *slog.Logger

	// StrictReferences surfaces UnresolvedReferenceError when a
	// decoded entity's key is missing from the batch fetch results.
	// The default (false) materializes such entities from their
	// decoded fields alone — optional-reference semantics.
	StrictReferences bool
}

// Session is the reconciliation engine for exactly one encode or one
// decode operation. It owns the operation's identity cache and stub
// registry; neither survives the session, and a Session must never be
// shared between concurrent operations. All methods are synchronous;
// the only blocking calls are the store fetches (ResolveKey and the
// batch fetch inside Finalize).
type Session struct {
	types  *descriptor.Registry
	props  *property.Registry
	store  store.Client
	logger *slog.Logger
	strict bool

	// identity and stubs are created lazily on first use, matching
	// the session life cycle of the codec context they shadow.
	identity *identityCache
	stubs    *stubRegistry
}

// NewSession validates opts and returns a fresh Session.
func NewSession(opts Options) (*Session, error) {
	if opts.Types == nil {
		return nil, fmt.Errorf("reconcile: Options.Types is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("reconcile: Options.Store is required")
	}
	props := opts.Properties
	if props == nil {
		props = property.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		types:  opts.Types,
		props:  props,
		store:  opts.Store,
		logger: logger,
		strict: opts.StrictReferences,
	}, nil
}

// Encode path.

// Canonicalize returns the canonical instance for e within this
// encode session. Entities without a persisted key pass through
// untouched — there is nothing to deduplicate by. For keyed entities
// the first instance seen becomes canonical and every later instance
// with the same key collapses onto it, so the wire codec's reference
// table emits a back-reference instead of a second serialization.
// Callers must encode the returned instance, not e.
func (s *Session) Canonicalize(ctx context.Context, e entity.Entity) (entity.Entity, error) {
	key := e.EntityKey()
	if key.IsZero() {
		return e, nil
	}
	t, ok := s.types.Lookup(e.EntityKind())
	if !ok {
		return nil, &descriptor.UnsupportedTypeError{Kind: e.EntityKind(), Reason: "kind not registered"}
	}
	if s.identity == nil {
		s.identity = newIdentityCache()
	}
	return s.identity.getOrFetch(ctx, t, key, e, s.fetchOne)
}

// ResolveKey turns a bare key reference into the canonical instance,
// fetching the record if this session has not seen the key yet. A
// store miss returns (nil, nil): the encoder writes a null reference
// rather than failing the operation.
func (s *Session) ResolveKey(ctx context.Context, key entitykey.Key) (entity.Entity, error) {
	if key.IsZero() {
		return nil, nil
	}
	t, ok := s.types.Lookup(key.Kind())
	if !ok {
		return nil, &descriptor.UnsupportedTypeError{Kind: key.Kind(), Reason: "kind not registered"}
	}
	if s.identity == nil {
		s.identity = newIdentityCache()
	}
	return s.identity.getOrFetch(ctx, t, key, nil, s.fetchOne)
}

// EncodeFields classifies and normalizes e's fields for the wire:
// encodable declared fields (plus undeclared fields of Dynamic kinds)
// run through the property codecs, and the reserved KeyField carries
// the portable key token (nil for unpersisted entities).
func (s *Session) EncodeFields(ctx context.Context, e entity.Entity) (map[string]any, error) {
	t, ok := s.types.Lookup(e.EntityKind())
	if !ok {
		return nil, &descriptor.UnsupportedTypeError{Kind: e.EntityKind(), Reason: "kind not registered"}
	}

	key := e.EntityKey()
	fields := make(map[string]any)

	for _, field := range t.EncodableFields() {
		value, _ := e.Get(field.Name)
		encoded, err := s.encodeField(field, value)
		if err != nil {
			return nil, fmt.Errorf("reconcile: encoding %s (%s): %w", t.Kind, key, err)
		}
		fields[field.Name] = encoded
	}

	// Dynamic kinds carry their undeclared fields as-is. Internal
	// (underscore-prefixed) fields never cross the wire.
	if t.Dynamic {
		if dynamic, ok := e.(*entity.Dynamic); ok {
			for _, name := range dynamic.FieldNames() {
				if strings.HasPrefix(name, "_") {
					continue
				}
				if _, declared := t.Field(name); declared {
					continue
				}
				value, _ := dynamic.Get(name)
				fields[name] = value
			}
		}
	}

	if key.IsZero() {
		fields[KeyField] = nil
	} else {
		fields[KeyField] = key.Token()
	}
	return fields, nil
}

// encodeField applies the property encoder to one field value,
// per-element for repeated fields.
func (s *Session) encodeField(field descriptor.Field, value any) (any, error) {
	if !field.Repeated {
		return s.props.Encode(field.Name, field.Kind, value)
	}

	if value == nil {
		return []any{}, nil
	}
	elements, ok := value.([]any)
	if !ok {
		if field.Kind == property.KindNone {
			return value, nil
		}
		return nil, &property.ValueCodecError{
			Field: field.Name,
			Kind:  field.Kind,
			Err:   fmt.Errorf("repeated field holds %T, expected []any", value),
		}
	}
	encoded := make([]any, len(elements))
	for i, element := range elements {
		converted, err := s.props.Encode(field.Name, field.Kind, element)
		if err != nil {
			return nil, err
		}
		encoded[i] = converted
	}
	return encoded, nil
}

// fetchOne is the identity cache's single-key fetch path.
func (s *Session) fetchOne(ctx context.Context, t *descriptor.Type, key entitykey.Key) (entity.Entity, error) {
	record, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return materialize(t, record)
}

// Decode path.

// DecodeNode is the wire codec's per-typed-node hook. It decodes and
// classifies the node's field values, registers a stub, and returns a
// Placeholder immediately so sibling and parent structures (and
// back-references) can hold the entity before it exists. The
// placeholder stays empty until Finalize or Transform runs.
func (s *Session) DecodeNode(kind string, wireFields map[string]any) (*Placeholder, error) {
	placeholder := NewPlaceholder()
	if err := s.RegisterNode(placeholder, kind, wireFields); err != nil {
		return nil, err
	}
	return placeholder, nil
}

// RegisterNode is DecodeNode for a caller-created placeholder. The
// wire codec uses it when the handle had to exist before the node's
// fields were decoded (cyclic back-references).
func (s *Session) RegisterNode(placeholder *Placeholder, kind string, wireFields map[string]any) error {
	t, ok := s.types.Lookup(kind)
	if !ok {
		return &descriptor.UnsupportedTypeError{Kind: kind, Reason: "kind not registered"}
	}

	var key entitykey.Key
	if raw, present := wireFields[KeyField]; present {
		if token, isString := raw.(string); isString && token != "" {
			parsed, err := entitykey.Parse(token)
			if err != nil {
				return fmt.Errorf("reconcile: decoding %s node: %w", kind, err)
			}
			key = parsed
		}
	}

	decoded := make(map[string]any)
	for name, value := range wireFields {
		if strings.HasPrefix(name, "_") {
			continue
		}
		declared, isDeclared := t.Field(name)
		if isDeclared {
			// Computed and discriminator fields are not decodable:
			// writing them back is meaningless or rejected by the
			// store, and the type tag already identifies the kind.
			if !t.Decodable(name) {
				continue
			}
			converted, err := s.decodeField(declared, value)
			if err != nil {
				return fmt.Errorf("reconcile: decoding %s (%s): %w", kind, key, err)
			}
			decoded[name] = converted
			continue
		}
		if t.Dynamic {
			decoded[name] = value
		}
	}

	if s.stubs == nil {
		s.stubs = newStubRegistry()
	}
	return s.stubs.register(placeholder, t, decoded, key)
}

// decodeField applies the property decoder to one wire value,
// per-element for repeated fields. An absent or empty repeated value
// decodes to an empty (non-nil) slice.
func (s *Session) decodeField(field descriptor.Field, value any) (any, error) {
	if !field.Repeated {
		return s.props.Decode(field.Name, field.Kind, value)
	}

	if value == nil {
		return []any{}, nil
	}
	elements, ok := value.([]any)
	if !ok {
		if field.Kind == property.KindNone {
			return value, nil
		}
		return nil, &property.ValueCodecError{
			Field: field.Name,
			Kind:  field.Kind,
			Err:   fmt.Errorf("repeated field holds %T, expected []any", value),
		}
	}
	if len(elements) == 0 {
		return []any{}, nil
	}
	decoded := make([]any, len(elements))
	for i, element := range elements {
		converted, err := s.props.Decode(field.Name, field.Kind, element)
		if err != nil {
			return nil, err
		}
		decoded[i] = converted
	}
	return decoded, nil
}

// Finalize completes a decode operation: one batch fetch for every
// distinct key the graph mentioned, then a transform sweep turning
// every remaining placeholder into its final typed instance. A store
// failure aborts the whole decode; no partial results survive. A
// session that decoded no entities finalizes as a no-op.
func (s *Session) Finalize(ctx context.Context) error {
	if s.stubs == nil {
		return nil
	}
	if err := s.stubs.fetchAll(ctx, s.store); err != nil {
		return err
	}
	s.logger.Debug("batch fetch complete",
		"keys", len(s.stubs.fetchPlan),
		"records", len(s.stubs.fetched),
		"stubs", len(s.stubs.entries),
	)
	for _, entry := range s.stubs.entries {
		if entry.state != statePending {
			continue
		}
		if err := s.transformEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

// Transform resolves a single placeholder ahead of the full sweep,
// running the batch fetch first if it has not happened yet.
// Transforming an already-resolved placeholder is a no-op success:
// nested resolution and a later Finalize sweep may both reach a
// shared entity.
func (s *Session) Transform(ctx context.Context, p *Placeholder) error {
	if s.stubs == nil {
		return nil
	}
	if err := s.stubs.fetchAll(ctx, s.store); err != nil {
		return err
	}
	entry, ok := s.stubs.lookup(p)
	if !ok {
		return nil
	}
	return s.transformEntry(entry)
}

// transformEntry materializes one pending entity. The placeholder's
// handle is assigned before field population so that cyclic and
// shared references resolve to the same instance mid-flight; by the
// time the outermost transform returns, every field is in place.
//
// Field population order implements the overlay law: stored fields
// first, decoded fields second, so the sender's decoded values always
// win while stored-only fields survive.
func (s *Session) transformEntry(entry *pendingEntry) error {
	s.stubs.begin(entry)

	instance := entry.typ.New()
	if !entry.key.IsZero() {
		instance.SetEntityKey(entry.key)
	}
	entry.placeholder.entity = instance

	if !entry.key.IsZero() {
		record := s.stubs.record(entry.key)
		if record == nil && s.strict {
			return &UnresolvedReferenceError{Key: entry.key}
		}
		if record != nil {
			if err := setRecordFields(entry.typ, instance, record); err != nil {
				return fmt.Errorf("reconcile: transform %s (%s): %w", entry.typ.Kind, entry.key, err)
			}
		}
	}

	for name, value := range entry.fields {
		resolved, err := s.resolveValue(value)
		if err != nil {
			return fmt.Errorf("reconcile: transform %s (%s): field %q: %w", entry.typ.Kind, entry.key, name, err)
		}
		if err := instance.Set(name, resolved); err != nil {
			return fmt.Errorf("reconcile: transform %s (%s): field %q: %w", entry.typ.Kind, entry.key, name, err)
		}
	}

	s.stubs.finish(entry)
	return nil
}

// resolveValue replaces placeholders inside a decoded field value
// with their final instances, depth-first, recursing through slices
// and maps. A placeholder mid-transform (a cycle) already has its
// handle assigned and resolves to that instance directly.
func (s *Session) resolveValue(value any) (any, error) {
	switch v := value.(type) {
	case *Placeholder:
		if entry, pending := s.stubs.lookup(v); pending {
			if err := s.transformEntry(entry); err != nil {
				return nil, err
			}
		}
		if !v.Resolved() {
			return nil, fmt.Errorf("placeholder was never registered with this session")
		}
		return v.Entity(), nil
	case []any:
		for i, element := range v {
			resolved, err := s.resolveValue(element)
			if err != nil {
				return nil, err
			}
			v[i] = resolved
		}
		return v, nil
	case map[string]any:
		for name, element := range v {
			resolved, err := s.resolveValue(element)
			if err != nil {
				return nil, err
			}
			v[name] = resolved
		}
		return v, nil
	default:
		return value, nil
	}
}

// materialize builds a typed instance from a fetched record: declared
// settable fields plus, for Dynamic kinds, everything else the record
// carries.
func materialize(t *descriptor.Type, record *store.Record) (entity.Entity, error) {
	instance := t.New()
	instance.SetEntityKey(record.Key)
	if err := setRecordFields(t, instance, record); err != nil {
		return nil, fmt.Errorf("reconcile: materializing %s (%s): %w", t.Kind, record.Key, err)
	}
	return instance, nil
}

// setRecordFields copies a fetched record's field values onto an
// instance, honoring the classification: computed fields are never
// written, internal fields are skipped, undeclared fields land only
// on Dynamic kinds.
func setRecordFields(t *descriptor.Type, instance entity.Entity, record *store.Record) error {
	for name, value := range record.Fields {
		if strings.HasPrefix(name, "_") {
			continue
		}
		declared, isDeclared := t.Field(name)
		if isDeclared {
			if declared.Computed {
				continue
			}
		} else if !t.Dynamic {
			continue
		}
		if err := instance.Set(name, value); err != nil {
			return fmt.Errorf("stored field %q: %w", name, err)
		}
	}
	return nil
}
