// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/storegraph/lib/codec"
	"github.com/bureau-foundation/storegraph/lib/descriptor"
	"github.com/bureau-foundation/storegraph/lib/entity"
	"github.com/bureau-foundation/storegraph/lib/entitykey"
	"github.com/bureau-foundation/storegraph/lib/property"
	"github.com/bureau-foundation/storegraph/lib/reconcile"
	"github.com/bureau-foundation/storegraph/lib/store"
)

func newTypes(t *testing.T) *descriptor.Registry {
	t.Helper()
	registry := descriptor.NewRegistry()
	if _, err := registry.Register(&descriptor.Type{
		Kind:    "person",
		New:     func() entity.Entity { return entity.NewDynamic("person") },
		Dynamic: true,
		Fields: []descriptor.Field{
			{Name: "name"},
			{Name: "birthday", Kind: property.KindDate},
			{Name: "friend"},
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return registry
}

// newSession builds a fresh single-use session. Encode and decode
// each need their own.
func newSession(t *testing.T, client store.Client) *reconcile.Session {
	t.Helper()
	session, err := reconcile.NewSession(reconcile.Options{
		Types: newTypes(t),
		Store: client,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session
}

func mustKey(t *testing.T, name string) entitykey.Key {
	t.Helper()
	key, err := entitykey.ForName("person", name)
	if err != nil {
		t.Fatalf("ForName: %v", err)
	}
	return key
}

func newPerson(t *testing.T, key entitykey.Key, name string) *entity.Dynamic {
	t.Helper()
	instance := entity.NewDynamic("person")
	if !key.IsZero() {
		instance.SetEntityKey(key)
	}
	if err := instance.Set("name", name); err != nil {
		t.Fatalf("Set name: %v", err)
	}
	return instance
}

func encode(t *testing.T, client store.Client, value any) []byte {
	t.Helper()
	data, err := NewEncoder(newSession(t, client)).Encode(context.Background(), value)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func decode(t *testing.T, client store.Client, data []byte) any {
	t.Helper()
	root, err := NewDecoder(newSession(t, client)).Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return root
}

func TestRoundTripSingleEntity(t *testing.T) {
	memory := store.NewMemory()
	alice := newPerson(t, mustKey(t, "alice"), "Alice")

	data := encode(t, memory, alice)
	root := decode(t, memory, data)

	hydrated, ok := root.(*entity.Dynamic)
	if !ok {
		t.Fatalf("root is %T, want *entity.Dynamic", root)
	}
	if name, _ := hydrated.Get("name"); name != "Alice" {
		t.Errorf("name = %v", name)
	}
	if hydrated.EntityKey() != alice.EntityKey() {
		t.Errorf("key = %v, want %v", hydrated.EntityKey(), alice.EntityKey())
	}
}

// TestSharedReference: the same keyed entity appearing twice in the
// root produces one node and one back-reference on the wire, and
// decodes to one shared instance.
func TestSharedReference(t *testing.T) {
	memory := store.NewMemory()
	alice := newPerson(t, mustKey(t, "alice"), "Alice")

	data := encode(t, memory, []any{alice, alice})

	nodes, backrefs := countTags(t, data)
	if nodes != 1 {
		t.Errorf("entity nodes on the wire: %d, want 1", nodes)
	}
	if backrefs != 1 {
		t.Errorf("back-references on the wire: %d, want 1", backrefs)
	}

	root := decode(t, memory, data).([]any)
	if len(root) != 2 {
		t.Fatalf("root length %d", len(root))
	}
	if root[0] != root[1] {
		t.Error("shared reference decoded to two distinct instances")
	}
}

// TestDistinctInstancesSameKeyCollapse: two store instances of the
// same record canonicalize to one wire node.
func TestDistinctInstancesSameKeyCollapse(t *testing.T) {
	memory := store.NewMemory()
	key := mustKey(t, "alice")
	first := newPerson(t, key, "Alice")
	second := newPerson(t, key, "Alice (refetched)")

	data := encode(t, memory, []any{first, second})

	nodes, backrefs := countTags(t, data)
	if nodes != 1 || backrefs != 1 {
		t.Errorf("wire shape: %d nodes, %d backrefs, want 1 and 1", nodes, backrefs)
	}

	root := decode(t, memory, data).([]any)
	if root[0] != root[1] {
		t.Error("same-key instances decoded to distinct instances")
	}
}

func TestCyclicGraphRoundTrip(t *testing.T) {
	memory := store.NewMemory()
	alice := newPerson(t, entitykey.Key{}, "Alice")
	bob := newPerson(t, entitykey.Key{}, "Bob")
	if err := alice.Set("friend", bob); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := bob.Set("friend", alice); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data := encode(t, memory, alice)
	root := decode(t, memory, data)

	hydratedAlice := root.(*entity.Dynamic)
	friend, _ := hydratedAlice.Get("friend")
	hydratedBob, ok := friend.(*entity.Dynamic)
	if !ok {
		t.Fatalf("friend is %T", friend)
	}
	back, _ := hydratedBob.Get("friend")
	if back != entity.Entity(hydratedAlice) {
		t.Error("cycle not restored: bob.friend is not alice")
	}
}

func TestDeterministicDocuments(t *testing.T) {
	memory := store.NewMemory()
	build := func() any {
		alice := newPerson(t, mustKey(t, "alice"), "Alice")
		bob := newPerson(t, entitykey.Key{}, "Bob")
		_ = bob.Set("friend", alice)
		return map[string]any{"b": bob, "a": alice, "zz": int64(1)}
	}

	first := encode(t, memory, build())
	second := encode(t, memory, build())
	if !bytes.Equal(first, second) {
		t.Error("two encodes of the same graph produced different bytes")
	}
}

// TestBareKeyReference: a Key value in the graph substitutes the
// record it addresses; a dangling key encodes as null.
func TestBareKeyReference(t *testing.T) {
	memory := store.NewMemory()
	key := mustKey(t, "alice")
	if err := memory.Put(key, map[string]any{"name": "Alice"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ghost := mustKey(t, "ghost")

	data := encode(t, memory, []any{key, ghost})
	root := decode(t, memory, data).([]any)

	hydrated, ok := root[0].(*entity.Dynamic)
	if !ok {
		t.Fatalf("resolved reference is %T", root[0])
	}
	if name, _ := hydrated.Get("name"); name != "Alice" {
		t.Errorf("name = %v", name)
	}
	if root[1] != nil {
		t.Errorf("dangling reference decoded to %v, want nil", root[1])
	}
}

func TestTimeRoundTrip(t *testing.T) {
	memory := store.NewMemory()
	stamp := time.Date(2024, time.March, 5, 13, 45, 30, 123456789, time.UTC)

	data := encode(t, memory, map[string]any{"at": stamp})
	root := decode(t, memory, data).(map[string]any)

	decoded, ok := root["at"].(time.Time)
	if !ok {
		t.Fatalf("at is %T", root["at"])
	}
	if !decoded.Equal(stamp) {
		t.Errorf("got %v, want %v", decoded, stamp)
	}
}

// TestDecodeMergesStoredRecord: a hand-built document (the decoder
// does not require our encoder's output) naming a stored key hydrates
// with stored fields underneath the document's fields.
func TestDecodeMergesStoredRecord(t *testing.T) {
	memory := store.NewMemory()
	key := mustKey(t, "alice")
	if err := memory.Put(key, map[string]any{"name": "Original", "nickname": "Ally"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	document, err := codec.Marshal(codec.Tag{
		Number: TagNode,
		Content: []any{int64(0), "person", map[string]any{
			"_key": key.Token(),
			"name": "Alice",
		}},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	root := decode(t, memory, document)
	hydrated := root.(*entity.Dynamic)
	if name, _ := hydrated.Get("name"); name != "Alice" {
		t.Errorf("name = %v, want the document's value", name)
	}
	if nickname, _ := hydrated.Get("nickname"); nickname != "Ally" {
		t.Errorf("nickname = %v, want the stored value", nickname)
	}
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	memory := store.NewMemory()

	cases := []struct {
		label string
		tree  any
	}{
		{"unknown tag", codec.Tag{Number: 999, Content: "x"}},
		{"short node", codec.Tag{Number: TagNode, Content: []any{int64(0), "person"}}},
		{"duplicate node id", []any{
			codec.Tag{Number: TagNode, Content: []any{int64(0), "person", map[string]any{}}},
			codec.Tag{Number: TagNode, Content: []any{int64(0), "person", map[string]any{}}},
		}},
		{"dangling backref", codec.Tag{Number: TagBackref, Content: int64(7)}},
		{"unregistered kind", codec.Tag{Number: TagNode, Content: []any{int64(0), "ghost", map[string]any{}}}},
	}
	for _, c := range cases {
		data, err := codec.Marshal(c.tree)
		if err != nil {
			t.Fatalf("%s: Marshal: %v", c.label, err)
		}
		if _, err := NewDecoder(newSession(t, memory)).Decode(context.Background(), data); err == nil {
			t.Errorf("%s: Decode succeeded, want error", c.label)
		}
	}
}

func TestEncodeRejectsUnsupportedValues(t *testing.T) {
	memory := store.NewMemory()
	encoder := NewEncoder(newSession(t, memory))
	if _, err := encoder.Encode(context.Background(), struct{ X int }{1}); err == nil {
		t.Error("encoding an arbitrary struct succeeded, want error")
	}
}

// countTags decodes the raw document and counts entity nodes and
// back-references.
func countTags(t *testing.T, data []byte) (nodes, backrefs int) {
	t.Helper()
	var tree any
	if err := codec.Unmarshal(data, &tree); err != nil {
		t.Fatalf("Unmarshal raw document: %v", err)
	}
	var visit func(any)
	visit = func(value any) {
		switch v := value.(type) {
		case codec.Tag:
			switch v.Number {
			case TagNode:
				nodes++
			case TagBackref:
				backrefs++
			}
			visit(v.Content)
		case []any:
			for _, element := range v {
				visit(element)
			}
		case map[string]any:
			for _, element := range v {
				visit(element)
			}
		}
	}
	visit(tree)
	return nodes, backrefs
}
