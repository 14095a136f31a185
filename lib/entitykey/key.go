// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entitykey

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/bureau-foundation/storegraph/lib/codec"
)

// Key addresses a single record in the external store: an entity kind
// plus either a string name or a numeric ID. The zero value is the
// absent key (record not yet persisted).
//
// Key is a comparable value type. Equality is structural: two Keys
// compare equal exactly when kind, name, and ID all match, which makes
// Key usable directly as a Go map key for identity caches and fetch
// plans.
type Key struct {
	kind string
	name string
	id   int64
}

// ForName constructs a Key addressing the record of the given kind by
// string name.
func ForName(kind, name string) (Key, error) {
	if kind == "" {
		return Key{}, fmt.Errorf("entitykey: kind is empty")
	}
	if name == "" {
		return Key{}, fmt.Errorf("entitykey: name is empty for kind %q", kind)
	}
	return Key{kind: kind, name: name}, nil
}

// ForID constructs a Key addressing the record of the given kind by
// numeric ID.
func ForID(kind string, id int64) (Key, error) {
	if kind == "" {
		return Key{}, fmt.Errorf("entitykey: kind is empty")
	}
	if id == 0 {
		return Key{}, fmt.Errorf("entitykey: id is zero for kind %q", kind)
	}
	return Key{kind: kind, id: id}, nil
}

// Kind returns the entity kind this key addresses. Empty for the zero
// Key.
func (k Key) Kind() string { return k.kind }

// Name returns the string name, or "" when the key is numeric or zero.
func (k Key) Name() string { return k.name }

// ID returns the numeric ID, or 0 when the key is named or zero.
func (k Key) ID() int64 { return k.id }

// IsZero reports whether this is the absent key.
func (k Key) IsZero() bool { return k.kind == "" }

// String returns a human-readable form: kind/name or kind/id. The
// zero Key renders as "(no key)". For machine exchange use Token.
func (k Key) String() string {
	switch {
	case k.IsZero():
		return "(no key)"
	case k.name != "":
		return k.kind + "/" + k.name
	default:
		return k.kind + "/" + strconv.FormatInt(k.id, 10)
	}
}

// tokenEncoding is unpadded base64url: tokens must survive URLs,
// filenames, and text-string wire fields unescaped.
var tokenEncoding = base64.RawURLEncoding

// Token returns the portable token for this key: the unpadded
// base64url wrapping of the key's CBOR form ([kind, name-or-id]).
// The zero Key returns "".
func (k Key) Token() string {
	if k.IsZero() {
		return ""
	}
	var ident any = k.name
	if k.name == "" {
		ident = k.id
	}
	data, err := codec.Marshal([]any{k.kind, ident})
	if err != nil {
		// Two strings and an int64 cannot fail deterministic CBOR
		// encoding; reaching this is a codec configuration bug.
		panic("entitykey: token encoding failed: " + err.Error())
	}
	return tokenEncoding.EncodeToString(data)
}

// Parse reconstructs a Key from a portable token produced by Token.
// The empty token parses to the zero Key.
func Parse(token string) (Key, error) {
	if token == "" {
		return Key{}, nil
	}
	data, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return Key{}, fmt.Errorf("entitykey: malformed token %q: %w", token, err)
	}
	var parts []any
	if err := codec.Unmarshal(data, &parts); err != nil {
		return Key{}, fmt.Errorf("entitykey: malformed token %q: %w", token, err)
	}
	if len(parts) != 2 {
		return Key{}, fmt.Errorf("entitykey: malformed token %q: %d elements, expected 2", token, len(parts))
	}
	kind, ok := parts[0].(string)
	if !ok || kind == "" {
		return Key{}, fmt.Errorf("entitykey: malformed token %q: bad kind", token)
	}
	switch ident := parts[1].(type) {
	case string:
		return ForName(kind, ident)
	case int64:
		return ForID(kind, ident)
	case uint64:
		return ForID(kind, int64(ident))
	default:
		return Key{}, fmt.Errorf("entitykey: malformed token %q: identifier is %T", token, parts[1])
	}
}

// MarshalText implements encoding.TextMarshaler. Serializes as the
// portable token; the zero Key marshals as the empty string so that
// optional key fields round-trip cleanly.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.Token()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, the symmetric
// counterpart to MarshalText.
func (k *Key) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
