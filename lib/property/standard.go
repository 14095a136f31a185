// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/storegraph/lib/entitykey"
)

// Default returns a registry preloaded with the standard codecs for
// the built-in kinds. Callers may override individual kinds afterward
// (last registration wins).
func Default() *Registry {
	r := New()

	r.RegisterEncoder(KindKey, encodeKey)
	r.RegisterDecoder(KindKey, decodeKey)

	r.RegisterEncoder(KindDate, encodeDate)
	r.RegisterDecoder(KindDate, decodeDate)

	r.RegisterEncoder(KindTime, encodeTime)

	r.RegisterDecoder(KindFloat, decodeFloat)
	r.RegisterDecoder(KindInt, decodeInt)

	return r
}

// encodeKey turns a key reference into its portable token. A zero or
// nil key encodes as nil (absent reference).
func encodeKey(field string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case entitykey.Key:
		if v.IsZero() {
			return nil, nil
		}
		return v.Token(), nil
	case string:
		// Already a token (round-tripped value).
		return v, nil
	default:
		return nil, fmt.Errorf("cannot encode %T as a key reference", value)
	}
}

// decodeKey turns a portable token back into a key. Nil and the empty
// token decode to nil (absent reference).
func decodeKey(field string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case entitykey.Key:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		key, err := entitykey.Parse(v)
		if err != nil {
			return nil, err
		}
		return key, nil
	default:
		return nil, fmt.Errorf("cannot decode %T as a key reference", value)
	}
}

// encodeDate normalizes a calendar date to a midnight UTC timestamp,
// the only shape the wire's timestamp type can carry a date in.
func encodeDate(field string, value any) (any, error) {
	t, ok := value.(time.Time)
	if !ok {
		return value, nil
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// decodeDate strips the synthetic time-of-day off a date that
// traveled as a timestamp.
func decodeDate(field string, value any) (any, error) {
	t, ok := value.(time.Time)
	if !ok {
		return value, nil
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// encodeTime rejects bare time-of-day fields: the wire's timestamp
// type needs a date and no correct one exists to supply.
func encodeTime(field string, value any) (any, error) {
	return nil, fmt.Errorf("bare time-of-day fields are not encodable")
}

// decodeFloat widens integral wire values for float fields. CBOR's
// smallest-encoding rule turns 3.0 into the integer 3 on the wire;
// the store expects a float back.
func decodeFloat(field string, value any) (any, error) {
	switch v := value.(type) {
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return value, nil
	}
}

// decodeInt narrows a float with no fractional part back to int64 for
// integer fields. A float with a mantissa is left unchanged — the
// store will reject it with a clearer error than this layer could
// synthesize.
func decodeInt(field string, value any) (any, error) {
	v, ok := value.(float64)
	if !ok {
		return value, nil
	}
	truncated := int64(v)
	if float64(truncated) == v {
		return truncated, nil
	}
	return value, nil
}
