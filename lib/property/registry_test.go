// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bureau-foundation/storegraph/lib/entitykey"
)

func TestUnregisteredKindPassesThrough(t *testing.T) {
	registry := New()

	encoded, err := registry.Encode("anything", KindNone, "value")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encoded != "value" {
		t.Errorf("Encode changed a pass-through value: %v", encoded)
	}

	decoded, err := registry.Decode("anything", Kind("custom"), int64(7))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != int64(7) {
		t.Errorf("Decode changed a pass-through value: %v", decoded)
	}
}

func TestLastRegistrationWins(t *testing.T) {
	registry := New()
	registry.RegisterDecoder(Kind("custom"), func(field string, value any) (any, error) {
		return "first", nil
	})
	registry.RegisterDecoder(Kind("custom"), func(field string, value any) (any, error) {
		return "second", nil
	})

	decoded, err := registry.Decode("field", Kind("custom"), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != "second" {
		t.Errorf("got %v, want the last-registered decoder's result", decoded)
	}
}

func TestDecodeFailureWrapsValueCodecError(t *testing.T) {
	registry := New()
	cause := fmt.Errorf("boom")
	registry.RegisterDecoder(Kind("custom"), func(field string, value any) (any, error) {
		return nil, cause
	})

	_, err := registry.Decode("age", Kind("custom"), "x")
	if err == nil {
		t.Fatal("Decode succeeded, want error")
	}
	var codecErr *ValueCodecError
	if !errors.As(err, &codecErr) {
		t.Fatalf("error is %T, want *ValueCodecError", err)
	}
	if codecErr.Field != "age" || codecErr.Kind != Kind("custom") {
		t.Errorf("error context: %+v", codecErr)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wrapped")
	}
}

func TestKeyCodec(t *testing.T) {
	registry := Default()
	key, err := entitykey.ForName("person", "alice")
	if err != nil {
		t.Fatalf("ForName: %v", err)
	}

	encoded, err := registry.Encode("friend", KindKey, key)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	token, ok := encoded.(string)
	if !ok || token == "" {
		t.Fatalf("encoded key: got %T %v, want non-empty token string", encoded, encoded)
	}

	decoded, err := registry.Decode("friend", KindKey, token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != key {
		t.Errorf("key roundtrip: got %v, want %v", decoded, key)
	}
}

func TestKeyCodecAbsentReference(t *testing.T) {
	registry := Default()

	encoded, err := registry.Encode("friend", KindKey, entitykey.Key{})
	if err != nil {
		t.Fatalf("Encode zero key: %v", err)
	}
	if encoded != nil {
		t.Errorf("zero key encoded to %v, want nil", encoded)
	}

	decoded, err := registry.Decode("friend", KindKey, nil)
	if err != nil {
		t.Fatalf("Decode nil: %v", err)
	}
	if decoded != nil {
		t.Errorf("nil reference decoded to %v, want nil", decoded)
	}

	decoded, err = registry.Decode("friend", KindKey, "")
	if err != nil {
		t.Fatalf("Decode empty token: %v", err)
	}
	if decoded != nil {
		t.Errorf("empty token decoded to %v, want nil", decoded)
	}
}

func TestDateCodecStripsTimeOfDay(t *testing.T) {
	registry := Default()
	stamp := time.Date(2024, time.March, 5, 13, 45, 30, 0, time.UTC)

	decoded, err := registry.Decode("birthday", KindDate, stamp)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	if !decoded.(time.Time).Equal(want) {
		t.Errorf("got %v, want %v", decoded, want)
	}

	encoded, err := registry.Encode("birthday", KindDate, want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !encoded.(time.Time).Equal(want) {
		t.Errorf("encode: got %v, want %v", encoded, want)
	}
}

func TestTimeKindRejectsEncode(t *testing.T) {
	registry := Default()
	_, err := registry.Encode("alarm", KindTime, time.Now())
	if err == nil {
		t.Fatal("encoding a bare time-of-day succeeded, want error")
	}
	var codecErr *ValueCodecError
	if !errors.As(err, &codecErr) {
		t.Fatalf("error is %T, want *ValueCodecError", err)
	}
}

func TestFloatCodecWidensIntegers(t *testing.T) {
	registry := Default()

	decoded, err := registry.Decode("ratio", KindFloat, int64(3))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != float64(3) {
		t.Errorf("got %v (%T), want 3.0", decoded, decoded)
	}

	decoded, err = registry.Decode("ratio", KindFloat, 2.5)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != 2.5 {
		t.Errorf("got %v, want 2.5 unchanged", decoded)
	}
}

func TestIntCodecNarrowsIntegralFloats(t *testing.T) {
	registry := Default()

	// 3.0 has no mantissa: convert to the integral type.
	decoded, err := registry.Decode("age", KindInt, 3.0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != int64(3) {
		t.Errorf("got %v (%T), want int64(3)", decoded, decoded)
	}

	// 3.5 has a mantissa: leave it alone.
	decoded, err = registry.Decode("age", KindInt, 3.5)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != 3.5 {
		t.Errorf("got %v (%T), want 3.5 unchanged", decoded, decoded)
	}

	// Already integral: pass through.
	decoded, err = registry.Decode("age", KindInt, int64(9))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != int64(9) {
		t.Errorf("got %v (%T), want int64(9)", decoded, decoded)
	}
}
