package store

import (
	"reflect"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	m := New()
	m.Put("k1", []string{"a", "b"})

	got, ok := m.Get("k1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	m := New()
	if _, ok := m.Get("missing"); ok {
		t.Fatal("expected missing key to report not-found")
	}
}

func TestPutOverwrites(t *testing.T) {
	m := New()
	m.Put("k1", []string{"v1"})
	m.Put("k1", []string{"v2"})

	got, _ := m.Get("k1")
	if !reflect.DeepEqual(got, []string{"v2"}) {
		t.Fatalf("expected overwrite, got %+v", got)
	}
}

func TestDelete(t *testing.T) {
	m := New()
	m.Put("k1", []string{"v1"})
	m.Delete("k1")

	if _, ok := m.Get("k1"); ok {
		t.Fatal("expected key to be gone after delete")
	}
	// deleting again is a no-op, not an error
	m.Delete("k1")
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	m := New()
	m.Put("k1", []string{"v1"})

	got, _ := m.Get("k1")
	got[0] = "mutated"

	fresh, _ := m.Get("k1")
	if fresh[0] != "v1" {
		t.Fatalf("mutating the returned slice leaked into storage: %+v", fresh)
	}
}

func TestKeysAndLen(t *testing.T) {
	m := New()
	m.Put("k1", []string{"v1"})
	m.Put("k2", []string{"v2"})

	if m.Len() != 2 {
		t.Fatalf("expected len 2, got %d", m.Len())
	}
	keys := m.Keys()
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	if !seen["k1"] || !seen["k2"] {
		t.Fatalf("unexpected keys: %+v", keys)
	}
}
