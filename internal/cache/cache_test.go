package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryGetMiss(t *testing.T) {
	m := NewMemory(10, time.Minute)
	_, ok, err := m.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestMemorySetGet(t *testing.T) {
	m := NewMemory(10, time.Minute)
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("value")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, ok, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != "value" {
		t.Errorf("expected %q, got %q", "value", got)
	}
}

func TestMemoryEmptyValueIsPresent(t *testing.T) {
	m := NewMemory(10, time.Minute)
	ctx := context.Background()

	if err := m.Set(ctx, "empty", []byte("[]")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, ok, _ := m.Get(ctx, "empty")
	if !ok {
		t.Fatal("empty value must still be a present entry")
	}
	if string(got) != "[]" {
		t.Errorf("expected %q, got %q", "[]", got)
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(10, 10*time.Millisecond)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"))
	time.Sleep(20 * time.Millisecond)

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if m.Len() != 0 {
		t.Errorf("expected expired entry removed, len=%d", m.Len())
	}
}

func TestMemoryEvictsLRUOverCapacity(t *testing.T) {
	m := NewMemory(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		m.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"))
	}

	// Touch k0 so k1 becomes least recently used.
	m.Get(ctx, "k0")
	m.Set(ctx, "k3", []byte("v"))

	if m.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "k1"); ok {
		t.Error("expected k1 evicted")
	}
	if _, ok, _ := m.Get(ctx, "k0"); !ok {
		t.Error("expected recently used k0 retained")
	}
}

func TestMemorySetRefreshesEntry(t *testing.T) {
	m := NewMemory(10, time.Minute)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("old"))
	m.Set(ctx, "k", []byte("new"))

	got, ok, _ := m.Get(ctx, "k")
	if !ok || string(got) != "new" {
		t.Fatalf("expected refreshed value %q, got %q (hit=%v)", "new", got, ok)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", m.Len())
	}
}
