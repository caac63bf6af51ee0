// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package streamnameindex

import (
	"context"
	"testing"

	"github.com/tomtom215/streamindex/internal/existencefilter"
)

func TestSequence_AllocatesEvenIDs(t *testing.T) {
	seq := NewSequence(0, 2)
	a := seq.Next()
	b := seq.Next()
	if a != 0 || b != 2 {
		t.Fatalf("Next() sequence = %d, %d, want 0, 2", a, b)
	}
	if MetastreamID(a) != 1 || IsMetastreamID(MetastreamID(a)) != true {
		t.Fatalf("MetastreamID/IsMetastreamID mismatch for %d", a)
	}
	if IsMetastreamID(a) {
		t.Fatalf("original id %d should not look like a metastream id", a)
	}
}

func TestPersistent_IDFor_StableAcrossCalls(t *testing.T) {
	seq := NewSequence(0, 2)
	idx, err := OpenPersistent(t.TempDir(), false, seq)
	if err != nil {
		t.Fatalf("OpenPersistent: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	first, err := idx.IDFor(ctx, "orders-1")
	if err != nil {
		t.Fatalf("IDFor: %v", err)
	}
	second, err := idx.IDFor(ctx, "orders-1")
	if err != nil {
		t.Fatalf("IDFor (again): %v", err)
	}
	if first != second {
		t.Fatalf("IDFor is not idempotent: %d != %d", first, second)
	}

	name, ok := idx.NameFor(ctx, first)
	if !ok || name != "orders-1" {
		t.Fatalf("NameFor(%d) = %q, %v, want orders-1/true", first, name, ok)
	}
}

func TestPersistent_Enumerate(t *testing.T) {
	seq := NewSequence(0, 2)
	idx, err := OpenPersistent(t.TempDir(), false, seq)
	if err != nil {
		t.Fatalf("OpenPersistent: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	if _, err := idx.IDFor(ctx, "orders-1"); err != nil {
		t.Fatalf("IDFor: %v", err)
	}
	if _, err := idx.IDFor(ctx, "orders-2"); err != nil {
		t.Fatalf("IDFor: %v", err)
	}

	seen := map[string]bool{}
	idx.Enumerate(func(name string, id uint32) bool {
		seen[name] = true
		return true
	})
	if !seen["orders-1"] || !seen["orders-2"] {
		t.Fatalf("Enumerate did not visit both bindings: %v", seen)
	}
}

func TestIdentity_IsANoOp(t *testing.T) {
	var idx Identity
	id, err := idx.IDFor(context.Background(), "anything")
	if err != nil || id != 0 {
		t.Fatalf("Identity.IDFor = %d, %v, want 0, nil", id, err)
	}
}

func TestExistenceFiltered_AddsOnSuccessfulResolve(t *testing.T) {
	seq := NewSequence(0, 2)
	inner, err := OpenPersistent(t.TempDir(), false, seq)
	if err != nil {
		t.Fatalf("OpenPersistent: %v", err)
	}
	defer inner.Close()

	filter := existencefilter.New(100, 0.01)
	decorated := NewExistenceFiltered(inner, filter)

	ctx := context.Background()
	if _, err := decorated.IDFor(ctx, "orders-1"); err != nil {
		t.Fatalf("IDFor: %v", err)
	}
	if !decorated.MightExist("orders-1") {
		t.Fatalf("MightExist(orders-1) = false after a successful IDFor")
	}
}

func TestMetastream_TranslatesNameAndID(t *testing.T) {
	seq := NewSequence(0, 2)
	inner, err := OpenPersistent(t.TempDir(), false, seq)
	if err != nil {
		t.Fatalf("OpenPersistent: %v", err)
	}
	defer inner.Close()

	decorated := NewMetastream(inner)
	ctx := context.Background()

	origID, err := decorated.IDFor(ctx, "orders-1")
	if err != nil {
		t.Fatalf("IDFor(orders-1): %v", err)
	}
	metaID, err := decorated.IDFor(ctx, "$$orders-1")
	if err != nil {
		t.Fatalf("IDFor($$orders-1): %v", err)
	}
	if metaID != MetastreamID(origID) {
		t.Fatalf("IDFor($$orders-1) = %d, want MetastreamID(%d) = %d", metaID, origID, MetastreamID(origID))
	}

	name, ok := decorated.NameFor(ctx, metaID)
	if !ok || name != "$$orders-1" {
		t.Fatalf("NameFor(%d) = %q, %v, want $$orders-1/true", metaID, name, ok)
	}
}
