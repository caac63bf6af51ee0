// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package existencefilter

import (
	"context"
	"testing"

	"github.com/tomtom215/streamindex/internal/hashing"
	"github.com/tomtom215/streamindex/internal/tableindex"
	"github.com/tomtom215/streamindex/internal/tflog"
)

func TestFilter_NoFalseNegatives(t *testing.T) {
	f := New(1000, 0.01)
	names := []string{"orders-1", "orders-2", "$$orders-1", "inventory-9"}
	for _, n := range names {
		f.Add(n)
	}
	for _, n := range names {
		if !f.MightContain(n) {
			t.Fatalf("MightContain(%q) = false, want true (no false negatives)", n)
		}
	}
	if f.Count() != len(names) {
		t.Fatalf("Count() = %d, want %d", f.Count(), len(names))
	}
}

func TestFilter_DefinitelyAbsent(t *testing.T) {
	f := New(1000, 0.01)
	f.Add("orders-1")
	if f.MightContain("never-added-xyz") {
		// Not deterministic in principle, but at this size/rate the
		// probability of a false positive for an unrelated key is
		// negligible; a flake here would indicate a sizing regression.
		t.Fatalf("MightContain(never-added-xyz) = true, expected definitely-absent")
	}
}

func TestCheckpoint_ReadWriteRoundTrip(t *testing.T) {
	cp, err := OpenCheckpoint(t.TempDir(), false)
	if err != nil {
		t.Fatalf("OpenCheckpoint: %v", err)
	}
	defer cp.Close()

	pos, err := cp.Read()
	if err != nil {
		t.Fatalf("Read (empty): %v", err)
	}
	if pos != -1 {
		t.Fatalf("Read (empty) = %d, want -1", pos)
	}

	if err := cp.Write(42); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pos, err = cp.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if pos != 42 {
		t.Fatalf("Read() = %d, want 42", pos)
	}
}

func TestInitHashKeyed_BootstrapsFromTableIndex(t *testing.T) {
	table := tableindex.NewMem()
	table.Add(tableindex.Entry{StreamHash: hashing.NameHasher("orders-1"), Version: 0, Position: 0})
	table.Add(tableindex.Entry{StreamHash: hashing.NameHasher("orders-2"), Version: 0, Position: 1})

	log := tflog.NewMemLog()
	log.Append(tflog.PrepareRecord{EventStreamID: "orders-1", EventNumber: 0, Flags: tflog.FlagIsCommitted})
	log.Append(tflog.PrepareRecord{EventStreamID: "orders-2", EventNumber: 0, Flags: tflog.FlagIsCommitted})
	table.SetCheckpoints(2, 2)

	pool, err := tflog.NewPool(log.NewReader, 1, 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	cp, err := OpenCheckpoint(t.TempDir(), false)
	if err != nil {
		t.Fatalf("OpenCheckpoint: %v", err)
	}
	defer cp.Close()

	f := New(100, 0.01)
	if err := InitHashKeyed(context.Background(), f, cp, table, pool); err != nil {
		t.Fatalf("InitHashKeyed: %v", err)
	}

	if !f.MightContain(hashKey(hashing.NameHasher("orders-1"))) {
		t.Fatalf("filter does not contain orders-1's hash after bootstrap")
	}
	if !f.MightContain(hashKey(hashing.NameHasher("orders-2"))) {
		t.Fatalf("filter does not contain orders-2's hash after bootstrap")
	}

	finalCheckpoint, err := cp.Read()
	if err != nil {
		t.Fatalf("Read checkpoint: %v", err)
	}
	if finalCheckpoint != 2 {
		t.Fatalf("final checkpoint = %d, want 2 (log fully scanned)", finalCheckpoint)
	}
}

func TestInitNameKeyed_BootstrapsFromEnumerator(t *testing.T) {
	names := []string{"orders-1", "orders-2"}
	enumerator := NameEnumerator(func(yield func(string) bool) {
		for _, n := range names {
			if !yield(n) {
				return
			}
		}
	})

	f := New(100, 0.01)
	InitNameKeyed(f, enumerator)

	for _, n := range names {
		if !f.MightContain(n) {
			t.Fatalf("filter does not contain %q after bootstrap", n)
		}
	}
}
