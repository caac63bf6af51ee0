// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package hashing

import "testing"

func TestNameHasher_Deterministic(t *testing.T) {
	a := NameHasher("orders-1")
	b := NameHasher("orders-1")
	if a != b {
		t.Fatalf("NameHasher not deterministic: %d != %d", a, b)
	}
}

func TestNameHasher_DifferentNamesDiffer(t *testing.T) {
	a := NameHasher("orders-1")
	b := NameHasher("orders-2")
	if a == b {
		t.Fatalf("NameHasher produced the same hash for two different names")
	}
}

func TestIdentityHasher_RoundTripsLowBits(t *testing.T) {
	h := IdentityHasher(42)
	if h>>32 != 0 || uint32(h) != 42 {
		// The identity hasher must not spread a numeric id across both
		// 32-bit halves -- the id IS the hash key (base spec §2.1).
		t.Fatalf("IdentityHasher(42) = %#x, expected high 32 bits zero and low 32 bits 42", h)
	}
}

func TestStreamHash_CombinesBothHalves(t *testing.T) {
	a := StreamHash(1, 2)
	b := StreamHash(2, 1)
	if a == b {
		t.Fatalf("StreamHash(1,2) == StreamHash(2,1); halves are not order-sensitive")
	}
}
