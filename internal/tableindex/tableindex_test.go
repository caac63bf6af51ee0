// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tableindex

import "testing"

func TestMem_GetRange_OrderedByVersion(t *testing.T) {
	m := NewMem()
	m.Add(Entry{StreamHash: 1, Version: 2, Position: 20})
	m.Add(Entry{StreamHash: 1, Version: 0, Position: 0})
	m.Add(Entry{StreamHash: 1, Version: 1, Position: 10})

	got := m.GetRange(1, 0, 2, NoLimit)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	for i, e := range got {
		if e.Version != int64(i) {
			t.Fatalf("got[%d].Version = %d, want %d", i, e.Version, i)
		}
	}
}

func TestMem_GetRange_RespectsLimit(t *testing.T) {
	m := NewMem()
	for v := int64(0); v < 5; v++ {
		m.Add(Entry{StreamHash: 7, Version: v, Position: v * 10})
	}
	got := m.GetRange(7, 0, 4, 2)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}

func TestMem_TryGetLatestAndOldestEntry(t *testing.T) {
	m := NewMem()
	if _, ok := m.TryGetLatestEntry(1); ok {
		t.Fatalf("TryGetLatestEntry on empty index returned ok=true")
	}

	m.Add(Entry{StreamHash: 1, Version: 0, Position: 0})
	m.Add(Entry{StreamHash: 1, Version: 5, Position: 50})
	m.Add(Entry{StreamHash: 1, Version: 2, Position: 20})

	latest, ok := m.TryGetLatestEntry(1)
	if !ok || latest.Version != 5 {
		t.Fatalf("latest = %+v, ok=%v, want version 5", latest, ok)
	}
	oldest, ok := m.TryGetOldestEntry(1)
	if !ok || oldest.Version != 0 {
		t.Fatalf("oldest = %+v, ok=%v, want version 0", oldest, ok)
	}
}

func TestMem_TryGetOneValue(t *testing.T) {
	m := NewMem()
	m.Add(Entry{StreamHash: 3, Version: 9, Position: 90})

	pos, ok := m.TryGetOneValue(3, 9)
	if !ok || pos != 90 {
		t.Fatalf("TryGetOneValue = (%d, %v), want (90, true)", pos, ok)
	}
	if _, ok := m.TryGetOneValue(3, 10); ok {
		t.Fatalf("TryGetOneValue for missing version returned ok=true")
	}
}

func TestMem_IterateAll_VisitsEveryEntry(t *testing.T) {
	m := NewMem()
	for i := 0; i < 4; i++ {
		m.Add(Entry{StreamHash: uint64(i), Version: 0, Position: int64(i)})
	}
	seen := 0
	m.IterateAll(func(Entry) bool {
		seen++
		return true
	})
	if seen != 4 {
		t.Fatalf("visited %d entries, want 4", seen)
	}
}

func TestMem_IterateAll_StopsEarly(t *testing.T) {
	m := NewMem()
	for i := 0; i < 4; i++ {
		m.Add(Entry{StreamHash: uint64(i), Version: 0, Position: int64(i)})
	}
	seen := 0
	m.IterateAll(func(Entry) bool {
		seen++
		return seen < 2
	})
	if seen != 2 {
		t.Fatalf("visited %d entries, want 2 (early stop)", seen)
	}
}

func TestMem_Checkpoints(t *testing.T) {
	m := NewMem()
	if m.PrepareCheckpoint() != -1 || m.CommitCheckpoint() != -1 {
		t.Fatalf("fresh index should start with checkpoints at -1")
	}
	m.SetCheckpoints(100, 90)
	if m.PrepareCheckpoint() != 100 || m.CommitCheckpoint() != 90 {
		t.Fatalf("checkpoints not updated: prepare=%d commit=%d", m.PrepareCheckpoint(), m.CommitCheckpoint())
	}
}
